package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/talkwith/talkwith/internal/agents"
	"github.com/talkwith/talkwith/internal/api"
	"github.com/talkwith/talkwith/internal/config"
	"github.com/talkwith/talkwith/internal/elevenlabs"
	"github.com/talkwith/talkwith/internal/figure"
	"github.com/talkwith/talkwith/internal/gemini"
	"github.com/talkwith/talkwith/internal/questions"
	"github.com/talkwith/talkwith/internal/retrieval"
	"github.com/talkwith/talkwith/internal/storage"
	"github.com/talkwith/talkwith/internal/summary"
	"github.com/talkwith/talkwith/internal/voices"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the talkwith server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running talkwith server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show talkwith system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "talkwith.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func splitOrigins(s string) []string {
	parts := strings.Split(s, ",")
	var origins []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "talkwith version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Refuse to start when another instance already answers on the port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("talkwith is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("talkwith is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// The upstream model client is optional; without it profile creation and
	// conversation report a per-request configuration error.
	var llm figure.Querier
	var gem *gemini.Client
	if cfg.Gemini.APIKey != "" {
		gem, err = gemini.New(ctx, gemini.Config{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			EmbedModel:  cfg.Gemini.EmbedModel,
			Timeout:     cfg.Gemini.Timeout,
			MaxAttempts: cfg.Gemini.MaxAttempts,
			RetryDelay:  cfg.Gemini.RetryDelay,
		})
		if err != nil {
			return fmt.Errorf("initializing model client: %w", err)
		}
		llm = gem
	} else {
		slog.Warn("gemini credential not configured, profile generation disabled")
	}

	vectorStore := retrieval.NewSQLiteStore(store.DB())
	var retriever *retrieval.Retriever
	var indexer *retrieval.Indexer
	var orchIndexer figure.Indexer
	if gem != nil {
		embedder := retrieval.NewEmbedder(gem)
		retriever = retrieval.NewRetriever(embedder, vectorStore)
		indexer = retrieval.NewIndexer(embedder, vectorStore, questions.All())
		orchIndexer = indexer
	}

	summarize := func(sumCtx context.Context, name string, answers map[string]string, raw string) (string, error) {
		if strings.EqualFold(cfg.Summary.Strategy, "model") && gem != nil {
			return summary.Generate(sumCtx, gem, name, raw)
		}
		return summary.Reduce(answers), nil
	}

	orch := figure.New(store, llm, questions.All(), summarize, orchIndexer)

	var provider agents.Provider
	if cfg.ElevenLabs.APIKey != "" {
		provider = elevenlabs.New(cfg.ElevenLabs.APIKey)
	} else {
		slog.Warn("elevenlabs credential not configured, agent provisioning disabled")
	}
	selector := voices.NewSelector(llm)
	mgr := agents.New(store, provider, orch, selector, cfg.ElevenLabs.DefaultVoiceID, cfg.Agents.MaxLive)

	appHandler := api.NewAppHandler(api.AppDeps{
		Store:       store,
		Figures:     orch,
		Agents:      mgr,
		Retriever:   retriever,
		Indexer:     indexer,
		DefaultTopK: cfg.Retrieval.TopK,
		CORSOrigins: splitOrigins(cfg.Server.CORSOrigins),
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: appHandler,
	}

	// MCP server on stdio transport.
	mcpDeps := api.MCPDeps{
		Store:   store,
		Figures: orch,
		TopK:    cfg.Retrieval.TopK,
	}
	if retriever != nil {
		mcpDeps.Retriever = retriever
	}
	mcpSrv := api.NewMCPServer(mcpDeps)
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "talkwith listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("talkwith is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop talkwith (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to talkwith (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if cfg.Gemini.APIKey != "" {
		model := cfg.Gemini.Model
		if model == "" {
			model = "auto"
		}
		printStatus("Gemini", "configured (model: %s)", model)
	} else {
		printStatus("Gemini", "not configured")
	}
	if cfg.ElevenLabs.APIKey != "" {
		printStatus("ElevenLabs", "configured")
	} else {
		printStatus("ElevenLabs", "not configured")
	}

	if running {
		figResp, err := client.Get(serverURL + "/figures")
		if err == nil {
			var figs []figureSummary
			if decodeJSON(figResp, &figs) == nil {
				withAgents := 0
				for _, f := range figs {
					if f.HasAgent {
						withAgents++
					}
				}
				printStatus("Figures", "%d stored, %d with agents", len(figs), withAgents)
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
