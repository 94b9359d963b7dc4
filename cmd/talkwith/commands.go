package main

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talkwith/talkwith/internal/config"
)

type profileView struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Answers      map[string]string `json:"answers"`
	VoiceSummary string            `json:"voice_summary"`
	VoiceID      string            `json:"voice_id"`
	AgentID      string            `json:"agent_id"`
}

type figureSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	HasAgent bool   `json:"has_agent"`
	AgentID  string `json:"agent_id"`
	VoiceID  string `json:"voice_id"`
}

type conversationReply struct {
	Person   string `json:"person"`
	Response string `json:"response"`
}

type agentResult struct {
	PersonName string `json:"person_name"`
	VoiceID    string `json:"voice_id"`
	AgentID    string `json:"agent_id"`
	Status     string `json:"status"`
}

type agentStatusView struct {
	PersonName      string `json:"person_name"`
	Exists          bool   `json:"exists"`
	HasAgent        bool   `json:"has_agent"`
	AgentID         string `json:"agent_id"`
	VoiceID         string `json:"voice_id"`
	AgentValid      bool   `json:"agent_valid"`
	HasVoiceSummary bool   `json:"has_voice_summary"`
	Ready           bool   `json:"ready"`
}

type batchItem struct {
	PersonName string `json:"person_name"`
	Status     string `json:"status"`
	AgentID    string `json:"agent_id"`
	Error      string `json:"error"`
}

type documentResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Indexed int    `json:"indexed_chunks"`
}

type recallChunk struct {
	ID         string  `json:"id"`
	FigureKey  string  `json:"figure_key"`
	SourceType string  `json:"source_type"`
	Question   string  `json:"question"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

// --- figure ---

var figureCmd = &cobra.Command{
	Use:   "figure <name>",
	Short: "Show a figure's profile, generating it if needed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Looking up %s (first lookup may take a minute)...", name)
		resp, err := client.get(cmd.Context(), "/figure/"+url.PathEscape(name))
		if err != nil {
			return err
		}

		var profile profileView
		if err := decodeJSON(resp, &profile); err != nil {
			return err
		}

		fmt.Printf("\n%s\n", colorize(colorBold, profile.Name))
		questions := make([]string, 0, len(profile.Answers))
		for q := range profile.Answers {
			questions = append(questions, q)
		}
		sort.Strings(questions)
		for _, q := range questions {
			fmt.Printf("\n%s\n  %s\n", colorize(colorCyan, q), profile.Answers[q])
		}
		if profile.VoiceSummary != "" {
			fmt.Printf("\n%s\n  %s\n", colorize(colorCyan, "Voice summary"), profile.VoiceSummary)
		}
		if profile.AgentID != "" {
			printStatus("Agent", "%s (voice %s)", profile.AgentID, profile.VoiceID)
		}
		return nil
	},
}

// --- figures ---

var figuresCmd = &cobra.Command{
	Use:   "figures",
	Short: "List stored figures",
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/figures"
		if search != "" {
			path = "/figures/search?q=" + url.QueryEscape(search)
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var figures []figureSummary
		if err := decodeJSON(resp, &figures); err != nil {
			return err
		}

		if len(figures) == 0 {
			fmt.Println("No figures found.")
			return nil
		}

		for _, f := range figures {
			marker := " "
			if f.HasAgent {
				marker = colorize(colorGreen, "●")
			}
			fmt.Printf("%s %s\n", marker, f.Name)
		}
		return nil
	},
}

// --- talk ---

var talkCmd = &cobra.Command{
	Use:   "talk <name> <message>",
	Short: "Send a message to a figure and print the reply",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		message := strings.Join(args[1:], " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/conversation/"+url.PathEscape(name), map[string]any{
			"message": message,
		})
		if err != nil {
			return err
		}

		var reply conversationReply
		if err := decodeJSON(resp, &reply); err != nil {
			return err
		}

		fmt.Printf("%s %s\n", colorize(colorBold, reply.Person+":"), reply.Response)
		return nil
	},
}

// --- agent ---

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage voice agents for figures",
}

var agentCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Provision a voice agent for a figure",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Creating agent for %s...", name)
		resp, err := client.post(cmd.Context(), "/figure/"+url.PathEscape(name)+"/create-agent", nil)
		if err != nil {
			return err
		}

		var result agentResult
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Status == "existing" {
			printWarning("%s already has agent %s", result.PersonName, result.AgentID)
			return nil
		}
		printSuccess("Created agent %s for %s (voice %s)", result.AgentID, result.PersonName, result.VoiceID)
		return nil
	},
}

var agentStatusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show agent readiness for a figure",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/figure/"+url.PathEscape(name)+"/agent-status")
		if err != nil {
			return err
		}

		var status agentStatusView
		if err := decodeJSON(resp, &status); err != nil {
			return err
		}

		if !status.Exists {
			printWarning("No profile stored for %s", name)
			return nil
		}
		printStatus("Figure", "%s", status.PersonName)
		if status.HasAgent {
			valid := "stale"
			if status.AgentValid {
				valid = "live"
			}
			printStatus("Agent", "%s (%s)", status.AgentID, valid)
		} else {
			printStatus("Agent", "none")
		}
		printStatus("Voice summary", "%v", status.HasVoiceSummary)
		if status.Ready {
			printSuccess("Ready for voice conversation")
		} else {
			printWarning("Not ready for voice conversation")
		}
		return nil
	},
}

var agentCreateAllCmd = &cobra.Command{
	Use:   "create-all",
	Short: "Provision agents for every figure that lacks one",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Creating agents for all stored figures...")
		resp, err := client.post(cmd.Context(), "/create-all-agents", nil)
		if err != nil {
			return err
		}

		var items []batchItem
		if err := decodeJSON(resp, &items); err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("No figures stored.")
			return nil
		}
		for _, item := range items {
			switch item.Status {
			case "created":
				printSuccess("%s: created agent %s", item.PersonName, item.AgentID)
			case "existing":
				printStatus(item.PersonName, "already has agent %s", item.AgentID)
			case "skipped":
				printStatus(item.PersonName, "skipped")
			default:
				printError("%s: %s", item.PersonName, item.Error)
			}
		}
		return nil
	},
}

func init() {
	figuresCmd.Flags().String("search", "", "filter figures by name substring")
	agentCmd.AddCommand(agentCreateCmd)
	agentCmd.AddCommand(agentStatusCmd)
	agentCmd.AddCommand(agentCreateAllCmd)
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest <name>",
	Short: "Attach a document to a figure's knowledge base",
	Long: `Attach a document to a figure's knowledge base.

Examples:
  talkwith ingest "Nikola Tesla" --text "Tesla held around 300 patents."
  talkwith ingest "Nikola Tesla" --url https://example.com/tesla-bio
  talkwith ingest "Nikola Tesla" --file ./notes.md --title "Research notes"
  talkwith ingest "Nikola Tesla" --pdf ./biography.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		text, _ := cmd.Flags().GetString("text")
		docURL, _ := cmd.Flags().GetString("url")
		file, _ := cmd.Flags().GetString("file")
		pdf, _ := cmd.Flags().GetString("pdf")
		title, _ := cmd.Flags().GetString("title")

		if text == "" && docURL == "" && file == "" && pdf == "" {
			return fmt.Errorf("one of --text, --url, --file, or --pdf is required")
		}

		req := map[string]any{}
		if title != "" {
			req["title"] = title
		}

		switch {
		case text != "":
			req["type"] = "text"
			req["content"] = text
		case docURL != "":
			req["type"] = "url"
			req["url"] = docURL
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			req["type"] = "text"
			req["content"] = string(data)
			if title == "" {
				req["title"] = filepath.Base(file)
			}
		case pdf != "":
			data, err := os.ReadFile(pdf)
			if err != nil {
				return fmt.Errorf("reading pdf: %w", err)
			}
			req["type"] = "pdf"
			req["content"] = base64.StdEncoding.EncodeToString(data)
			if title == "" {
				req["title"] = filepath.Base(pdf)
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/figure/"+url.PathEscape(name)+"/documents", req)
		if err != nil {
			return err
		}

		var result documentResult
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Stored doc %s (%d chunks indexed)", result.ID, result.Indexed)
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("text", "", "text content to attach")
	ingestCmd.Flags().String("url", "", "URL to fetch and attach")
	ingestCmd.Flags().String("file", "", "text file to attach")
	ingestCmd.Flags().String("pdf", "", "PDF file to attach")
	ingestCmd.Flags().String("title", "", "title for the document")
}

// --- recall ---

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Semantic search over indexed figure knowledge",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		person, _ := cmd.Flags().GetString("person")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"query": query,
			"top_k": limit,
		}
		if person != "" {
			req["person"] = person
		}
		resp, err := client.post(cmd.Context(), "/vector-search", req)
		if err != nil {
			return err
		}

		var results []recallChunk
		if err := decodeJSON(resp, &results); err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		for i, r := range results {
			fmt.Printf("\n%s [%s, score: %.3f]\n",
				colorize(colorBold, fmt.Sprintf("Result %d", i+1)), r.FigureKey, r.Score)
			text := r.Text
			if len(text) > 500 {
				text = text[:500] + "..."
			}
			fmt.Printf("  %s\n", text)
		}
		return nil
	},
}

func init() {
	recallCmd.Flags().String("person", "", "restrict results to one figure")
	recallCmd.Flags().Int("limit", 5, "maximum number of results")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
