package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for figures and knowledge docs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "talkwith.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for subsystems that manage their own
// tables (the vector store).
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Figures ---

const figureColumns = "id, name, name_key, answers, raw_response, voice_summary, voice_id, agent_id, created_at, updated_at"

// SaveFigure inserts a new figure. CreatedAt is assigned here; the caller
// provides the id. A name_key collision returns ErrExists.
func (s *Store) SaveFigure(f Figure) error {
	answers, err := json.Marshal(f.Answers)
	if err != nil {
		return fmt.Errorf("encoding answers: %w", err)
	}
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.db.Exec(`
		INSERT INTO figures (id, name, name_key, answers, raw_response, voice_summary, voice_id, agent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '')`,
		f.ID, f.Name, f.NameKey, string(answers), f.RawResponse, f.VoiceSummary,
		f.VoiceID, f.AgentID, createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrExists
	}
	return err
}

// GetFigure looks up a figure by its normalized name key.
func (s *Store) GetFigure(nameKey string) (Figure, error) {
	row := s.db.QueryRow("SELECT "+figureColumns+" FROM figures WHERE name_key = ?", nameKey)
	f, err := scanFigure(row)
	if err == sql.ErrNoRows {
		return Figure{}, ErrNotFound
	}
	return f, err
}

// ListFigures returns all figures ordered by name.
func (s *Store) ListFigures() ([]Figure, error) {
	return s.queryFigures("SELECT " + figureColumns + " FROM figures ORDER BY name ASC")
}

// SearchFigures returns figures whose normalized name contains q.
func (s *Store) SearchFigures(q string) ([]Figure, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	return s.queryFigures("SELECT "+figureColumns+" FROM figures WHERE name_key LIKE ? ORDER BY name ASC", pattern)
}

// ListFiguresWithAgents returns figures currently holding a live agent id.
func (s *Store) ListFiguresWithAgents() ([]Figure, error) {
	return s.queryFigures("SELECT " + figureColumns + " FROM figures WHERE agent_id != ''")
}

// SetVoiceSummary updates the voice summary of an existing figure.
func (s *Store) SetVoiceSummary(nameKey, voiceSummary string) error {
	return s.updateFigure(nameKey, "voice_summary = ?", voiceSummary)
}

// SetAgent records the provider voice and agent ids for a figure.
func (s *Store) SetAgent(nameKey, voiceID, agentID string) error {
	return s.updateFigure(nameKey, "voice_id = ?, agent_id = ?", voiceID, agentID)
}

// ClearAgent unsets the provider voice and agent ids, leaving everything
// else untouched.
func (s *Store) ClearAgent(nameKey string) error {
	return s.updateFigure(nameKey, "voice_id = '', agent_id = ''")
}

func (s *Store) updateFigure(nameKey, set string, args ...any) error {
	now := time.Now().UTC().Format(time.RFC3339)
	args = append(args, now, nameKey)
	res, err := s.db.Exec("UPDATE figures SET "+set+", updated_at = ? WHERE name_key = ?", args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) queryFigures(query string, args ...any) ([]Figure, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Figure
	for rows.Next() {
		f, err := scanFigure(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFigure(row rowScanner) (Figure, error) {
	var f Figure
	var answers, createdAt, updatedAt string
	err := row.Scan(&f.ID, &f.Name, &f.NameKey, &answers, &f.RawResponse,
		&f.VoiceSummary, &f.VoiceID, &f.AgentID, &createdAt, &updatedAt)
	if err != nil {
		return Figure{}, err
	}
	if err := json.Unmarshal([]byte(answers), &f.Answers); err != nil {
		return Figure{}, fmt.Errorf("decoding answers: %w", err)
	}
	if f.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Figure{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if updatedAt != "" {
		if f.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return Figure{}, fmt.Errorf("parsing updated_at: %w", err)
		}
	}
	return f, nil
}

// --- Knowledge docs ---

// SaveKnowledgeDoc inserts an ingested document for a figure.
func (s *Store) SaveKnowledgeDoc(doc KnowledgeDoc) error {
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO knowledge_docs (id, figure_key, title, content, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.FigureKey, doc.Title, doc.Content, doc.Source,
		createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListKnowledgeDocs returns all documents for a figure, oldest first.
func (s *Store) ListKnowledgeDocs(figureKey string) ([]KnowledgeDoc, error) {
	rows, err := s.db.Query(`
		SELECT id, figure_key, title, content, source, created_at
		FROM knowledge_docs WHERE figure_key = ? ORDER BY created_at ASC`, figureKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []KnowledgeDoc
	for rows.Next() {
		var d KnowledgeDoc
		var createdAt string
		if err := rows.Scan(&d.ID, &d.FigureKey, &d.Title, &d.Content, &d.Source, &createdAt); err != nil {
			return nil, err
		}
		if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}
