package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrExists is returned when an insert collides with an existing record's
// unique key.
var ErrExists = errors.New("already exists")

// Figure is a persisted historical figure profile.
type Figure struct {
	ID           string
	Name         string
	NameKey      string // lowercased, trimmed lookup key, unique
	Answers      map[string]string
	RawResponse  string
	VoiceSummary string
	VoiceID      string
	AgentID      string
	CreatedAt    time.Time
	UpdatedAt    time.Time // zero until the first update
}

// HasAgent reports whether the figure currently holds a live spoken agent.
func (f Figure) HasAgent() bool {
	return f.AgentID != ""
}

// KnowledgeDoc is an ingested document attached to a figure.
type KnowledgeDoc struct {
	ID        string
	FigureKey string
	Title     string
	Content   string
	Source    string // "text", "url" or "pdf"
	CreatedAt time.Time
}
