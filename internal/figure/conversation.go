package figure

import (
	"context"
	"fmt"
	"strings"
)

const (
	// historyCap bounds the history returned to the caller.
	historyCap = 10

	// historyWindow is how many trailing turns are injected into the prompt.
	historyWindow = 5
)

// Turn is one message in a conversation.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Converse produces an in-character reply for a figure. The figure is
// created on demand. The returned history is the input history plus the new
// user and assistant turns, capped to the most recent entries.
func (o *Orchestrator) Converse(ctx context.Context, name, message string, history []Turn) (string, []Turn, error) {
	if o.llm == nil {
		return "", nil, ErrNotConfigured
	}
	f, err := o.GetOrCreate(ctx, name)
	if err != nil {
		return "", nil, err
	}

	reply, err := o.llm.Generate(ctx, buildConversationPrompt(f, message, history))
	if err != nil {
		return "", nil, fmt.Errorf("generating reply as %q: %w", f.Name, err)
	}
	reply = strings.TrimSpace(reply)

	updated := append(append([]Turn(nil), history...),
		Turn{Role: "user", Content: message},
		Turn{Role: "assistant", Content: reply},
	)
	return reply, CapHistory(updated), nil
}

// CapHistory trims history to the most recent entries.
func CapHistory(history []Turn) []Turn {
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	return history
}

func recentTurns(history []Turn, n int) []Turn {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}
