// Package summary derives a short voice description for a historical figure,
// suitable for handing to a voice-synthesis provider. Two strategies share
// the same contract: at most 1000 characters, never empty, never fails in the
// local case.
package summary

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/talkwith/talkwith/internal/questions"
)

const (
	maxLen = 1000

	// sentenceCutFloor is the earliest point at which a sentence-boundary
	// truncation is still considered to keep enough content.
	sentenceCutFloor = 800

	// NotDocumented is returned when no voice-related answer survives
	// filtering.
	NotDocumented = "Voice characteristics not documented in historical records."

	// modelContextLimit bounds how much of the raw profile response is sent
	// back upstream when asking for a model-written summary.
	modelContextLimit = 5000
)

// placeholders are answer values that carry no information and are skipped.
var placeholders = map[string]struct{}{
	"n/a":           {},
	"not available": {},
	"unknown":       {},
	"uncertain":     {},
}

// Reduce builds a voice description from the voice-related answers in the
// set. Deterministic and local; no upstream call.
func Reduce(answers map[string]string) string {
	var parts []string
	for _, q := range questions.Voice {
		a := strings.TrimSpace(answers[q])
		if a == "" {
			continue
		}
		if _, skip := placeholders[strings.ToLower(a)]; skip {
			continue
		}
		parts = append(parts, a)
	}
	if len(parts) == 0 {
		return NotDocumented
	}
	combined := strings.Join(parts, " ")
	if len(combined) > maxLen {
		combined = truncate(combined)
	}
	return strings.TrimSpace(combined)
}

// truncate cuts s below maxLen, preferring a sentence boundary when one
// falls late enough, otherwise a word boundary plus an ellipsis.
func truncate(s string) string {
	head := cutAt(s, maxLen)
	if cut := max(strings.LastIndex(head, "."), strings.LastIndex(head, "\n")); cut > sentenceCutFloor {
		return head[:cut+1]
	}
	head = cutAt(s, maxLen-3)
	if sp := strings.LastIndex(head, " "); sp > 0 {
		head = head[:sp]
	}
	return head + "..."
}

// cutAt slices s to at most n bytes without splitting a UTF-8 sequence.
func cutAt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generate asks the upstream model to write the voice description from the
// full profile response. The result is still hard-capped at 1000 characters
// even if the model ignores the instruction.
func Generate(ctx context.Context, g Generator, name, rawResponse string) (string, error) {
	out, err := g.Generate(ctx, buildPrompt(name, rawResponse))
	if err != nil {
		return "", fmt.Errorf("generating voice summary: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return NotDocumented, nil
	}
	if len(out) > maxLen {
		out = cutAt(out, maxLen-3) + "..."
	}
	return out, nil
}

func buildPrompt(name, rawResponse string) string {
	context := cutAt(rawResponse, modelContextLimit)
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following biographical information about %s, write a concise summary of their voice, speech patterns, and personality suitable for recreating how they spoke.\n\n", name)
	b.WriteString(context)
	b.WriteString("\n\nRequirements:\n")
	b.WriteString("- Maximum 1000 characters.\n")
	b.WriteString("- Describe vocal tone, pitch, accent, pacing, vocabulary, and demeanor.\n")
	fmt.Fprintf(&b, "- CRITICAL: Do NOT include the person's first name, last name, or full name anywhere in the summary.\n")
	b.WriteString("- Respond with the summary text only, no preamble.")
	return b.String()
}
