// Package voices picks the best available provider voice for a description
// and sanitizes free-text voice descriptions for the voice-design API.
package voices

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/talkwith/talkwith/internal/elevenlabs"
)

// maxEnumerated caps how many candidates are shown to the model.
const maxEnumerated = 20

// Generator produces model text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Selector picks a voice from a candidate list. With a nil generator it goes
// straight to keyword scoring.
type Selector struct {
	llm Generator
}

// NewSelector builds a Selector; llm may be nil.
func NewSelector(llm Generator) *Selector {
	return &Selector{llm: llm}
}

// Select returns the voice id best matching description, or "" when no
// candidate fits. The model is asked first when available; any failure or
// out-of-range answer falls back to keyword scoring.
func (s *Selector) Select(ctx context.Context, candidates []elevenlabs.Voice, description string) string {
	if len(candidates) == 0 {
		return ""
	}
	if s.llm != nil {
		if id := s.modelSelect(ctx, candidates, description); id != "" {
			return id
		}
	}
	return SelectByKeywords(candidates, description)
}

func (s *Selector) modelSelect(ctx context.Context, candidates []elevenlabs.Voice, description string) string {
	shown := candidates
	if len(shown) > maxEnumerated {
		shown = shown[:maxEnumerated]
	}

	var b strings.Builder
	b.WriteString("I need to select the best voice for a historical figure with this voice description:\n\n")
	b.WriteString(description)
	b.WriteString("\n\nAvailable voices:\n")
	for i, v := range shown {
		fmt.Fprintf(&b, "%d. Name: %s, Description: %s, ID: %s\n", i+1, v.Name, v.Description, v.VoiceID)
	}
	b.WriteString("\nRespond with ONLY the number of the best matching voice, or 0 if none match well.")

	reply, err := s.llm.Generate(ctx, b.String())
	if err != nil {
		slog.Warn("model voice selection failed", "error", err)
		return ""
	}
	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return ""
	}
	n, err := strconv.Atoi(strings.TrimSuffix(fields[0], "."))
	if err != nil || n < 1 || n > len(shown) {
		return ""
	}
	return shown[n-1].VoiceID
}

// tagGroups maps description symptoms to the tags scored against candidate
// voices. Checked by substring on the lowercased description.
var tagGroups = []struct {
	triggers []string
	tags     []string
}{
	{[]string{"male", "man", "he ", "his ", "masculine"}, []string{"male", "man", "masculine"}},
	{[]string{"female", "woman", "she ", "her ", "feminine"}, []string{"female", "woman", "feminine"}},
	{[]string{"young", "youth", "teen", "child"}, []string{"young", "youth"}},
	{[]string{"old", "elderly", "aged", "senior"}, []string{"old", "elderly", "mature"}},
	{[]string{"british", "england"}, []string{"british", "english", "uk"}},
	{[]string{"american", "us "}, []string{"american", "us"}},
	{[]string{"french"}, []string{"french"}},
	{[]string{"spanish", "latin"}, []string{"spanish", "latin"}},
	{[]string{"deep", "low", "bass"}, []string{"deep", "low", "bass"}},
	{[]string{"high", "soprano", "squeaky"}, []string{"high", "soprano"}},
	{[]string{"soft", "quiet", "gentle"}, []string{"soft", "gentle", "calm"}},
	{[]string{"loud", "powerful", "strong"}, []string{"powerful", "strong", "bold"}},
}

// DeriveTags extracts coarse voice tags (gender, age, accent, energy) from a
// description.
func DeriveTags(description string) []string {
	d := strings.ToLower(description)
	var tags []string
	for _, g := range tagGroups {
		for _, trigger := range g.triggers {
			if strings.Contains(d, trigger) {
				tags = append(tags, g.tags...)
				break
			}
		}
	}
	return tags
}

// SelectByKeywords scores candidates by tag overlap against name plus
// description and returns the best scorer, or "" when nothing scores.
func SelectByKeywords(candidates []elevenlabs.Voice, description string) string {
	tags := DeriveTags(description)
	if len(tags) == 0 {
		return ""
	}

	bestID := ""
	bestScore := 0
	for _, v := range candidates {
		haystack := strings.ToLower(v.Name + " " + v.Description)
		score := 0
		for _, tag := range tags {
			if strings.Contains(haystack, tag) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestID = v.VoiceID
		}
	}
	return bestID
}
