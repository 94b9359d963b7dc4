package voices

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/talkwith/talkwith/internal/elevenlabs"
)

var testVoices = []elevenlabs.Voice{
	{VoiceID: "v-bright", Name: "Alice", Description: "Bright young female voice"},
	{VoiceID: "v-deep", Name: "Daniel", Description: "Deep mature male voice with a british accent"},
	{VoiceID: "v-soft", Name: "Grace", Description: "Soft gentle female voice"},
}

type scriptedGenerator struct {
	reply string
	err   error
}

func (g *scriptedGenerator) Generate(context.Context, string) (string, error) {
	return g.reply, g.err
}

func TestSelectUsesModelAnswer(t *testing.T) {
	s := NewSelector(&scriptedGenerator{reply: "2"})
	got := s.Select(context.Background(), testVoices, "An elderly man with a deep british voice")
	if got != "v-deep" {
		t.Errorf("got %q, want v-deep", got)
	}
}

func TestSelectModelAnswerWithTrailingText(t *testing.T) {
	s := NewSelector(&scriptedGenerator{reply: "2. Daniel matches best"})
	got := s.Select(context.Background(), testVoices, "deep male voice")
	if got != "v-deep" {
		t.Errorf("got %q, want v-deep", got)
	}
}

func TestSelectFallsBackOnModelFailure(t *testing.T) {
	cases := []*scriptedGenerator{
		{err: errors.New("quota exhausted")},
		{reply: "0"},
		{reply: "not a number"},
		{reply: "99"},
	}
	for _, g := range cases {
		s := NewSelector(g)
		got := s.Select(context.Background(), testVoices, "An elderly man with a deep british voice")
		if got != "v-deep" {
			t.Errorf("generator %+v: got %q, want keyword fallback v-deep", g, got)
		}
	}
}

func TestSelectNilGeneratorUsesKeywords(t *testing.T) {
	s := NewSelector(nil)
	got := s.Select(context.Background(), testVoices, "a soft, gentle female voice")
	if got != "v-soft" {
		t.Errorf("got %q, want v-soft", got)
	}
}

func TestSelectNoCandidates(t *testing.T) {
	s := NewSelector(nil)
	if got := s.Select(context.Background(), nil, "anything"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestSelectByKeywordsNoSignal(t *testing.T) {
	if got := SelectByKeywords(testVoices, "completely unrelated text"); got != "" {
		t.Errorf("got %q, want empty when nothing scores", got)
	}
}

func TestDeriveTags(t *testing.T) {
	tags := DeriveTags("An elderly man with a deep british voice")
	joined := strings.Join(tags, " ")
	for _, want := range []string{"male", "elderly", "british", "deep"} {
		if !strings.Contains(joined, want) {
			t.Errorf("tags %v missing %q", tags, want)
		}
	}
}

func TestSanitizeDescriptionStripsNames(t *testing.T) {
	got := SanitizeDescription("Nikola Tesla had a deep resonant voice. He spoke with a measured cadence.")
	if strings.Contains(got, "Nikola") || strings.Contains(got, "Tesla") {
		t.Errorf("name survived sanitization: %q", got)
	}
	if !strings.Contains(got, "resonant") {
		t.Errorf("voice sentence lost: %q", got)
	}
}

func TestSanitizeDescriptionKeepsAtMostThreeSentences(t *testing.T) {
	desc := "A deep voice. A warm tone. A measured cadence. A gritty timbre. A nasal quality."
	got := SanitizeDescription(desc)
	if strings.Contains(got, "gritty") || strings.Contains(got, "nasal") {
		t.Errorf("more than three sentences kept: %q", got)
	}
	if !strings.Contains(got, "measured") {
		t.Errorf("third sentence missing: %q", got)
	}
}

func TestSanitizeDescriptionKeywordFallback(t *testing.T) {
	// Every word is dropped as a name, so no sentence survives, but the
	// keywords still appear in the original text.
	got := SanitizeDescription("Booming Baritone Register")
	if !strings.Contains(got, "A voice with") || !strings.Contains(got, "baritone") {
		t.Errorf("keyword fallback missing: %q", got)
	}
}

func TestSanitizeDescriptionNeutralFallback(t *testing.T) {
	got := SanitizeDescription("Nothing about sound here at all")
	if got != neutralDescription {
		t.Errorf("got %q, want the neutral fallback", got)
	}
}

func TestSanitizeDescriptionCapsLength(t *testing.T) {
	long := strings.Repeat("a deep resonant tone. ", 60)
	if got := SanitizeDescription(long); len(got) > 500 {
		t.Errorf("len = %d, want <= 500", len(got))
	}
}
