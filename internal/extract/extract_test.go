package extract

import (
	"fmt"
	"strings"
	"testing"
)

var testQuestions = []string{
	"What is their full name and any known aliases or nicknames?",
	"What time period did they live in (specific years and era)?",
	"What are they most famous or known for?",
	"What did their voice sound like (tone, pitch, accent, quality)?",
}

func TestAnswersReturnsEveryQuestion(t *testing.T) {
	raw := "Q1: Nikola Tesla, sometimes called the wizard of the west, a name he earned through his public demonstrations of electricity.\nQ3: Alternating current and the induction motor, plus a long rivalry over the future of electric power distribution."
	got := Answers(raw, testQuestions)

	if len(got) != len(testQuestions) {
		t.Fatalf("got %d entries, want %d", len(got), len(testQuestions))
	}
	for _, q := range testQuestions {
		if _, ok := got[q]; !ok {
			t.Errorf("missing entry for %q", q)
		}
	}
	if got[testQuestions[1]] != "" {
		t.Errorf("unanswered question = %q, want empty", got[testQuestions[1]])
	}
	if !strings.Contains(got[testQuestions[0]], "Nikola Tesla") {
		t.Errorf("answer 1 = %q", got[testQuestions[0]])
	}
}

func TestAnswersRejectsEchoedQuestion(t *testing.T) {
	// The model hands the question back with nothing of substance added.
	raw := "Q1: What is their full name and any known aliases or nicknames?\nQ2: He lived from 1856 to 1943, spanning the late Victorian era through the Second World War, a period of rapid electrification."
	got := Answers(raw, testQuestions)

	if got[testQuestions[0]] != "" {
		t.Errorf("echoed answer = %q, want empty", got[testQuestions[0]])
	}
	if got[testQuestions[1]] == "" {
		t.Error("real answer was dropped")
	}
}

func TestAnswersKeepsLongAnswerQuotingQuestion(t *testing.T) {
	// Quoting the question mid-answer is fine as long as the answer is
	// substantially longer than the question itself.
	filler := strings.Repeat("He was a prolific inventor with hundreds of patents. ", 4)
	raw := "Q1: " + filler + "Asked \"what is their full name and any known aliases or nicknames?\" contemporaries always said Tesla."
	got := Answers(raw, []string{testQuestions[0]})

	if got[testQuestions[0]] == "" {
		t.Fatal("long answer quoting the question was rejected")
	}
}

func TestAnswersRejectsPrefixEchoRegardlessOfLength(t *testing.T) {
	filler := strings.Repeat("He was a prolific inventor with hundreds of patents. ", 4)
	raw := "Q1: What is their full name and any known aliases or nicknames? " + filler
	got := Answers(raw, []string{testQuestions[0]})

	if got[testQuestions[0]] != "" {
		t.Errorf("prefix echo kept: %q", got[testQuestions[0]])
	}
}

func TestAnswersLongestDuplicateWins(t *testing.T) {
	raw := "Q1: A short note about the subject that clears the echo checks easily enough for inclusion here.\nQ1: A considerably longer elaboration about the subject that also clears the echo checks and carries much more detail than the first attempt did, so it should replace it."
	got := Answers(raw, testQuestions[:1])

	if !strings.HasPrefix(got[testQuestions[0]], "A considerably longer") {
		t.Errorf("kept %q, want the longer duplicate", got[testQuestions[0]])
	}
}

func TestAnswersIgnoresOutOfRangeMarkers(t *testing.T) {
	raw := "Q0: nothing\nQ99: nothing either\nQ2: The 19th century, mostly, with a long coda into the 20th during which his fame faded and then revived."
	got := Answers(raw, testQuestions)

	if got[testQuestions[1]] == "" {
		t.Error("valid marker between invalid ones was dropped")
	}
}

func TestAnswersFallbackScan(t *testing.T) {
	// Marker scan recovers under half the questions, so the line scan runs.
	// Continuation lines and blank lines must fold into the open answer.
	raw := strings.Join([]string{
		"Q1: Serbian-American inventor and electrical engineer famous in his own lifetime",
		"and long after it, celebrated for work on alternating current.",
		"",
		"He held around three hundred patents across several countries.",
	}, "\n")
	got := Answers(raw, testQuestions)

	ans := got[testQuestions[0]]
	if !strings.Contains(ans, "long after it") {
		t.Errorf("continuation line not folded in: %q", ans)
	}
	if !strings.Contains(ans, "three hundred patents") {
		t.Errorf("post-blank line not folded in: %q", ans)
	}
}

func TestLineScanFirstOccurrenceWins(t *testing.T) {
	raw := strings.Join([]string{
		"Q1: The first statement of the answer, which should be the one retained by the scan.",
		"Q2: Some middle answer separating the duplicates so both get flushed properly here.",
		"Q1: A later restatement that must not replace the original first occurrence at all.",
	}, "\n")
	got := lineScan(raw, testQuestions)

	if !strings.HasPrefix(got[testQuestions[0]], "The first statement") {
		t.Errorf("kept %q, want the first occurrence", got[testQuestions[0]])
	}
}

func TestAnswersEmptyInput(t *testing.T) {
	got := Answers("", testQuestions)
	for q, a := range got {
		if a != "" {
			t.Errorf("entry for %q = %q, want empty", q, a)
		}
	}
	if len(got) != len(testQuestions) {
		t.Fatalf("got %d entries, want %d", len(got), len(testQuestions))
	}
}

func TestAnswersManyQuestions(t *testing.T) {
	var qs []string
	var b strings.Builder
	for i := 1; i <= 20; i++ {
		qs = append(qs, fmt.Sprintf("Placeholder question number %d about the historical figure in question?", i))
		fmt.Fprintf(&b, "Q%d: Answer number %d with enough substance to avoid every echo heuristic in play.\n", i, i)
	}
	got := Answers(b.String(), qs)
	for i, q := range qs {
		want := fmt.Sprintf("Answer number %d", i+1)
		if !strings.HasPrefix(got[q], want) {
			t.Errorf("q%d = %q, want prefix %q", i+1, got[q], want)
		}
	}
}
