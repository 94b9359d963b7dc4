// Package extract parses a free-form model response into per-question
// answers. The upstream prompt asks for "Q<number>: answer" markers; this
// package recovers as much as it can from responses that only loosely follow
// that format.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// echoPrefixLen is how many leading characters of a question are compared
	// against an answer to detect the model parroting the question back.
	echoPrefixLen = 50

	// echoSlack is the extra length over the question under which an answer
	// containing the question text is considered an echo rather than a real
	// answer that quotes it.
	echoSlack = 100
)

var (
	markerRe         = regexp.MustCompile(`Q(\d+):`)
	fallbackMarkerRe = regexp.MustCompile(`^Q\d+:`)
)

// Answers parses raw into a map keyed by the full question text. Every
// question in qs is present in the result; questions without a usable answer
// map to "". If the marker scan recovers answers for fewer than half of the
// questions, a line-oriented fallback scan replaces its result entirely.
func Answers(raw string, qs []string) map[string]string {
	answers := markerScan(raw, qs)
	if len(answers)*2 < len(qs) {
		answers = lineScan(raw, qs)
	}
	for _, q := range qs {
		if _, ok := answers[q]; !ok {
			answers[q] = ""
		}
	}
	return answers
}

// markerScan finds every "Q<n>:" marker and treats the text up to the next
// marker (or end of input) as the candidate answer for question n. When a
// question number appears more than once the longest candidate wins.
func markerScan(raw string, qs []string) map[string]string {
	answers := make(map[string]string)
	locs := markerRe.FindAllStringSubmatchIndex(raw, -1)
	for i, loc := range locs {
		n, err := strconv.Atoi(raw[loc[2]:loc[3]])
		if err != nil || n < 1 || n > len(qs) {
			continue
		}
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		content := strings.TrimSpace(raw[loc[1]:end])
		if content == "" {
			continue
		}
		question := qs[n-1]
		if isQuestionEcho(content, question) {
			continue
		}
		if existing, ok := answers[question]; !ok || len(content) > len(existing) {
			answers[question] = stripEchoedQuestion(content, question)
		}
	}
	return answers
}

// lineScan is the fallback: walk the response line by line, starting a new
// answer at each line that begins with a marker and folding every other line
// into the answer being accumulated. First occurrence of a question number
// wins here, since later duplicates tend to be the model restating itself.
func lineScan(raw string, qs []string) map[string]string {
	answers := make(map[string]string)
	seen := make(map[int]bool)

	current := 0
	var acc string
	flush := func() {
		if current == 0 || seen[current] {
			return
		}
		if acc == "" {
			return
		}
		answers[qs[current-1]] = strings.TrimSpace(acc)
		seen[current] = true
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if current != 0 && acc != "" {
				acc += "\n"
			}
			continue
		}
		if fallbackMarkerRe.MatchString(line) {
			head, rest, _ := strings.Cut(line, ":")
			n, err := strconv.Atoi(head[1:])
			if err != nil || n < 1 || n > len(qs) {
				continue
			}
			content := strings.TrimSpace(rest)
			if isQuestionEcho(content, qs[n-1]) {
				continue
			}
			flush()
			current = n
			acc = content
			continue
		}
		if current != 0 {
			acc += " " + line
		}
	}
	flush()
	return answers
}

// isQuestionEcho reports whether content is the question handed back instead
// of an answer.
func isQuestionEcho(content, question string) bool {
	return echoesQuestionPrefix(content, question) || containsShortEcho(content, question)
}

// echoesQuestionPrefix reports whether content starts with the opening of the
// question, case-insensitively.
func echoesQuestionPrefix(content, question string) bool {
	return strings.HasPrefix(strings.ToLower(content), questionPrefix(question))
}

// containsShortEcho reports whether content contains the whole question and
// is too short to also hold a substantive answer.
func containsShortEcho(content, question string) bool {
	return strings.Contains(strings.ToLower(content), strings.ToLower(question)) &&
		len(content) < len(question)+echoSlack
}

// stripEchoedQuestion removes a leading restatement of the question, plus any
// separator left behind, from an otherwise substantive answer.
func stripEchoedQuestion(content, question string) string {
	if !echoesQuestionPrefix(content, question) {
		return content
	}
	cut := min(len(question), len(content))
	content = strings.TrimSpace(content[cut:])
	return strings.TrimSpace(strings.TrimPrefix(content, ":"))
}

func questionPrefix(question string) string {
	q := strings.ToLower(question)
	if len(q) > echoPrefixLen {
		q = q[:echoPrefixLen]
	}
	return q
}
