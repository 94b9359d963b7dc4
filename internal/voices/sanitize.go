package voices

import (
	"regexp"
	"strings"
	"unicode"
)

const sanitizedMaxLen = 500

// neutralDescription is used when nothing voice-related survives filtering.
const neutralDescription = "A clear, natural speaking voice with good enunciation."

// allowedCapitalized are capitalized words that are not treated as names.
var allowedCapitalized = map[string]struct{}{
	"the": {}, "and": {}, "was": {}, "were": {}, "his": {}, "her": {},
	"their": {}, "voice": {}, "speaking": {}, "tone": {}, "accent": {}, "they": {},
}

// voiceKeywords mark sentences worth keeping in a sanitized description.
var voiceKeywords = []string{
	"baritone", "tenor", "bass", "soprano", "alto",
	"deep", "high", "low", "pitch", "tone", "timbre",
	"smooth", "rough", "gritty", "clear", "muffled", "resonant", "nasal", "breathy",
	"powerful", "soft", "quiet", "loud",
	"vibrato", "tremolo", "staccato", "legato",
	"slow", "fast", "quick", "measured", "deliberate",
	"accent", "dialect", "pronunciation", "enunciation",
	"southern", "northern", "british", "american", "english", "drawl", "twang", "lilt",
	"cadence", "rhythm", "monotone", "expressive", "animated", "flat",
	"warm", "cold", "harsh", "gentle", "mellow",
	"young", "mature", "aged", "elderly",
	"weak", "strong", "range", "versatile", "distinctive",
}

// midSentenceNameRe matches a capitalized word sandwiched between lowercase
// text, which in this context is almost always a proper name the provider
// rejects.
var midSentenceNameRe = regexp.MustCompile(`\s+[A-Z][a-z]{2,}\s+([a-z])`)

// SanitizeDescription rewrites a voice summary into something the voice
// design API accepts: proper names stripped, only voice-relevant sentences
// kept, capped at 500 characters.
func SanitizeDescription(description string) string {
	kept := dropNameWords(description)
	result := keepVoiceSentences(kept)
	if result == "" {
		if found := foundKeywords(strings.ToLower(description)); len(found) > 0 {
			result = "A voice with " + strings.Join(found, ", ") + " characteristics."
		} else {
			result = neutralDescription
		}
	}
	result = midSentenceNameRe.ReplaceAllString(result, " $1")
	result = strings.Join(strings.Fields(result), " ")
	if len(result) > sanitizedMaxLen {
		result = result[:sanitizedMaxLen]
	}
	return result
}

// dropNameWords removes capitalized words that look like proper names.
func dropNameWords(s string) string {
	var kept []string
	for _, word := range strings.Fields(s) {
		clean := strings.ToLower(strings.Trim(word, `.,;:!?()[]{}"'`))
		if len(clean) > 2 && startsUpper(word) {
			if _, ok := allowedCapitalized[clean]; !ok {
				continue
			}
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// keepVoiceSentences returns up to three sentences containing a voice keyword.
func keepVoiceSentences(s string) string {
	var picked []string
	for sentence := range strings.SplitSeq(s, ".") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		lower := strings.ToLower(sentence)
		for _, kw := range voiceKeywords {
			if strings.Contains(lower, kw) {
				picked = append(picked, sentence)
				break
			}
		}
		if len(picked) == 3 {
			break
		}
	}
	return strings.Join(picked, ". ")
}

// foundKeywords returns up to five voice keywords present in lower.
func foundKeywords(lower string) []string {
	var found []string
	for _, kw := range voiceKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
			if len(found) == 5 {
				break
			}
		}
	}
	return found
}

func startsUpper(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}
