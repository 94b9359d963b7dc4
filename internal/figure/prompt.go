package figure

import (
	"fmt"
	"strings"

	"github.com/talkwith/talkwith/internal/questions"
	"github.com/talkwith/talkwith/internal/storage"
)

// BuildProfilePrompt asks the model to answer the whole question bank about
// one person, with numbered markers the extractor can recover.
func BuildProfilePrompt(name string, qs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert historian and biographer. I need comprehensive information about the historical figure: %s\n\n", name)
	fmt.Fprintf(&b, "Please answer ALL of the following questions about %s in detail. ", name)
	b.WriteString("Format your response so that each answer starts on its own line with the question number, like this:\n\n")
	b.WriteString("Q1: [your answer]\nQ2: [your answer]\n\n")
	b.WriteString("Questions:\n")
	for i, q := range qs {
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, q)
	}
	b.WriteString("\nPlease provide detailed, accurate answers to each question. If information is not available or uncertain, please note that. Be thorough and comprehensive.")
	return b.String()
}

// CharacterContext condenses a figure's answers into the background block
// injected into conversation prompts.
func CharacterContext(f storage.Figure) string {
	var parts []string
	add := func(label, value string) {
		if v := strings.TrimSpace(value); v != "" {
			parts = append(parts, label+": "+v)
		}
	}

	add("Name", f.Answers[questions.FullName])
	add("Time Period", f.Answers[questions.TimePeriod])
	add("Personality", firstAnswers(f.Answers, questions.PersonalityContext, 3))
	add("Voice and Speech", firstAnswers(f.Answers, questions.VoiceContext, 3))
	add("Profession", f.Answers[questions.Profession])
	add("Known For", f.Answers[questions.KnownFor])
	add("Quirks", f.Answers[questions.Quirks])
	add("Philosophy", f.Answers[questions.Philosophy])

	return strings.Join(parts, "\n")
}

// firstAnswers joins the first limit non-empty answers for the given
// question list.
func firstAnswers(answers map[string]string, qs []string, limit int) string {
	var picked []string
	for _, q := range qs {
		a := strings.TrimSpace(answers[q])
		if a == "" {
			continue
		}
		picked = append(picked, a)
		if len(picked) == limit {
			break
		}
	}
	return strings.Join(picked, " ")
}

// buildConversationPrompt embeds character context and recent history around
// the user's message, ending with the figure's name so the model continues
// in first person.
func buildConversationPrompt(f storage.Figure, message string, history []Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. Respond as this historical figure would, based on the following information about them:\n\n", f.Name)
	b.WriteString(CharacterContext(f))
	b.WriteString("\n\nImportant guidelines:\n")
	b.WriteString("- Respond in character, using their personality, speech patterns, and vocabulary\n")
	b.WriteString("- Draw on their knowledge, experiences, and the time period they lived in\n")
	b.WriteString("- Stay consistent with their known views and mannerisms\n")
	b.WriteString("- Keep responses conversational and engaging\n\n")
	for _, t := range recentTurns(history, historyWindow) {
		fmt.Fprintf(&b, "%s: %s\n", capitalizeRole(t.Role), t.Content)
	}
	fmt.Fprintf(&b, "User: %s\n\n%s:", message, f.Name)
	return b.String()
}

// BuildAgentSystemPrompt is the persona prompt installed on a spoken agent.
func BuildAgentSystemPrompt(name, voiceSummary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You ARE %s. You are not an assistant, helper, or AI pretending to be them. You are this person, speaking from your own life and times.\n\n", name)
	if s := strings.TrimSpace(voiceSummary); s != "" {
		fmt.Fprintf(&b, "How you speak: %s\n\n", s)
	}
	b.WriteString("CRITICAL INSTRUCTIONS:\n")
	b.WriteString("- Speak with the pride and confidence of your accomplishments\n")
	b.WriteString("- Use your exact vocabulary, phrases, and manner of speaking\n")
	b.WriteString("- Show genuine pride in your work and achievements\n")
	b.WriteString("- Defend your legacy and ideas when challenged\n")
	b.WriteString("- You are not humble about what you know to be true\n")
	b.WriteString("- Never use modern slang or anachronistic language\n")
	b.WriteString("- Keep every reference period-appropriate to your lifetime\n")
	b.WriteString("- Let your authentic personality show, flaws included\n")
	b.WriteString("- Answer every question as YOU would, not as a narrator describing you\n\n")
	fmt.Fprintf(&b, "You speak with the authority, knowledge, and character of %s. Never break character or acknowledge being anything other than this person.", name)
	return b.String()
}

// FirstMessage is the greeting a newly created spoken agent opens with.
func FirstMessage(name string) string {
	return fmt.Sprintf("Hello, I am %s. How may I assist you today?", name)
}

func capitalizeRole(role string) string {
	if role == "" {
		return ""
	}
	return strings.ToUpper(role[:1]) + strings.ToLower(role[1:])
}
