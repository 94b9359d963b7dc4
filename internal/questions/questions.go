// Package questions holds the fixed question bank used to build a
// historical figure profile. Order matters only for prompt construction;
// answers are keyed by the full question text.
package questions

// Questions referenced individually by other packages.
const (
	FullName    = "What is their full name and any known aliases or nicknames?"
	TimePeriod  = "What time period did they live in (specific years and era)?"
	KnownFor    = "What are they most famous or known for?"
	Profession  = "What profession, occupation, or role did they hold?"
	Quirks      = "What were their personal quirks, habits, or idiosyncrasies?"
	Philosophy  = "What were their philosophical views on life, death, and purpose?"
	VoiceSound  = "What did their voice sound like (tone, pitch, accent, quality)?"
	Personality = "What was their overall personality like?"
)

// bank is the full ordered question list sent upstream for every new figure.
var bank = []string{
	// Basic information
	FullName,
	"What is their date of birth and date of death (or current age if alive)?",
	TimePeriod,
	"Where were they born (city, country, region)?",
	"Where did they primarily live and work throughout their life?",
	"What was their nationality and cultural background?",

	// What they're known for
	KnownFor,
	"What are their primary achievements or accomplishments?",
	Profession,
	"What significant contributions did they make to their field or society?",
	"What works, inventions, or creations are they associated with?",
	"What historical events were they involved in or connected to?",

	// Physical characteristics and voice
	"What did they look like physically (height, build, distinctive features)?",
	"What was their typical appearance or style of dress?",
	VoiceSound,
	"Did they have any distinctive vocal characteristics or speech patterns?",
	"What was their speaking style (fast, slow, measured, animated)?",
	"Did they have any physical disabilities, conditions, or notable health issues?",

	// Personality and character
	Personality,
	"What were their key personality traits (both positive and negative)?",
	"How would you describe their temperament and demeanor?",
	"What were their core values and beliefs?",
	"What motivated them in life?",
	"How did they interact with others (social, reserved, charismatic, etc.)?",
	"What was their sense of humor like, if any?",

	// Quirks and habits
	Quirks,
	"Did they have any unusual routines, rituals, or daily practices?",
	"What were their hobbies, interests, or pastimes?",
	"Did they have any notable habits or mannerisms?",
	"What were their preferences in food, drink, or lifestyle?",
	"Did they have any superstitions or unusual beliefs?",

	// Scandals and controversies
	"Were they involved in any scandals or controversies?",
	"What were the major controversies or criticisms surrounding them?",
	"Did they have any enemies or notable conflicts?",
	"What were the darker aspects or negative aspects of their character?",
	"Were there any legal issues, trials, or legal problems in their life?",

	// Vernacular and speech patterns
	"What was their typical vocabulary and word choice like?",
	"Did they use any distinctive phrases, catchphrases, or expressions?",
	"What was their accent or dialect?",
	"How formal or informal was their speech?",
	"Did they use any specific terminology, jargon, or specialized language?",
	"What was their writing style like (if they wrote)?",
	"Did they have any speech impediments or unique speech characteristics?",

	// Relationships and social life
	"Who were the important people in their life (family, friends, colleagues)?",
	"What was their family background and upbringing like?",
	"Did they have romantic relationships, marriages, or significant partnerships?",
	"Who were their mentors, influences, or people they admired?",
	"Who were their contemporaries or people they interacted with?",
	"What was their relationship with the public or their audience?",

	// Education and background
	"What was their educational background?",
	"What was their socioeconomic background?",
	"What early life experiences shaped them?",
	"What challenges or obstacles did they face in their life?",

	// Legacy and impact
	"What is their historical legacy and impact?",
	"How are they remembered today?",
	"What myths, misconceptions, or common misunderstandings exist about them?",

	// Communication and expression
	"How did they prefer to communicate (written letters, speeches, conversations, etc.)?",
	"What were their most famous or memorable quotes or sayings?",
	"How did they express emotions (stoic, emotional, reserved, demonstrative)?",
	"Was there a difference between their public persona and private self?",
	"How did they handle criticism or negative feedback?",
	"What was their reaction to failure or setbacks?",
	"How did they celebrate success or achievements?",

	// Decision-making and work style
	"How did they make important decisions (impulsive, methodical, consultative, intuitive)?",
	"What were their work habits (morning person, night owl, workaholic, balanced)?",
	"How did they approach problem-solving?",
	"What was their relationship with authority (rebel, conformist, leader, follower)?",
	"How adaptable were they to change and new circumstances?",

	// Psychological and emotional depth
	"What were their greatest fears or anxieties?",
	"What kept them awake at night or worried them most?",
	"What were their deepest regrets, if any?",
	"What brought them the most joy or satisfaction?",
	"How did they cope with stress or pressure?",
	"What were their coping mechanisms during difficult times?",

	// Philosophical and spiritual
	Philosophy,
	"What were their spiritual or religious beliefs and practices?",
	"How did they view their place in the world or universe?",
	"What did they believe about human nature?",

	// Cultural and intellectual
	"What was their relationship with the arts (music, literature, visual arts)?",
	"What books, authors, or intellectual works influenced them?",
	"How did they engage with the culture and society of their time?",
	"What was their relationship with technology or innovation of their era?",
	"Did they travel extensively? Where and how did travel influence them?",

	// Health and aging
	"How did their health change over time?",
	"How did aging affect their work, personality, or outlook?",
	"What were their final years like?",
	"What were their last words or final thoughts (if documented)?",

	// Influence and impact on others
	"How did they influence or inspire people around them?",
	"What was their leadership style (if applicable)?",
	"How did they mentor or teach others?",
	"What was their impact on future generations?",

	// Context and environment
	"What was the political climate during their lifetime?",
	"What major social or cultural movements were happening during their era?",
	"How did historical events of their time shape them?",
	"What was daily life like during their time period?",
}

// Voice is the sub-list feeding the voice summary: answers that describe how
// the person sounded rather than what they did.
var Voice = []string{
	VoiceSound,
	"Did they have any distinctive vocal characteristics or speech patterns?",
	"What was their speaking style (fast, slow, measured, animated)?",
	"What was their typical vocabulary and word choice like?",
	"Did they use any distinctive phrases, catchphrases, or expressions?",
	"What was their accent or dialect?",
	"How formal or informal was their speech?",
	"Did they use any specific terminology, jargon, or specialized language?",
	"Did they have any speech impediments or unique speech characteristics?",
	"What were their most famous or memorable quotes or sayings?",
	"Did they have any notable habits or mannerisms?",
}

// Personality questions used when assembling conversation context.
var PersonalityContext = []string{
	Personality,
	"What were their key personality traits (both positive and negative)?",
	"How would you describe their temperament and demeanor?",
	"What were their core values and beliefs?",
	"What motivated them in life?",
	"How did they interact with others (social, reserved, charismatic, etc.)?",
	"What was their sense of humor like, if any?",
}

// Voice questions used when assembling conversation context (narrower than
// the summary list).
var VoiceContext = []string{
	VoiceSound,
	"What was their speaking style (fast, slow, measured, animated)?",
	"What was their typical vocabulary and word choice like?",
	"Did they use any distinctive phrases, catchphrases, or expressions?",
	"What was their accent or dialect?",
	"How formal or informal was their speech?",
	"Did they use any specific terminology, jargon, or specialized language?",
}

// All returns the full ordered question bank. Callers must not modify the
// returned slice.
func All() []string {
	return bank
}

// Count returns the number of questions in the bank.
func Count() int {
	return len(bank)
}
