package tutor

import "strings"

// questionKeywords signal, during exposition, that the student is ready
// to practise.
var questionKeywords = []string{"question", "practice", "try", "test", "quiz"}

// answerRequestPhrases signal that the student wants the solution handed
// over rather than another hint.
var answerRequestPhrases = []string{
	"give me the answer",
	"just tell me",
	"what's the answer",
	"show me the answer",
	"i give up",
	"i don't know",
	"tell me how",
	"just show me",
}

// normalize lowercases text and folds typographic apostrophes so that
// "I don’t know" matches "i don't know".
func normalize(text string) string {
	return strings.ReplaceAll(strings.ToLower(text), "’", "'")
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// RequestsQuestion reports whether text asks to move on to practice.
func RequestsQuestion(text string) bool {
	return containsAny(normalize(text), questionKeywords)
}

// RequestsAnswer reports whether text explicitly asks for the answer.
func RequestsAnswer(text string) bool {
	return containsAny(normalize(text), answerRequestPhrases)
}
