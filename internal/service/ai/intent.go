package ai

import (
	"strings"
	"unicode"
)

// Intent is the coarse classification of an incoming query.
type Intent string

const (
	IntentGreeting       Intent = "greeting"
	IntentAcknowledgment Intent = "acknowledgment"
	IntentQuestion       Intent = "question"
)

var greetingWords = map[string]bool{
	"hi": true, "hello": true, "hey": true, "hiya": true, "howdy": true,
	"greetings": true, "wassup": true, "yo": true, "morning": true,
}

var greetingPhrases = []string{"good morning", "good afternoon", "good evening", "what's up", "whats up"}

var acknowledgments = map[string]bool{
	"ok": true, "okay": true, "k": true, "got it": true, "thanks": true, "thank you": true,
	"thx": true, "understood": true, "great": true, "nice": true, "good": true, "cool": true,
	"perfect": true, "awesome": true, "sounds good": true, "impressive": true,
	"that's impressive": true, "thats impressive": true, "alright": true, "sure": true,
}

// 出现这些词说明用户在提问，而不只是打招呼。
var questionWords = map[string]bool{
	"what": true, "how": true, "why": true, "when": true, "where": true, "which": true, "who": true,
	"can": true, "could": true, "do": true, "does": true, "tell": true, "explain": true,
	"help": true, "service": true, "services": true, "offer": true, "about": true, "need": true,
	"want": true, "looking": true, "interested": true, "price": true, "pricing": true, "cost": true,
}

// ClassifyIntent decides whether query is a bare greeting (optionally with a
// self introduction), an acknowledgment, or a question. introducedName is the
// name extracted from the same query, if any.
func ClassifyIntent(query string, introducedName string) Intent {
	if strings.Contains(query, "?") {
		return IntentQuestion
	}

	normalized := normalize(query)
	if normalized == "" {
		return IntentQuestion
	}
	if acknowledgments[normalized] {
		return IntentAcknowledgment
	}

	words := strings.Fields(normalized)
	for _, w := range words {
		if questionWords[w] {
			return IntentQuestion
		}
	}
	if len(words) > 8 {
		return IntentQuestion
	}

	if greetingWords[words[0]] || introducedName != "" {
		return IntentGreeting
	}
	for _, phrase := range greetingPhrases {
		if strings.HasPrefix(normalized, phrase) {
			return IntentGreeting
		}
	}
	return IntentQuestion
}

// normalize lower-cases s, keeps apostrophes and collapses everything else
// that is not a letter or digit into single spaces.
func normalize(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			space = false
			continue
		}
		space = true
	}
	return b.String()
}
