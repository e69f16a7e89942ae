package entity

import (
	"regexp"
	"strings"
)

// Patterns is the rule set an Extractor applies. Name must expose the candidate
// in its first capture group; Contact patterns are tried in order and the whole
// match is returned.
type Patterns struct {
	Name    *regexp.Regexp
	Contact []*regexp.Regexp
}

// 引导短语只对自身忽略大小写，名字本身必须首字母大写。
var nameCues = []string{
	"my name is",
	"i'm",
	"i am",
	"this is",
	"name is",
	"name:",
	"name-",
	"myself",
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\+?1?\d{9,15}`)
	namePattern  = buildNamePattern(nameCues)
)

func buildNamePattern(cues []string) *regexp.Regexp {
	quoted := make([]string, len(cues))
	for i, cue := range cues {
		quoted[i] = regexp.QuoteMeta(cue)
	}
	return regexp.MustCompile(`(?i:` + strings.Join(quoted, "|") + `)\s+([A-Z][A-Za-z\-']{1,40})`)
}

// DefaultPatterns returns the cue-phrase name rule and the email-then-phone contact rules.
func DefaultPatterns() Patterns {
	return Patterns{
		Name:    namePattern,
		Contact: []*regexp.Regexp{emailPattern, phonePattern},
	}
}

// Result holds whatever Extract found; empty strings mean no match.
type Result struct {
	Name    string
	Contact string
}

// Extractor scans free text for identity signals. It is stateless and safe for
// concurrent use.
type Extractor struct {
	patterns Patterns
}

// New returns an Extractor applying p.
func New(p Patterns) *Extractor {
	return &Extractor{patterns: p}
}

// Default returns an Extractor using DefaultPatterns.
func Default() *Extractor {
	return New(DefaultPatterns())
}

// ExtractName returns the first name introduced by a cue phrase.
func (e *Extractor) ExtractName(text string) (string, bool) {
	if e.patterns.Name == nil {
		return "", false
	}
	m := e.patterns.Name.FindStringSubmatch(text)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// ExtractContact returns the first email address, or failing that the first
// phone number, found in text.
func (e *Extractor) ExtractContact(text string) (string, bool) {
	for _, p := range e.patterns.Contact {
		if m := p.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}

// Extract runs both rules over text.
func (e *Extractor) Extract(text string) Result {
	var r Result
	r.Name, _ = e.ExtractName(text)
	r.Contact, _ = e.ExtractContact(text)
	return r
}
