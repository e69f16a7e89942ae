// Package linkify rewrites URLs and bare domains in chat text into markdown links.
package linkify

import (
	"regexp"
	"strings"
)

var linkPattern = regexp.MustCompile(`https?://\S+|(?:www\.)?[A-Za-z0-9-]+\.[A-Za-z]{2,}`)

// Annotate replaces every absolute URL or domain-like token in text with
// "[match](url)". Tokens without an http prefix are linked over https.
// Matches are found in a single left-to-right pass and never overlap.
// Annotating already annotated text links the targets a second time.
func Annotate(text string) string {
	return linkPattern.ReplaceAllStringFunc(text, func(match string) string {
		return "[" + match + "](" + Normalize(match) + ")"
	})
}

// Normalize returns the URL a matched token points to.
func Normalize(match string) string {
	if strings.HasPrefix(match, "http") {
		return match
	}
	return "https://" + match
}

// Links returns the normalised targets Annotate would produce for text.
func Links(text string) []string {
	matches := linkPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = Normalize(m)
	}
	return out
}
