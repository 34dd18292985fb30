// Package routing implements the core of the bridge: deciding which
// platforms receive a copy of an inbound message, forwarding to each target
// in isolation, and aggregating per-target outcomes.
//
// This file post-processes AI answers before they are forwarded onward.
package routing

import (
	"strings"
	"unicode"
)

// TruncationNotice is appended whenever an answer is cut at the hard cap.
const TruncationNotice = "\n\n[message truncated]"

// greetingWords is the fixed set recognised by the short-greeting heuristic.
var greetingWords = []string{
	"hi", "hello", "hey", "yo", "hola", "howdy", "sup", "hiya",
}

// Shaper applies the two administrator-configured length caps to AI answers.
// Both caps count runes. Zero or negative caps disable the respective rule.
type Shaper struct {
	// MaxResponseLength is the hard cap applied to every answer.
	MaxResponseLength int
	// SimpleGreetingMaxLength caps answers to short greetings, which tend to
	// provoke disproportionately long model output.
	SimpleGreetingMaxLength int
}

// Shape returns the answer to forward for the given user query. The greeting
// cap is applied first, the hard cap always applies last.
func (s Shaper) Shape(query, answer string) string {
	if s.SimpleGreetingMaxLength > 0 && isSimpleGreeting(query) {
		if r := []rune(answer); len(r) > s.SimpleGreetingMaxLength {
			answer = string(r[:s.SimpleGreetingMaxLength]) + "..."
		}
	}
	if s.MaxResponseLength > 0 {
		if r := []rune(answer); len(r) > s.MaxResponseLength {
			answer = string(r[:s.MaxResponseLength]) + TruncationNotice
		}
	}
	return answer
}

// isSimpleGreeting reports whether the query is a short message containing a
// known greeting as a whole word. Substring hits ("this", "yoga") do not
// count.
func isSimpleGreeting(query string) bool {
	if len([]rune(query)) >= 20 {
		return false
	}
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		for _, g := range greetingWords {
			if w == g {
				return true
			}
		}
	}
	return false
}
