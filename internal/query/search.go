package query

import (
	"strings"
	"unicode"
)

// Search is a parsed boolean full-text expression. Terms may be phrases of
// several words; keyword tokens such as "tag:golang" are single words.
type Search struct {
	// Must terms are all required
	Must []string
	// Should terms are alternatives; at least one is required when Must is empty
	Should []string
	// MustNot terms exclude a row
	MustNot []string
}

// Empty reports whether the search has no terms at all
func (s Search) Empty() bool {
	return len(s.Must) == 0 && len(s.Should) == 0 && len(s.MustNot) == 0
}

// ParseSearch reads a boolean-mode expression: "+term" is required, "-term"
// excluded, a bare term optional and double quotes group a phrase.
func ParseSearch(expr string) Search {
	var s Search
	runes := []rune(expr)
	for i := 0; i < len(runes); {
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		if i >= len(runes) {
			break
		}

		mode := byte(0)
		if runes[i] == '+' || runes[i] == '-' {
			mode = byte(runes[i])
			i++
		}

		var term string
		if i < len(runes) && runes[i] == '"' {
			end := i + 1
			for end < len(runes) && runes[end] != '"' {
				end++
			}
			term = string(runes[i+1 : end])
			i = end + 1
		} else {
			end := i
			for end < len(runes) && !unicode.IsSpace(runes[end]) {
				end++
			}
			term = string(runes[i:end])
			i = end
		}

		term = NormalizeTerm(term)
		if term == "" {
			continue
		}
		switch mode {
		case '+':
			s.Must = append(s.Must, term)
		case '-':
			s.MustNot = append(s.MustNot, term)
		default:
			s.Should = append(s.Should, term)
		}
	}
	return s
}

// NormalizeTerm lowercases a term and collapses inner whitespace
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.Join(strings.Fields(term), " "))
}

// Matches applies the search to a tokenised text
func (s Search) Matches(text string) bool {
	tokens := strings.Fields(strings.ToLower(text))
	for _, t := range s.MustNot {
		if containsPhrase(tokens, t) {
			return false
		}
	}
	for _, t := range s.Must {
		if !containsPhrase(tokens, t) {
			return false
		}
	}
	if len(s.Must) > 0 || len(s.Should) == 0 {
		return len(s.Must) > 0 || len(s.MustNot) > 0
	}
	for _, t := range s.Should {
		if containsPhrase(tokens, t) {
			return true
		}
	}
	return false
}

func containsPhrase(tokens []string, phrase string) bool {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return false
	}
	for i := 0; i+len(words) <= len(tokens); i++ {
		match := true
		for j, w := range words {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
