package rag

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxKeywordTerms caps how many terms one question contributes.
const MaxKeywordTerms = 32

// Keywords splits text into lower-cased runs of letters and digits, in
// first-seen order without repeats. Single ASCII characters are dropped.
// Terms never contain quotes or operators, so stores may splice them into
// a full-text query.
func Keywords(text string) []string { return splitTerms(text, MaxKeywordTerms) }

// splitTerms is Keywords with an explicit cap; 0 means no cap.
func splitTerms(text string, limit int) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) == 1 && f[0] < utf8.RuneSelf {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
		if len(terms) == limit {
			break
		}
	}
	return terms
}

// MatchesKeywords counts how many of terms occur as words in text.
func MatchesKeywords(text string, terms []string) int {
	if len(terms) == 0 {
		return 0
	}
	words := make(map[string]struct{})
	for _, w := range splitTerms(text, 0) {
		words[w] = struct{}{}
	}
	n := 0
	for _, t := range terms {
		if _, ok := words[t]; ok {
			n++
		}
	}
	return n
}
