// Package textnorm cleans and tokenizes catalog text ahead of vectorization.
// It handles case folding, punctuation and digit stripping, stop-word
// removal, a light French stemmer, and the weighted composition of item
// descriptions.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// Field weights for the composite item text.
const (
	titleWeight       = 3
	categoryWeight    = 2
	descriptionWeight = 1
)

// minTokenLen drops tokens that carry no lexical signal.
const minTokenLen = 3

var multiSpace = regexp.MustCompile(`\s+`)

// Clean lower-cases the text and strips punctuation, digits and
// redundant whitespace.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case unicode.IsLetter(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
			// Elisions split into separate tokens: l'écran -> l écran.
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(multiSpace.ReplaceAllString(b.String(), " "))
}

// Tokenize cleans the text and splits it into tokens, dropping stop words
// and tokens shorter than three runes.
func Tokenize(text string) []string {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}
	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len([]rune(tok)) < minTokenLen {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Stem applies the light suffix stemmer to every token.
func Stem(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = stem(tok)
	}
	return out
}

// Normalize tokenizes the text, optionally stems it, and joins the tokens
// back into a single space-separated string.
func Normalize(text string, applyStem bool) string {
	tokens := Tokenize(text)
	if applyStem {
		tokens = Stem(tokens)
	}
	return strings.Join(tokens, " ")
}

// ItemText builds the weighted composite text for a catalog item:
// name three times, category name twice, description once, then normalized
// with stemming. Weighting by repetition biases term frequencies toward
// the title without a separate weighting pass.
func ItemText(item domain.Item) string {
	var parts []string
	if item.Name != "" {
		for i := 0; i < titleWeight; i++ {
			parts = append(parts, item.Name)
		}
	}
	if item.CategoryName != "" {
		for i := 0; i < categoryWeight; i++ {
			parts = append(parts, item.CategoryName)
		}
	}
	if item.Description != "" {
		for i := 0; i < descriptionWeight; i++ {
			parts = append(parts, item.Description)
		}
	}
	return Normalize(strings.Join(parts, " "), true)
}

// stem strips common French (and a few shared English) suffixes.
// It is deliberately cruder than a full snowball stemmer: the goal is
// collapsing singular/plural and verbal variants, not linguistic accuracy.
func stem(token string) string {
	runes := []rune(token)
	for _, suffix := range suffixes {
		sr := []rune(suffix)
		if len(runes)-len(sr) >= minTokenLen && strings.HasSuffix(token, suffix) {
			return string(runes[:len(runes)-len(sr)])
		}
	}
	return token
}

// Ordered longest-first so the most specific suffix wins.
var suffixes = []string{
	"issement", "issant", "atrice", "ations", "ation",
	"ements", "ement", "euses", "euse", "ables", "able",
	"istes", "iste", "ives", "ive", "eurs", "eur",
	"aux", "ées", "ée", "és", "é", "es", "e", "s",
}
