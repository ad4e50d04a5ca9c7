package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercases", "Chaussures ROUGES", "chaussures rouges"},
		{"strips punctuation", "prix: 49,90 € !!", "prix"},
		{"strips digits", "iphone 15 pro", "iphone pro"},
		{"collapses whitespace", "a   b\t\nc", "a b c"},
		{"splits elisions", "l'écran d'ordinateur", "l écran d ordinateur"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestTokenizeDropsStopwordsAndShortTokens(t *testing.T) {
	tokens := Tokenize("les chaussures de la ville et un vélo")
	assert.Equal(t, []string{"chaussures", "ville", "vélo"}, tokens)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Nil(t, Tokenize(""))
	assert.Empty(t, Tokenize("le la de"))
}

func TestStemCollapsesVariants(t *testing.T) {
	assert.Equal(t, stem("chaussures"), stem("chaussure"))
	assert.Equal(t, stem("recommandation"), stem("recommandations"))
	assert.NotEqual(t, "chaussures", stem("chaussures"))
}

func TestStemKeepsShortTokens(t *testing.T) {
	// Stripping would leave fewer than three runes, so the token is kept.
	assert.Equal(t, "bus", stem("bus"))
}

func TestNormalize(t *testing.T) {
	withStem := Normalize("Les chaussures rouges", true)
	withoutStem := Normalize("Les chaussures rouges", false)
	assert.Equal(t, "chaussur roug", withStem)
	assert.Equal(t, "chaussures rouges", withoutStem)
}

func TestItemTextWeighting(t *testing.T) {
	item := domain.Item{
		Name:         "Vélo",
		CategoryName: "Sport",
		Description:  "Cadre aluminium",
	}
	text := ItemText(item)

	// Title appears three times, category twice, description once.
	assert.Equal(t, 3, countToken(text, stem("vélo")))
	assert.Equal(t, 2, countToken(text, stem("sport")))
	assert.Equal(t, 1, countToken(text, stem("cadre")))
}

func TestItemTextSkipsEmptyFields(t *testing.T) {
	text := ItemText(domain.Item{Name: "Vélo"})
	assert.Equal(t, 3, countToken(text, stem("vélo")))
}

func countToken(text, token string) int {
	n := 0
	for _, f := range splitFields(text) {
		if f == token {
			n++
		}
	}
	return n
}

func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' {
			if cur != "" {
				out = append(out, cur)
			}
			cur = ""
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
