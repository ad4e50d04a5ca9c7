package driven

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatKeyShape(t *testing.T) {
	key := FormatKey("smartmarket", RecommendKey{ItemID: 42, K: 10})

	parts := strings.Split(key, ":")
	assert.Len(t, parts, 3)
	assert.Equal(t, "smartmarket", parts[0])
	assert.Equal(t, NamespaceRecommend, parts[1])
	assert.Len(t, parts[2], 8)
}

func TestFormatKeyDeterministic(t *testing.T) {
	a := FormatKey("p", SearchKey{Query: "vélo", K: 20, CategoryIDs: []int64{3, 1, 2}})
	b := FormatKey("p", SearchKey{Query: "vélo", K: 20, CategoryIDs: []int64{2, 3, 1}})

	// Category order must not affect the key.
	assert.Equal(t, a, b)
}

func TestFormatKeySensitiveToEveryParameter(t *testing.T) {
	base := SearchKey{Query: "vélo", K: 20}

	differing := []SearchKey{
		{Query: "vélo rouge", K: 20},
		{Query: "vélo", K: 10},
		{Query: "vélo", K: 20, CategoryIDs: []int64{1}},
		{Query: "vélo", K: 20, MinPrice: fptr(5)},
		{Query: "vélo", K: 20, MaxPrice: fptr(5)},
	}

	baseKey := FormatKey("p", base)
	for i, k := range differing {
		assert.NotEqual(t, baseKey, FormatKey("p", k), "variant %d", i)
	}
}

func TestMinAndMaxPriceHashDifferently(t *testing.T) {
	minK := FormatKey("p", SearchKey{Query: "q", K: 5, MinPrice: fptr(9)})
	maxK := FormatKey("p", SearchKey{Query: "q", K: 5, MaxPrice: fptr(9)})
	assert.NotEqual(t, minK, maxK)
}

func TestAskKeySeparatesUserContexts(t *testing.T) {
	plain := FormatKey("p", AskKey{Question: "livraison ?"})
	paris := FormatKey("p", AskKey{Question: "livraison ?", Context: map[string]string{"ville": "Paris"}})
	lyon := FormatKey("p", AskKey{Question: "livraison ?", Context: map[string]string{"ville": "Lyon"}})

	// A personalized answer must never be served under another context.
	assert.NotEqual(t, plain, paris)
	assert.NotEqual(t, paris, lyon)
}

func TestAskKeyContextDeterministic(t *testing.T) {
	ctx := map[string]string{"ville": "Paris", "langue": "fr"}
	a := FormatKey("p", AskKey{Question: "q", Context: ctx})
	b := FormatKey("p", AskKey{Question: "q", Context: map[string]string{"langue": "fr", "ville": "Paris"}})
	assert.Equal(t, a, b)
}

func TestNamespacePattern(t *testing.T) {
	assert.Equal(t, "p:search:*", NamespacePattern("p", NamespaceSearch))
}

func fptr(v float64) *float64 { return &v }
