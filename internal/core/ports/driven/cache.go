package driven

import (
	"context"
	"crypto/md5" //nolint:gosec // cache key fingerprint, not security
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// Cache key namespaces, one per serving path.
const (
	NamespaceRecommend = "recommendations"
	NamespaceSearch    = "search"
	NamespaceAsk       = "assistant"
)

// ResultCache is a keyed, TTL'd cache in front of the serving paths.
//
// The cache is strictly best-effort: implementations must swallow backend
// failures and present them as misses. The serving path has to work
// correctly with no backing cache at all, just slower.
type ResultCache interface {
	// Get returns the cached value for the key, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores the value under the key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// DeletePattern removes every key matching the glob pattern.
	DeletePattern(ctx context.Context, pattern string)

	// Stats reports cache health and hit counters for the status report.
	Stats(ctx context.Context) domain.CacheStats

	// Close releases resources.
	Close() error
}

// CacheKey is a typed, per-namespace cache request. Each implementation
// serializes its fields in a stable order so that identical parameter sets
// always produce identical keys.
type CacheKey interface {
	// Namespace returns the cache namespace for this key type.
	Namespace() string

	// Fields returns the canonical parameter serialization.
	Fields() string
}

// FormatKey renders the effective cache key: <prefix>:<namespace>:<8-hex-digest>.
func FormatKey(prefix string, key CacheKey) string {
	sum := md5.Sum([]byte(key.Fields())) //nolint:gosec // fingerprint only
	return fmt.Sprintf("%s:%s:%s", prefix, key.Namespace(), hex.EncodeToString(sum[:])[:8])
}

// NamespacePattern returns the glob matching every key in a namespace,
// used for bulk invalidation.
func NamespacePattern(prefix, namespace string) string {
	return fmt.Sprintf("%s:%s:*", prefix, namespace)
}

// RecommendKey identifies a recommendation request in the cache.
type RecommendKey struct {
	ItemID  int64
	K       int
	Diverse bool
}

// Namespace implements CacheKey.
func (k RecommendKey) Namespace() string { return NamespaceRecommend }

// Fields implements CacheKey.
func (k RecommendKey) Fields() string {
	return fmt.Sprintf("diverse=%t&item_id=%d&k=%d", k.Diverse, k.ItemID, k.K)
}

// SearchKey identifies a semantic search request in the cache.
type SearchKey struct {
	Query       string
	K           int
	CategoryIDs []int64
	MinPrice    *float64
	MaxPrice    *float64
}

// Namespace implements CacheKey.
func (k SearchKey) Namespace() string { return NamespaceSearch }

// Fields implements CacheKey.
// Category ids are sorted so that equivalent filter sets hash identically.
func (k SearchKey) Fields() string {
	cats := make([]int64, len(k.CategoryIDs))
	copy(cats, k.CategoryIDs)
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	catStrs := make([]string, len(cats))
	for i, c := range cats {
		catStrs[i] = strconv.FormatInt(c, 10)
	}

	return fmt.Sprintf("category_ids=%s&k=%d&max_price=%s&min_price=%s&query=%s",
		strings.Join(catStrs, ","), k.K, priceField(k.MaxPrice), priceField(k.MinPrice), k.Query)
}

// AskKey identifies an assistant question in the cache. The user
// context is part of the key: it is rendered into the generation
// prompt, so an answer personalized for one context must never be
// served to another.
type AskKey struct {
	Question string
	Context  map[string]string
}

// Namespace implements CacheKey.
func (k AskKey) Namespace() string { return NamespaceAsk }

// Fields implements CacheKey.
// Context pairs are sorted by key so that equivalent maps hash identically.
func (k AskKey) Fields() string {
	pairs := make([]string, 0, len(k.Context))
	for key, val := range k.Context {
		pairs = append(pairs, key+"="+val)
	}
	sort.Strings(pairs)
	return fmt.Sprintf("context=%s&question=%s", strings.Join(pairs, ";"), k.Question)
}

func priceField(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
