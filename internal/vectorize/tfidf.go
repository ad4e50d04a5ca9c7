package vectorize

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// TF-IDF fitting parameters.
const (
	// DefaultMaxFeatures caps the vocabulary size.
	DefaultMaxFeatures = 5000

	// DefaultMinDF drops terms appearing in fewer documents than this.
	DefaultMinDF = 2

	// DefaultMaxDFRatio drops terms appearing in more than this fraction
	// of documents; such terms carry no discriminative signal.
	DefaultMaxDFRatio = 0.8
)

// TFIDF is a sparse lexical model over normalized item texts: a fitted
// vocabulary of unigrams and bigrams with smoothed inverse document
// frequencies. The model is immutable after Fit; retraining means fitting
// a fresh instance.
type TFIDF struct {
	vocab       map[string]int
	idf         []float64
	maxFeatures int
	minDF       int
	maxDFRatio  float64
	fitted      bool
}

// tfidfModel is the gob persistence form of a fitted model.
type tfidfModel struct {
	Vocab       map[string]int
	IDF         []float64
	MaxFeatures int
	MinDF       int
	MaxDFRatio  float64
}

// NewTFIDF creates an unfitted model with the default parameters.
func NewTFIDF() *TFIDF {
	return &TFIDF{
		maxFeatures: DefaultMaxFeatures,
		minDF:       DefaultMinDF,
		maxDFRatio:  DefaultMaxDFRatio,
	}
}

// Fit builds the vocabulary and IDF table from the corpus. Texts are
// expected to be pre-normalized (space-separated tokens).
func (t *TFIDF) Fit(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("tfidf fit: %w", domain.ErrEmptyCorpus)
	}

	df := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, term := range ngrams(text) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	n := len(texts)
	maxDF := int(t.maxDFRatio * float64(n))
	if maxDF < 1 {
		maxDF = 1
	}
	// With a tiny corpus the min-df floor would empty the vocabulary.
	minDF := t.minDF
	if n < minDF {
		minDF = 1
	}

	terms := make([]string, 0, len(df))
	for term, count := range df {
		if count < minDF || count > maxDF {
			continue
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return fmt.Errorf("tfidf fit: no terms survived frequency pruning: %w", domain.ErrEmptyCorpus)
	}

	// Cap the vocabulary at the most frequent terms, then fix a stable
	// alphabetical index order.
	if len(terms) > t.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if df[terms[i]] != df[terms[j]] {
				return df[terms[i]] > df[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:t.maxFeatures]
	}
	sort.Strings(terms)

	t.vocab = make(map[string]int, len(terms))
	t.idf = make([]float64, len(terms))
	for i, term := range terms {
		t.vocab[term] = i
		// Smoothed IDF, matching the usual sklearn formulation.
		t.idf[i] = math.Log((1+float64(n))/(1+float64(df[term]))) + 1.0
	}
	t.fitted = true
	return nil
}

// Fitted reports whether the model has been trained.
func (t *TFIDF) Fitted() bool { return t.fitted }

// Dimension returns the vocabulary size, 0 before Fit.
func (t *TFIDF) Dimension() int { return len(t.idf) }

// Transform computes the L2-normalized TF-IDF vector for a text.
// Returns domain.ErrNotReady before Fit.
func (t *TFIDF) Transform(text string) ([]float64, error) {
	if !t.fitted {
		return nil, fmt.Errorf("tfidf transform: %w", domain.ErrNotReady)
	}
	vec := make([]float64, len(t.idf))
	counts := make(map[int]int)
	total := 0
	for _, term := range ngrams(text) {
		if idx, ok := t.vocab[term]; ok {
			counts[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range counts {
		tf := float64(count) / float64(total)
		vec[idx] = tf * t.idf[idx]
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// Save persists the fitted model with gob, atomically.
func (t *TFIDF) Save(path string) error {
	if !t.fitted {
		return fmt.Errorf("tfidf save: %w", domain.ErrNotReady)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("tfidf save: %w", err)
	}
	defer os.Remove(tmp.Name())

	model := tfidfModel{
		Vocab:       t.vocab,
		IDF:         t.idf,
		MaxFeatures: t.maxFeatures,
		MinDF:       t.minDF,
		MaxDFRatio:  t.maxDFRatio,
	}
	if err := gob.NewEncoder(tmp).Encode(model); err != nil {
		tmp.Close()
		return fmt.Errorf("tfidf save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tfidf save: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("tfidf save: %w", err)
	}
	return nil
}

// LoadTFIDF restores a fitted model persisted by Save.
func LoadTFIDF(path string) (*TFIDF, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("tfidf load %s: %w", path, domain.ErrArtifactMissing)
		}
		return nil, fmt.Errorf("tfidf load %s: %w", path, err)
	}
	defer f.Close()

	var model tfidfModel
	if err := gob.NewDecoder(f).Decode(&model); err != nil {
		return nil, fmt.Errorf("tfidf load %s: %w", path, domain.ErrArtifactCorrupt)
	}
	if len(model.Vocab) != len(model.IDF) {
		return nil, fmt.Errorf("tfidf load %s: vocabulary/idf size mismatch: %w", path, domain.ErrArtifactCorrupt)
	}
	return &TFIDF{
		vocab:       model.Vocab,
		idf:         model.IDF,
		maxFeatures: model.MaxFeatures,
		minDF:       model.MinDF,
		maxDFRatio:  model.MaxDFRatio,
		fitted:      true,
	}, nil
}

// ngrams expands a normalized text into unigrams plus adjacent bigrams.
func ngrams(text string) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, 2*len(tokens)-1)
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}
