// Package artifact tracks every persisted build output in a JSON
// manifest: model files, embedding matrices and vector indexes. The
// manifest is the source of truth for what a deployment is serving and
// lets the status report detect missing or stale files.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/smartmarket-labs/retrieval-engine/internal/core/domain"
)

// ManifestFile is the manifest's file name inside the artifact directory.
const ManifestFile = "manifest.json"

// manifestVersion identifies the manifest schema.
const manifestVersion = "1.0"

// Entry describes one registered file.
type Entry struct {
	Path         string            `json:"path"`
	SizeBytes    int64             `json:"size_bytes"`
	RegisteredAt time.Time         `json:"registered_at"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// manifest is the persisted document.
type manifest struct {
	Version   string           `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Artifacts map[string]Entry `json:"artifacts"`
	Models    map[string]Entry `json:"models"`
	Indexes   map[string]Entry `json:"indexes"`
}

// Registry manages the manifest for one artifact directory. Safe for
// concurrent use; every mutation rewrites the manifest atomically.
type Registry struct {
	mu   sync.Mutex
	path string
	doc  manifest
	now  func() time.Time
}

// NewRegistry opens or creates the manifest under dir. An existing
// well-formed manifest is loaded; a corrupt one is an error so a partial
// deployment never goes unnoticed.
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{
		path: filepath.Join(dir, ManifestFile),
		now:  time.Now,
	}
	data, err := os.ReadFile(r.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		now := r.now().UTC()
		r.doc = manifest{
			Version:   manifestVersion,
			CreatedAt: now,
			UpdatedAt: now,
			Artifacts: map[string]Entry{},
			Models:    map[string]Entry{},
			Indexes:   map[string]Entry{},
		}
	case err != nil:
		return nil, fmt.Errorf("open manifest: %w", err)
	default:
		if err := json.Unmarshal(data, &r.doc); err != nil {
			return nil, fmt.Errorf("open manifest %s: %w", r.path, domain.ErrArtifactCorrupt)
		}
		if r.doc.Artifacts == nil {
			r.doc.Artifacts = map[string]Entry{}
		}
		if r.doc.Models == nil {
			r.doc.Models = map[string]Entry{}
		}
		if r.doc.Indexes == nil {
			r.doc.Indexes = map[string]Entry{}
		}
	}
	return r, nil
}

// RegisterArtifact upserts a generic artifact entry and persists the
// manifest. File size is captured at registration time.
func (r *Registry) RegisterArtifact(name, path string, extra map[string]string) error {
	return r.register(name, path, extra, func(m *manifest) map[string]Entry { return m.Artifacts })
}

// RegisterModel upserts a model entry (TF-IDF model, embedding matrix).
func (r *Registry) RegisterModel(name, path string, extra map[string]string) error {
	return r.register(name, path, extra, func(m *manifest) map[string]Entry { return m.Models })
}

// RegisterIndex upserts a vector index entry.
func (r *Registry) RegisterIndex(name, path string, extra map[string]string) error {
	return r.register(name, path, extra, func(m *manifest) map[string]Entry { return m.Indexes })
}

func (r *Registry) register(name, path string, extra map[string]string, section func(*manifest) map[string]Entry) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	section(&r.doc)[name] = Entry{
		Path:         path,
		SizeBytes:    info.Size(),
		RegisteredAt: r.now().UTC(),
		Extra:        extra,
	}
	r.doc.UpdatedAt = r.now().UTC()
	return r.persist()
}

// Validate walks every registered entry and reports missing files and
// the aggregate on-disk size. It never fails on a single missing file.
func (r *Registry) Validate() domain.ValidationReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := domain.ValidationReport{Valid: true}
	for _, section := range []map[string]Entry{r.doc.Artifacts, r.doc.Models, r.doc.Indexes} {
		for _, entry := range section {
			info, err := os.Stat(entry.Path)
			if err != nil {
				report.Valid = false
				report.MissingFiles = append(report.MissingFiles, entry.Path)
				continue
			}
			report.TotalSize += info.Size()
		}
	}
	sort.Strings(report.MissingFiles)
	return report
}

// Summary lists the registered entry names for the status report.
func (r *Registry) Summary() domain.ManifestSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	return domain.ManifestSummary{
		Version:   r.doc.Version,
		CreatedAt: r.doc.CreatedAt,
		UpdatedAt: r.doc.UpdatedAt,
		Artifacts: sortedKeys(r.doc.Artifacts),
		Models:    sortedKeys(r.doc.Models),
		Indexes:   sortedKeys(r.doc.Indexes),
	}
}

// Lookup returns the entry registered under name in any section.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, section := range []map[string]Entry{r.doc.Artifacts, r.doc.Models, r.doc.Indexes} {
		if entry, ok := section[name]; ok {
			return entry, true
		}
	}
	return Entry{}, false
}

func (r *Registry) persist() error {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ManifestFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("persist manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.doc); err != nil {
		tmp.Close()
		return fmt.Errorf("persist manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("persist manifest: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
