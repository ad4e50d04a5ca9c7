package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes into dir for the duration of the test, restoring the
// previous working directory on cleanup. (testing.T.Chdir requires Go 1.24.)
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	// Run from an empty directory so no project file is picked up.
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `
[engine]
artifact_dir = "/var/lib/smartmarket"
rebuild_window = "15m"

[embedding]
backend = "openai"
model = "text-embedding-3-small"
dimensions = 1536

[cache]
backend = "sqlite"
ttl = "30m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/smartmarket", cfg.Engine.ArtifactDir)
	assert.Equal(t, 15*time.Minute, cfg.Engine.RebuildWindow)
	assert.Equal(t, "openai", cfg.Embedding.Backend)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)

	// Untouched sections keep their defaults.
	assert.Equal(t, Default().Knowledge, cfg.Knowledge)
	assert.Equal(t, Default().Engine.CatalogDB, cfg.Engine.CatalogDB)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad embedding backend", "[embedding]\nbackend = \"carrier-pigeon\"\n"},
		{"zero dimensions", "[embedding]\ndimensions = 0\n"},
		{"overlap not below size", "[knowledge]\nchunk_size = 10\nchunk_overlap = 10\n"},
		{"bad cache backend", "[cache]\nbackend = \"redis\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("engine = [broken"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesAPIKeys(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SMARTMARKET_EMBEDDING_API_KEY", "env-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Embedding.APIKey)
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
