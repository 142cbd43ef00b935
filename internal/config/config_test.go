package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intake.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  type: local
  path: /srv/intake/incoming
database:
  path: /srv/intake/intake.db
batch:
  size: 25
  concurrency: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/intake/incoming", cfg.Storage.Path)
	assert.Equal(t, "/srv/intake/intake.db", cfg.Database.Path)
	assert.Equal(t, 25, cfg.Batch.Size)
	assert.Equal(t, 3, cfg.Batch.Concurrency)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: ./other.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./other.db", cfg.Database.Path)
	assert.Equal(t, DefaultStoragePath, cfg.Storage.Path)
	assert.Equal(t, DefaultBatchSize, cfg.Batch.Size)
	assert.Equal(t, DefaultConcurrency, cfg.Batch.Concurrency)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"unsupported storage type", "storage:\n  type: s3\n  path: bucket\n"},
		{"zero batch size", "batch:\n  size: 0\n"},
		{"negative concurrency", "batch:\n  concurrency: -1\n"},
		{"malformed yaml", "storage: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.contents))
			assert.Error(t, err)
		})
	}
}
