package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ".archireview", cfg.PersistenceDir)
	assert.True(t, cfg.Excluded("node_modules"))
	assert.NotEmpty(t, cfg.Project)
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "archireview.yaml"), []byte(`
project: shop
excluded_dirs: [generated]
disabled_rules: [todo-comment]
rules:
  max_parameters: 3
spelling:
  words: [kubernetes]
`), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "shop", cfg.Project)
	assert.Equal(t, []string{"generated"}, cfg.ExcludedDirs)
	assert.False(t, cfg.Excluded("node_modules"))
	assert.Equal(t, []string{"todo-comment"}, cfg.DisabledRules)
	assert.Equal(t, 3, cfg.Rules.MaxParameters)
	assert.Equal(t, 3, cfg.Rules.MaxNestingDepth)
	assert.Equal(t, []string{"kubernetes"}, cfg.Spelling.Words)
	assert.Equal(t, ".archireview", cfg.PersistenceDir)
}

func TestLoadConfigJSONAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "archireview.json"),
		[]byte(`{"persistence_dir": ".state", "logging": {"level": "warn"}}`), 0o644))

	t.Setenv("ARCHIREVIEW_LOG_LEVEL", "debug")
	t.Setenv("ARCHIREVIEW_CONCURRENCY", "4")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ".state", cfg.PersistenceDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, filepath.Base(dir), cfg.Project)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "archireview.yaml"), []byte("rules: [unclosed"), 0o644))
	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestStoreDir(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("proj", ".archireview"), cfg.StoreDir("proj"))

	abs := filepath.Join(t.TempDir(), "state")
	cfg.PersistenceDir = abs
	assert.Equal(t, abs, cfg.StoreDir("proj"))
}
