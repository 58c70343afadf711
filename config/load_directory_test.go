package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"01-base.yaml":   "root: /data/memories\nlog_level: info\nprotected:\n  - \"*.lock\"\n",
		"02-team.json":   `{"prefix": "/team", "protected": ["*.lock", "archive/**"]}`,
		"03-local.yml":   "log_level: debug\nignore:\n  - \".*\"\n",
		"04-limits.toml": "max_file_size = 4096\n",
		"notes.txt":      "not a config file",
		"nested/x.yaml":  "root: /ignored\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg, err := LoadDirectory(dir)
	require.NoError(t, err)
	require.Equal(t, "/data/memories", cfg.Root)
	require.Equal(t, "/team", cfg.Prefix)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, []string{"*.lock", "archive/**"}, cfg.Protected)
	require.Equal(t, []string{".*"}, cfg.Ignore)
	require.Equal(t, int64(4096), cfg.MaxFileSize)
}

func TestLoadDirectory_Empty(t *testing.T) {
	_, err := LoadDirectory(t.TempDir())
	require.ErrorContains(t, err, "no config files")
}

func TestLoadDirectory_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("unknown_key: 1\n"), 0o644))
	_, err := LoadDirectory(dir)
	require.ErrorContains(t, err, "bad.yaml")
}

func TestLoad_Directory(t *testing.T) {
	t.Setenv(EnvRoot, "")
	t.Setenv(EnvPrefix, "")
	t.Setenv(EnvLogLevel, "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "memfs.yaml"), []byte("root: /srv/memories\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "/srv/memories", cfg.Root)
	require.Equal(t, "/memories", cfg.Prefix)
}

func TestMerge(t *testing.T) {
	base := &Config{
		Root:        "/a",
		Prefix:      "/memories",
		MaxFileSize: 10,
		Ignore:      []string{".*"},
	}
	override := &Config{
		Root:      "/b",
		Protected: []string{"core.md"},
		Ignore:    []string{".*", "*.bak"},
	}

	merged := Merge(base, override)
	require.Equal(t, "/b", merged.Root)
	require.Equal(t, "/memories", merged.Prefix)
	require.Equal(t, int64(10), merged.MaxFileSize)
	require.Equal(t, []string{"core.md"}, merged.Protected)
	require.Equal(t, []string{".*", "*.bak"}, merged.Ignore)

	// base is not modified
	require.Equal(t, "/a", base.Root)
	require.Equal(t, []string{".*"}, base.Ignore)
}
