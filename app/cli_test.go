package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, Version+"\n", out.String())
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "sweep", "migrate", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("CONFIG_ENV", "")
	assert.Equal(t, "configs/config.dev.yaml", resolveConfigPath())

	t.Setenv("CONFIG_ENV", "production")
	assert.Equal(t, "configs/config.prod.yaml", resolveConfigPath())

	t.Setenv("CONFIG_ENV", "staging")
	assert.Equal(t, "configs/config.staging.yaml", resolveConfigPath())

	t.Setenv("CONFIG_PATH", "/etc/cliparr.yaml")
	assert.Equal(t, "/etc/cliparr.yaml", resolveConfigPath())
}

func TestEnsureSecretPersistsGeneratedValue(t *testing.T) {
	cfg := testConfig(t)

	first, err := ensureSecret(cfg)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := ensureSecret(cfg)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cfg.Secret = "configured"
	got, err := ensureSecret(cfg)
	require.NoError(t, err)
	assert.Equal(t, "configured", got)
}

// Resources open once per process, so the full bootstrap is exercised by a single test.
func TestSweepCommandBootstrapsEmptyStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := "paths:\n" +
		"  config_dir: " + filepath.Join(dir, "config") + "\n" +
		"  clips_dir: " + filepath.Join(dir, "clips") + "\n" +
		"log:\n  level: warn\n" +
		"metrics:\n  enabled: false\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"sweep", "--config", cfgPath})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(dir, "config", "cliparr.db"))
	assert.DirExists(t, filepath.Join(dir, "clips"))
}
