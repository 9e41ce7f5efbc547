package app

import (
	"testing"

	"cliparr/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.ConfigDir = t.TempDir()
	cfg.Paths.ClipsDir = t.TempDir()
	cfg.Secret = ""
	return cfg
}
