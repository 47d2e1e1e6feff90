package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "ucc.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ucc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("optimize: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Optimize)
	assert.Equal(t, Default().ErrorFormat, cfg.ErrorFormat)
}

func TestLoadRejectsUnknownErrorFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ucc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("error_format: xml\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
