package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkdp.yaml")
	cfg := Default()
	cfg.Clang = "/opt/llvm/bin/clang"
	cfg.KFactor = 3

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestMergePrefersOverrideFieldsOverBase(t *testing.T) {
	base := Default()
	override := Config{Clang: "/custom/clang", KFactor: 5, EnableShadow: true}

	merged := Merge(base, override)
	assert.Equal(t, "/custom/clang", merged.Clang)
	assert.Equal(t, 5, merged.KFactor)
	assert.True(t, merged.EnableShadow)
	// Fields left zero on override fall back to base.
	assert.Equal(t, base.Klee, merged.Klee)
	assert.Equal(t, base.SearchHeuristic, merged.SearchHeuristic)
}

func TestMergeEmptyOverrideKeepsBase(t *testing.T) {
	base := Default()
	merged := Merge(base, Config{})
	assert.Equal(t, base, merged)
}
