package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 350, cfg.Rewrite.TermCountCutoff)
	assert.Equal(t, 0.1, cfg.Rewrite.DocCountPercent)
	assert.Equal(t, 1024, cfg.Search.MaxClauseCount)
	assert.Equal(t, "body", cfg.Search.DefaultField)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
rewrite:
  termCountCutoff: 64
  docCountPercent: 2.5
search:
  maxClauseCount: 512
indexer:
  numShards: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))
	t.Setenv("SP_REWRITE_DOC_COUNT_PERCENT", "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Rewrite.TermCountCutoff)
	assert.Equal(t, 5.0, cfg.Rewrite.DocCountPercent)
	assert.Equal(t, 512, cfg.Search.MaxClauseCount)
	assert.Equal(t, 2, cfg.Indexer.NumShards)
	// untouched sections keep their defaults
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRewriteConfig_WarningsDoNotClamp(t *testing.T) {
	rc := RewriteConfig{TermCountCutoff: -1, DocCountPercent: 150}

	assert.Len(t, rc.Warnings(), 2)
	assert.Equal(t, 150.0, rc.DocCountPercent)
	assert.Empty(t, RewriteConfig{TermCountCutoff: 350, DocCountPercent: 0.1}.Warnings())
}
