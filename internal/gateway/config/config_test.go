package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "WIKI_CONFIG", "LLM_PROVIDER", "LLM_RPS", "GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "MAX_FEATURES", "CACHE_TTL", "EXCLUDE_PATTERNS"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 15, cfg.Pipeline.MaxFeatures)
	assert.Equal(t, 10000, cfg.Pipeline.MaxTreeFiles)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Duration)
	assert.Equal(t, 15*time.Second, cfg.KeepAlive.Duration)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "wiki.yaml", `
port: "9000"
llm:
  provider: OpenAI
  rps: 5
pipeline:
  max_features: 8
  exclude_patterns: ["*.pb.go", "testdata/"]
cache:
  ttl: 10m
`)
	t.Setenv("MAX_FEATURES", "4")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 5.0, cfg.LLM.RPS)
	assert.Equal(t, 4, cfg.Pipeline.MaxFeatures)
	assert.Equal(t, []string{"*.pb.go", "testdata/"}, cfg.Pipeline.ExcludePatterns)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL.Duration)
	assert.Equal(t, 10, cfg.Pipeline.MaxFilesPerFeature)
}

func TestLoad_TOMLViaEnvPath(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "wiki.toml", `
keepalive_interval = "5s"

[pipeline]
feature_batch_size = 2
`)
	t.Setenv("WIKI_CONFIG", path)
	t.Setenv("PORT", "7000")
	t.Setenv("EXCLUDE_PATTERNS", "gen/, *.min.css")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Port)
	assert.Equal(t, 2, cfg.Pipeline.FeatureBatchSize)
	assert.Equal(t, 5*time.Second, cfg.KeepAlive.Duration)
	assert.Equal(t, []string{"gen/", "*.min.css"}, cfg.Pipeline.ExcludePatterns)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "wiki.json", `{}`))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("MAX_FEATURES", "many")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv("MAX_FEATURES", "")
	t.Setenv("CACHE_TTL", "forever")
	_, err = Load("")
	assert.Error(t, err)
}
