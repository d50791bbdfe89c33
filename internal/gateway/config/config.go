// Package config loads server settings from .env, an optional YAML or TOML
// file and the environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string         `yaml:"port" toml:"port"`
	Env      string         `yaml:"env" toml:"env"`
	GitHub   GitHubConfig   `yaml:"github" toml:"github"`
	LLM      LLMConfig      `yaml:"llm" toml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline" toml:"pipeline"`
	Cache    CacheConfig    `yaml:"cache" toml:"cache"`
	// KeepAlive is the SSE comment interval.
	KeepAlive Duration `yaml:"keepalive_interval" toml:"keepalive_interval"`
}

type GitHubConfig struct {
	BaseURL       string   `yaml:"api_url" toml:"api_url"`
	Token         string   `yaml:"token" toml:"token"`
	Timeout       Duration `yaml:"timeout" toml:"timeout"`
	BlobCacheSize int      `yaml:"blob_cache_size" toml:"blob_cache_size"`
}

type LLMConfig struct {
	Provider    string   `yaml:"provider" toml:"provider"`
	Model       string   `yaml:"model" toml:"model"`
	APIKey      string   `yaml:"api_key" toml:"api_key"`
	MaxTokens   int      `yaml:"max_tokens" toml:"max_tokens"`
	RPS         float64  `yaml:"rps" toml:"rps"`
	Burst       int      `yaml:"burst" toml:"burst"`
	MaxAttempts int      `yaml:"max_attempts" toml:"max_attempts"`
	RetryDelay  Duration `yaml:"retry_delay" toml:"retry_delay"`
}

type PipelineConfig struct {
	MaxFeatures         int      `yaml:"max_features" toml:"max_features"`
	MaxFilesPerFeature  int      `yaml:"max_files_per_feature" toml:"max_files_per_feature"`
	FeatureBatchSize    int      `yaml:"feature_batch_size" toml:"feature_batch_size"`
	PrefetchConcurrency int      `yaml:"prefetch_concurrency" toml:"prefetch_concurrency"`
	ConfigMaxLines      int      `yaml:"config_max_lines" toml:"config_max_lines"`
	FeatureMaxLines     int      `yaml:"feature_max_lines" toml:"feature_max_lines"`
	MaxTreeFiles        int      `yaml:"max_tree_files" toml:"max_tree_files"`
	MaxTreePaths        int      `yaml:"max_tree_paths_in_prompt" toml:"max_tree_paths_in_prompt"`
	ExcludePatterns     []string `yaml:"exclude_patterns" toml:"exclude_patterns"`
}

type CacheConfig struct {
	TTL        Duration `yaml:"ttl" toml:"ttl"`
	MaxEntries int      `yaml:"max_entries" toml:"max_entries"`
}

// Duration decodes "15s"-style strings from YAML, TOML and env.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() Config {
	return Config{
		Port: ":8080",
		Env:  "local",
		GitHub: GitHubConfig{
			BaseURL:       "https://api.github.com",
			Timeout:       Duration{30 * time.Second},
			BlobCacheSize: 2048,
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			RPS:         2,
			Burst:       4,
			MaxAttempts: 3,
			RetryDelay:  Duration{time.Second},
		},
		Pipeline: PipelineConfig{
			MaxFeatures:         15,
			MaxFilesPerFeature:  10,
			FeatureBatchSize:    3,
			PrefetchConcurrency: 10,
			ConfigMaxLines:      120,
			FeatureMaxLines:     150,
			MaxTreeFiles:        10000,
			MaxTreePaths:        3000,
		},
		Cache: CacheConfig{
			TTL:        Duration{time.Hour},
			MaxEntries: 50,
		},
		KeepAlive: Duration{15 * time.Second},
	}
}

// Load builds the configuration. path may be empty, in which case
// WIKI_CONFIG is consulted; a missing .env is ignored.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = strings.TrimSpace(os.Getenv("WIKI_CONFIG"))
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.Port = normalizePort(cfg.Port)
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider)
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.GitHub.BaseURL, "GITHUB_API_URL")
	setString(&cfg.GitHub.Token, "GITHUB_TOKEN")
	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.Model, "LLM_MODEL")

	ints := map[string]*int{
		"LLM_BURST":                &cfg.LLM.Burst,
		"LLM_MAX_ATTEMPTS":         &cfg.LLM.MaxAttempts,
		"MAX_FEATURES":             &cfg.Pipeline.MaxFeatures,
		"MAX_FILES_PER_FEATURE":    &cfg.Pipeline.MaxFilesPerFeature,
		"FEATURE_BATCH_SIZE":       &cfg.Pipeline.FeatureBatchSize,
		"PREFETCH_CONCURRENCY":     &cfg.Pipeline.PrefetchConcurrency,
		"CONFIG_MAX_LINES":         &cfg.Pipeline.ConfigMaxLines,
		"FEATURE_MAX_LINES":        &cfg.Pipeline.FeatureMaxLines,
		"MAX_TREE_FILES":           &cfg.Pipeline.MaxTreeFiles,
		"MAX_TREE_PATHS_IN_PROMPT": &cfg.Pipeline.MaxTreePaths,
		"CACHE_MAX_ENTRIES":        &cfg.Cache.MaxEntries,
	}
	for name, dst := range ints {
		raw := strings.TrimSpace(os.Getenv(name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = v
	}

	if raw := strings.TrimSpace(os.Getenv("LLM_RPS")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("LLM_RPS: %w", err)
		}
		cfg.LLM.RPS = v
	}

	durations := map[string]*Duration{
		"CACHE_TTL":          &cfg.Cache.TTL,
		"KEEPALIVE_INTERVAL": &cfg.KeepAlive,
	}
	for name, dst := range durations {
		raw := strings.TrimSpace(os.Getenv(name))
		if raw == "" {
			continue
		}
		if err := dst.UnmarshalText([]byte(raw)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if raw := strings.TrimSpace(os.Getenv("EXCLUDE_PATTERNS")); raw != "" {
		cfg.Pipeline.ExcludePatterns = nil
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.Pipeline.ExcludePatterns = append(cfg.Pipeline.ExcludePatterns, p)
			}
		}
	}
	return nil
}

func providerKey(provider string) string {
	switch provider {
	case "openai":
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	case "claude", "anthropic":
		return strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	case "fake":
		return ""
	default:
		return firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")))
	}
}

func setString(dst *string, name string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":8080"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
