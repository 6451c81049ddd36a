package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PRESTASI_"

// Load builds a Config. Precedence, low to high: defaults, .env, YAML file (PRESTASI_CONFIG), env.
// Variables already present in the environment win over .env entries.
func Load() (*Config, error) {
	envFile := os.Getenv(envPrefix + "ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, envFile, err)
	}

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// PRESTASI_DB_DRIVER -> db_driver; list keys are comma separated
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if _, ok := listKeys[key]; ok {
			return key, splitCSV(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var listKeys = map[string]struct{}{
	"cors_origins_online":  {},
	"cors_origins_offline": {},
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) Validate() error {
	var problems []string
	if c.HTTPAddr == "" {
		problems = append(problems, "http_addr must not be empty")
	}
	if c.Mode != ModeOffline && c.Mode != ModeOnline {
		problems = append(problems, fmt.Sprintf("mode must be offline or online, got %q", c.Mode))
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		problems = append(problems, fmt.Sprintf("db_driver must be sqlite or postgres, got %q", c.DBDriver))
	}
	if c.AuthSecret == "" {
		problems = append(problems, "auth_secret must not be empty")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "token_ttl must be positive")
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		problems = append(problems, fmt.Sprintf("log_format must be json or console, got %q", c.LogFormat))
	}
	if c.TracingExporter != "" && c.TracingExporter != "stdout" {
		problems = append(problems, fmt.Sprintf("unknown tracing_exporter %q", c.TracingExporter))
	}
	if c.RankingCacheSize < 1 {
		problems = append(problems, "ranking_cache_size must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
