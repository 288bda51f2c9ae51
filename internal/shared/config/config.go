package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// AppEnv represents the application environment
type AppEnv string

const (
	AppEnvLocal       AppEnv = "local"
	AppEnvDevelopment AppEnv = "development"
	AppEnvTesting     AppEnv = "testing"
	AppEnvProduction  AppEnv = "production"
)

var (
	ErrMissingBotToken       = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrMissingTwitterAPIKeys = errors.New("TWITTER_CONSUMER_KEY and TWITTER_CONSUMER_SECRET are required")
)

type Config struct {
	TelegramBotToken      string  `koanf:"telegram_bot_token"`
	TwitterConsumerKey    string  `koanf:"twitter_consumer_key"`
	TwitterConsumerSecret string  `koanf:"twitter_consumer_secret"`
	TwitterAPIURL         string  `koanf:"twitter_api_url"`
	TwitterStreamURL      string  `koanf:"twitter_stream_url"`
	StoragePath           string  `koanf:"storage_path"`
	DatabaseURL           string  `koanf:"database_url"`
	HTTPPort              string  `koanf:"http_port"`
	AllowedUsers          []int64 `koanf:"allowed_users"`
	AppEnv                AppEnv  `koanf:"app_env"`
}

// Load reads configuration from the first config file found in the working
// directory (yaml/json/toml), then overlays environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		switch ext := filepath.Ext(configFile); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Environment variables override config file values:
	// TELEGRAM_BOT_TOKEN -> telegram_bot_token
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	// Defaults
	if !k.Exists("twitter_api_url") {
		k.Set("twitter_api_url", "https://api.twitter.com")
	}
	if !k.Exists("twitter_stream_url") {
		k.Set("twitter_stream_url", "https://stream.twitter.com")
	}
	if !k.Exists("storage_path") {
		k.Set("storage_path", "./data")
	}
	if !k.Exists("http_port") {
		k.Set("http_port", "8080")
	}
	if !k.Exists("app_env") {
		k.Set("app_env", string(AppEnvProduction))
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	// koanf returns allowed_users as a string from env vars and as a slice
	// from config files.
	if allowedUsers := k.Get("allowed_users"); allowedUsers != nil {
		switch v := allowedUsers.(type) {
		case string:
			cfg.AllowedUsers = ParseAllowedUsers(v)
		case []interface{}:
			cfg.AllowedUsers = lo.FilterMap(v, func(item interface{}, _ int) (int64, bool) {
				switch val := item.(type) {
				case int64:
					return val, true
				case int:
					return int64(val), true
				case float64:
					return int64(val), true
				default:
					return 0, false
				}
			})
		}
	}

	if cfg.TelegramBotToken == "" {
		return nil, ErrMissingBotToken
	}
	if cfg.TwitterConsumerKey == "" || cfg.TwitterConsumerSecret == "" {
		return nil, ErrMissingTwitterAPIKeys
	}

	return &cfg, nil
}

// ParseAllowedUsers parses a comma-separated user id string into []int64
func ParseAllowedUsers(s string) []int64 {
	if s == "" {
		return []int64{}
	}
	parts := strings.Split(s, ",")
	return lo.FilterMap(parts, func(part string, _ int) (int64, bool) {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, false
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err == nil {
			return id, true
		}
		return 0, false
	})
}
