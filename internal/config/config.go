package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	KeyAPIBaseURL     = "api.base_url"
	KeyAPITimeout     = "api.timeout"
	KeyPollInterval   = "notices.poll_interval"
	KeyStorageBackend = "storage.backend"
	KeyStoragePath    = "storage.path"
	KeyStorageDir     = "storage.dir"
	KeyRedisURL       = "storage.redis_url"
	KeyRedisPrefix    = "storage.redis_prefix"
	KeyPassPrefix     = "storage.pass_prefix"
	KeyLogLevel       = "log.level"

	configName = "config"
	configType = "toml"
	configDir  = ".hms"
	envPrefix  = "HMS"
)

type StorageBackend string

const (
	StorageTOML  StorageBackend = "toml"
	StorageFile  StorageBackend = "file"
	StorageRedis StorageBackend = "redis"
	// StorageChain uses Redis and falls back to the TOML document when Redis fails.
	StorageChain StorageBackend = "chain"
	// StoragePass uses the pass password store and falls back to the TOML document.
	StoragePass StorageBackend = "pass"
)

type Config struct {
	APIBaseURL     string
	APITimeout     time.Duration
	PollInterval   time.Duration
	StorageBackend StorageBackend
	StoragePath    string
	StorageDir     string
	RedisURL       string
	RedisPrefix    string
	PassPrefix     string
	LogLevel       slog.Level
}

// New returns a viper instance with defaults, ~/.hms/config.toml and HMS_* environment overrides.
// A missing config file is not an error.
func New(homeDir string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault(KeyAPIBaseURL, "http://127.0.0.1:8000")
	v.SetDefault(KeyAPITimeout, 15*time.Second)
	v.SetDefault(KeyPollInterval, 15*time.Second)
	v.SetDefault(KeyStorageBackend, string(StorageTOML))
	v.SetDefault(KeyStoragePath, filepath.Join(homeDir, configDir, "state.toml"))
	v.SetDefault(KeyStorageDir, filepath.Join(homeDir, configDir, "state"))
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyRedisPrefix, "hms:")
	v.SetDefault(KeyPassPrefix, "hms/state")
	v.SetDefault(KeyLogLevel, "warn")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(filepath.Join(homeDir, configDir))

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return v, nil
}

func Load(v *viper.Viper, homeDir string) (Config, error) {
	cfg := Config{
		APIBaseURL:     strings.TrimSpace(v.GetString(KeyAPIBaseURL)),
		APITimeout:     v.GetDuration(KeyAPITimeout),
		PollInterval:   v.GetDuration(KeyPollInterval),
		StorageBackend: StorageBackend(strings.ToLower(strings.TrimSpace(v.GetString(KeyStorageBackend)))),
		StoragePath:    expandHome(v.GetString(KeyStoragePath), homeDir),
		StorageDir:     expandHome(v.GetString(KeyStorageDir), homeDir),
		RedisURL:       strings.TrimSpace(v.GetString(KeyRedisURL)),
		RedisPrefix:    v.GetString(KeyRedisPrefix),
		PassPrefix:     strings.Trim(strings.TrimSpace(v.GetString(KeyPassPrefix)), "/"),
	}

	if cfg.APIBaseURL == "" {
		return Config{}, errors.New("api base url is empty")
	}
	if cfg.APITimeout <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", KeyAPITimeout)
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", KeyPollInterval)
	}

	switch cfg.StorageBackend {
	case StorageTOML, StorageFile, StoragePass:
	case StorageRedis, StorageChain:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("%s is required for storage backend %q", KeyRedisURL, cfg.StorageBackend)
		}
	default:
		return Config{}, fmt.Errorf("unknown storage backend %q (want toml, file, pass, redis or chain)", cfg.StorageBackend)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", KeyLogLevel, err)
	}
	cfg.LogLevel = level

	// Adapters that read viper directly see the expanded path.
	v.Set(KeyStoragePath, cfg.StoragePath)

	return cfg, nil
}

func expandHome(path, homeDir string) string {
	path = strings.TrimSpace(path)
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return os.ExpandEnv(path)
}
