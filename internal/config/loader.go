package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "WIRECALL"
	envConfigDefaultPath = "WIRECALL_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load resolves the config file and layers it over Default, with WIRECALL_*
// env vars on top. A missing file is seeded with the defaults so operators
// have something to edit; the returned path is where it was looked for.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	if logger == nil {
		logger = &nopLogger
	}

	cfg := Default()
	path := resolveConfigPath(explicitPath)
	v := newViper(cfg, path)

	if err := readOrSeed(v, path, cfg, logger); err != nil {
		return cfg, path, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, path, nil
}

var nopLogger = zerolog.Nop()

func newViper(cfg Config, path string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// readOrSeed reads path into v. Only a malformed or unreadable file is an
// error; when the file is absent the defaults already registered on v apply.
func readOrSeed(v *viper.Viper, path string, cfg Config, logger *zerolog.Logger) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := writeDefaultConfig(path, cfg); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("config missing, running on defaults")
		return nil
	}
	logger.Info().Str("path", path).Msg("created default config")
	return nil
}

// setDefaults registers every key so env overrides resolve for nested fields too.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("ws.read_limit", cfg.WS.ReadLimit)
	v.SetDefault("ws.user_id_param", cfg.WS.UserIDParam)
	v.SetDefault("ws.insecure_skip_origin", cfg.WS.InsecureSkipOrigin)
	v.SetDefault("ws.rate_limit", cfg.WS.RateLimit)
	v.SetDefault("registry.shards", cfg.Registry.Shards)
	v.SetDefault("invite.enforce_declared_count", cfg.Invite.EnforceDeclaredCount)
}

// resolveConfigPath picks, in order: the explicit path, a file under
// WIRECALL_CONFIG_DEFAULT_PATH, then config.yaml in the working directory.
func resolveConfigPath(explicitPath string) string {
	switch {
	case explicitPath != "":
		return explicitPath
	case os.Getenv(envConfigDefaultPath) != "":
		base := os.Getenv(envConfigDefaultPath)
		if os.MkdirAll(base, 0o755) == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, defaultConfigName)
	}
	return defaultConfigName
}

func writeDefaultConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
