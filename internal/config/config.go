// Package config loads ckmodal's settings from defaults, an optional .env
// file, an optional YAML file, CKMODAL_* environment variables and flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "CKMODAL"

// Config holds all configuration for the application
type Config struct {
	DBPath        string   `mapstructure:"db_path"`
	Port          int      `mapstructure:"port"`
	SDKURL        string   `mapstructure:"sdk_url"`
	PublicURL     string   `mapstructure:"public_url"`
	LogLevel      string   `mapstructure:"log_level"`
	LogFormat     string   `mapstructure:"log_format"`
	RedisURL      string   `mapstructure:"redis_url"`
	DefaultTokens []string `mapstructure:"default_tokens"`
	TokenFile     string   `mapstructure:"token_file"`
	Instance      string   `mapstructure:"instance"`
}

// Options says where to look for files. Empty fields use the defaults.
type Options struct {
	// ConfigFile is an explicit YAML file; it must exist when set.
	ConfigFile string
	// EnvFile defaults to ".env"; a missing file is ignored.
	EnvFile string
	Flags   *pflag.FlagSet
}

// flagKeys maps flag names onto config keys.
var flagKeys = map[string]string{
	"db":        "db_path",
	"port":      "port",
	"sdk-url":   "sdk_url",
	"log-level": "log_level",
	"instance":  "instance",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "./ckmodal.db")
	v.SetDefault("port", 8080)
	v.SetDefault("sdk_url", "")
	v.SetDefault("public_url", "http://localhost:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("redis_url", "")
	v.SetDefault("default_tokens", []string{"ICP", "ckBTC", "ckETH"})
	v.SetDefault("token_file", ".ckmodal-token")
	v.SetDefault("instance", "")
}

// Load loads configuration from environment variables and config files
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// Try to load .env file, but don't fail if it doesn't exist
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("ckmodal")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// It's okay if config file is not found, we'll use environment variables
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Env values arrive comma-separated, possibly with spaces
	cfg.DefaultTokens = splitList(strings.Join(cfg.DefaultTokens, ","))

	// Embed snippets load this server's own SDK unless told otherwise.
	if cfg.SDKURL == "" {
		cfg.SDKURL = SDKURL(cfg.PublicURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// NewLogger builds the process logger from the log settings.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// SDKURL is where a server reachable at publicURL serves ckpay.js.
func SDKURL(publicURL string) string {
	return strings.TrimRight(publicURL, "/") + "/ckpay.js"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
