package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings maps flat environment variable names onto nested config
// keys. Only variables listed here override file values; the names match
// the original deployment's .env contract.
var envBindings = map[string]string{
	"PORT":            "server.port",
	"LOG_LEVEL":       "logging.level",
	"LOG_FORMAT":      "logging.format",
	"DATABASE_PATH":   "database.path",
	"AUTH_JWT_SECRET": "auth.jwt_secret",
	"APP_PASSWORD":    "auth.legacy_password",
	"ADMIN_EMAIL":     "auth.admin_email",
	"ADMIN_PASSWORD":  "auth.admin_password",
	"OPENAI_API_KEY":  "openai.api_key",
	"CLEANING_MODEL":  "openai.cleaning_model",
	"YTDLP_BINARY":    "youtube.downloader_binary",
	"FFMPEG_BINARY":   "youtube.ffmpeg_binary",
	"FFPROBE_BINARY":  "youtube.ffprobe_binary",
	"COOKIE_FILE":     "youtube.cookie_file",
	"SMTP_SERVER":     "smtp.server",
	"SMTP_PORT":       "smtp.port",
	"SMTP_USERNAME":   "smtp.username",
	"SMTP_PASSWORD":   "smtp.password",
	"EMAIL_FROM":      "smtp.from",
	"APP_NAME":        "smtp.app_name",
	"APP_URL":         "smtp.app_url",
}

// LoaderOption customizes Load.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	configFile string
	envFile    string
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.envFile = path }
}

// Load reads configuration from an optional YAML file plus environment
// variables, applies defaults, and validates the result.
func Load(opts ...LoaderOption) (*Config, error) {
	var o loaderOptions
	for _, opt := range opts {
		opt(&o)
	}

	envFile := o.envFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()

	configFile := o.configFile
	if configFile == "" {
		for _, candidate := range []string{"config.yml", "cmd/tubescribe/config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				configFile = candidate
				break
			}
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	for env, key := range envBindings {
		if val, ok := os.LookupEnv(env); ok && val != "" {
			v.Set(key, val)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
