// Package config defines the service configuration and its loader.
// Values come from an optional config.yml plus environment variables
// (optionally via a .env file), with env taking precedence.
package config

import (
	"fmt"
	"time"

	"github.com/skillsenselab/tubescribe/internal/logger"
)

// Config is the root configuration for the service.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Logging   logger.Config   `yaml:"logging" mapstructure:"logging"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	YouTube   YouTubeConfig   `yaml:"youtube" mapstructure:"youtube"`
	SMTP      SMTPConfig      `yaml:"smtp" mapstructure:"smtp"`
	RateLimit RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string     `yaml:"host" mapstructure:"host"`
	Port         int        `yaml:"port" mapstructure:"port"`
	ReadTimeout  int        `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int        `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout  int        `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	CORS         CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// CORSConfig holds the CORS policy applied by the middleware chain.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
}

// ApplyDefaults sets a permissive default policy.
func (c *CORSConfig) ApplyDefaults() {
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	}
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *ServerConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	// Transcription requests block on several external calls; the write
	// timeout has to survive the whole pipeline.
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 1800
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	c.CORS.ApplyDefaults()
}

// Validate checks the configuration for invalid values.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	return nil
}

// DatabaseConfig holds SQLite database configuration.
type DatabaseConfig struct {
	Path         string `yaml:"path" mapstructure:"path"`
	MaxOpenConns int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	LogLevel     string `yaml:"log_level" mapstructure:"log_level"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *DatabaseConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "transcripts.db"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 2
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate checks that required fields are present.
func (c *DatabaseConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) must be <= max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// JWTSecret is the HMAC signing key for session tokens.
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	// LegacyPassword accepts the pre-multiuser single shared secret as a
	// bearer token, authenticating as the seeded admin. Empty disables it.
	LegacyPassword string `yaml:"legacy_password" mapstructure:"legacy_password"`
	// AdminEmail and AdminPassword seed the initial admin account when no
	// admin exists yet.
	AdminEmail    string `yaml:"admin_email" mapstructure:"admin_email"`
	AdminPassword string `yaml:"admin_password" mapstructure:"admin_password"`
	// BcryptCost is the bcrypt cost parameter.
	BcryptCost int `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *AuthConfig) ApplyDefaults() {
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
}

// Validate checks required fields.
func (c *AuthConfig) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set AUTH_JWT_SECRET)")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31 (got: %d)", c.BcryptCost)
	}
	return nil
}

// OpenAIConfig holds OpenAI API configuration.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// WhisperModel is the speech-to-text model identifier.
	WhisperModel string `yaml:"whisper_model" mapstructure:"whisper_model"`
	// CleaningModel is the chat model used for both refinement passes.
	// Cost/quality knob; gpt-4o-mini by default.
	CleaningModel string `yaml:"cleaning_model" mapstructure:"cleaning_model"`
	// Temperature is the sampling temperature for refinement calls.
	Temperature float32       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *OpenAIConfig) ApplyDefaults() {
	if c.WhisperModel == "" {
		c.WhisperModel = "whisper-1"
	}
	if c.CleaningModel == "" {
		c.CleaningModel = "gpt-4o-mini"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Minute
	}
}

// Validate checks required fields.
func (c *OpenAIConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("openai.api_key is required (set OPENAI_API_KEY)")
	}
	return nil
}

// YouTubeConfig holds audio acquisition configuration.
type YouTubeConfig struct {
	// DownloaderBinary is the yt-dlp executable (resolved via PATH).
	DownloaderBinary string `yaml:"downloader_binary" mapstructure:"downloader_binary"`
	// FFmpegBinary and FFprobeBinary drive chunking.
	FFmpegBinary  string `yaml:"ffmpeg_binary" mapstructure:"ffmpeg_binary"`
	FFprobeBinary string `yaml:"ffprobe_binary" mapstructure:"ffprobe_binary"`
	// TempDir is where downloaded audio and chunks are written.
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
	// CookieFile is passed to the downloader when present.
	CookieFile string `yaml:"cookie_file" mapstructure:"cookie_file"`
	// ChunkThresholdBytes is the file size above which audio is chunked.
	// Hard business rule: just under the transcription API's 25 MB cap.
	ChunkThresholdBytes int64 `yaml:"chunk_threshold_bytes" mapstructure:"chunk_threshold_bytes"`
	// ChunkDuration is the target duration of each chunk.
	ChunkDuration time.Duration `yaml:"chunk_duration" mapstructure:"chunk_duration"`
	// DownloadTimeout bounds one downloader invocation.
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *YouTubeConfig) ApplyDefaults() {
	if c.DownloaderBinary == "" {
		c.DownloaderBinary = "yt-dlp"
	}
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
	if c.FFprobeBinary == "" {
		c.FFprobeBinary = "ffprobe"
	}
	if c.ChunkThresholdBytes == 0 {
		c.ChunkThresholdBytes = 24 * 1024 * 1024
	}
	if c.ChunkDuration == 0 {
		c.ChunkDuration = 10 * time.Minute
	}
	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = 15 * time.Minute
	}
}

// SMTPConfig holds outbound mail configuration. Mail is optional: when
// username or password is missing the mailer runs disabled.
type SMTPConfig struct {
	Server   string `yaml:"server" mapstructure:"server"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
	AppName  string `yaml:"app_name" mapstructure:"app_name"`
	AppURL   string `yaml:"app_url" mapstructure:"app_url"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *SMTPConfig) ApplyDefaults() {
	if c.Server == "" {
		c.Server = "smtp.gmail.com"
	}
	if c.Port == 0 {
		c.Port = 587
	}
	if c.From == "" {
		c.From = c.Username
	}
	if c.AppName == "" {
		c.AppName = "YouTube Transcription Tool"
	}
	if c.AppURL == "" {
		c.AppURL = "http://localhost:8080"
	}
}

// Enabled reports whether outbound mail is configured.
func (c *SMTPConfig) Enabled() bool {
	return c.Username != "" && c.Password != ""
}

// RateLimitConfig holds abuse-protection limits.
type RateLimitConfig struct {
	LoginMax      int           `yaml:"login_max" mapstructure:"login_max"`
	LoginWindow   time.Duration `yaml:"login_window" mapstructure:"login_window"`
	RequestMax    int           `yaml:"request_max" mapstructure:"request_max"`
	RequestWindow time.Duration `yaml:"request_window" mapstructure:"request_window"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.LoginMax == 0 {
		c.LoginMax = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = 15 * time.Minute
	}
	if c.RequestMax == 0 {
		c.RequestMax = 3
	}
	if c.RequestWindow == 0 {
		c.RequestWindow = 24 * time.Hour
	}
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.Server.ApplyDefaults()
	c.Logging.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.OpenAI.ApplyDefaults()
	c.YouTube.ApplyDefaults()
	c.SMTP.ApplyDefaults()
	c.RateLimit.ApplyDefaults()
}

// Validate validates every section that has requirements.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.OpenAI.Validate()
}
