package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Speech      SpeechConfig      `yaml:"speech"`
	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Summary     SummaryConfig     `yaml:"summary"`
	Line        LineConfig        `yaml:"line"`
	Delivery    DeliveryConfig    `yaml:"delivery"`
	Paths       PathsConfig       `yaml:"paths"`
	Cache       CacheConfig       `yaml:"cache"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Logging     LoggingConfig     `yaml:"logging"`
	Performance PerformanceConfig `yaml:"performance"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	AllowOrigin string `yaml:"allow_origin"`
}

type StorageConfig struct {
	// Backend is "gcs" or "memory"
	Backend         string        `yaml:"backend"`
	Bucket          string        `yaml:"bucket"`
	CredentialsFile string        `yaml:"credentials_file"`
	MaxCompose      int           `yaml:"max_compose"`
	UploadURLTTL    time.Duration `yaml:"upload_url_ttl"`
}

type SpeechConfig struct {
	LanguageCode string `yaml:"language_code"`
	Model        string `yaml:"model"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
}

type GeminiConfig struct {
	APIKeys []string `yaml:"api_keys"`
	Model   string   `yaml:"model"`
}

type SummaryConfig struct {
	Temperature        float32 `yaml:"temperature"`
	TopP               float32 `yaml:"top_p"`
	ShortMaxTokens     int32   `yaml:"short_max_tokens"`
	DetailMaxTokens    int32   `yaml:"detail_max_tokens"`
	// nil means unset; an explicit 0 summarizes every non-empty transcript
	MinTranscriptChars *int    `yaml:"min_transcript_chars"`
	DetailURLTTLDays   int     `yaml:"detail_url_ttl_days"`
	RenderDocx         bool    `yaml:"render_docx"`
}

type LineConfig struct {
	ChannelAccessToken string `yaml:"channel_access_token"`
}

type DeliveryConfig struct {
	// LockTTL enables stale lock takeover when positive
	LockTTL time.Duration `yaml:"lock_ttl"`
}

type PathsConfig struct {
	Data  string `yaml:"data"`
	Inbox string `yaml:"inbox"`
}

type CacheConfig struct {
	Path string `yaml:"path"`
}

type IngestConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PerformanceConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// Load reads the YAML file at path, applies environment overrides and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// applyEnv lets secrets come from the environment instead of the file
func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEYS"); v != "" {
		c.Gemini.APIKeys = splitList(v)
	}
	if v := os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"); v != "" {
		c.Line.ChannelAccessToken = v
	}
	if v := os.Getenv("GCS_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" && c.Storage.CredentialsFile == "" {
		c.Storage.CredentialsFile = v
	}
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

func (c *Config) Validate() error {
	if c.Storage.Backend == "" {
		c.Storage.Backend = "gcs"
	}
	switch c.Storage.Backend {
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.backend must be gcs or memory, got %q", c.Storage.Backend)
	}
	if len(c.Gemini.APIKeys) == 0 {
		return fmt.Errorf("gemini.api_keys is required")
	}
	if c.Ingest.Enabled && c.Paths.Inbox == "" {
		return fmt.Errorf("paths.inbox is required when ingest is enabled")
	}
	if c.Summary.MinTranscriptChars != nil && *c.Summary.MinTranscriptChars < 0 {
		return fmt.Errorf("summary.min_transcript_chars must not be negative")
	}
	if c.Delivery.LockTTL < 0 {
		return fmt.Errorf("delivery.lock_ttl must not be negative")
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.AllowOrigin == "" {
		c.Server.AllowOrigin = "*"
	}
	if c.Storage.MaxCompose <= 1 {
		c.Storage.MaxCompose = 32
	}
	if c.Storage.UploadURLTTL == 0 {
		c.Storage.UploadURLTTL = 15 * time.Minute
	}
	if c.Speech.LanguageCode == "" {
		c.Speech.LanguageCode = "ja-JP"
	}
	if c.Speech.Model == "" {
		c.Speech.Model = "latest_long"
	}
	if c.FFmpeg.BinaryPath == "" {
		c.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-pro"
	}
	if c.Summary.Temperature == 0 {
		c.Summary.Temperature = 0.2
	}
	if c.Summary.TopP == 0 {
		c.Summary.TopP = 0.9
	}
	if c.Summary.ShortMaxTokens == 0 {
		c.Summary.ShortMaxTokens = 2200
	}
	if c.Summary.DetailMaxTokens == 0 {
		c.Summary.DetailMaxTokens = 3200
	}
	if c.Summary.MinTranscriptChars == nil {
		n := 15
		c.Summary.MinTranscriptChars = &n
	}
	if c.Summary.DetailURLTTLDays == 0 {
		c.Summary.DetailURLTTLDays = 7
	}
	if c.Paths.Data == "" {
		c.Paths.Data = "/tmp/data"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = c.Paths.Data + "/jobs.sqlite"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Performance.MaxConcurrent == 0 {
		c.Performance.MaxConcurrent = 2
	}

	return nil
}

// DetailURLTTL is the lifetime of signed detail page links
func (c *Config) DetailURLTTL() time.Duration {
	return time.Duration(c.Summary.DetailURLTTLDays) * 24 * time.Hour
}
