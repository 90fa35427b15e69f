// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL         string `yaml:"url"`
	MaxConns    int32  `yaml:"max_conns"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type TikHubConfig struct {
	Token   string        `yaml:"token"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type AIConfig struct {
	Provider        string `yaml:"provider"` // openai | gemini | multi | noop
	OpenAIKey       string `yaml:"openai_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	VisionModel     string `yaml:"vision_model"`
	SummaryModel    string `yaml:"summary_model"`
	SpeechModel     string `yaml:"speech_model"`
	LanguageHint    string `yaml:"language_hint"`
	PromptLanguage  string `yaml:"prompt_language"` // en | zh
	SummaryBudget   int    `yaml:"summary_token_budget"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls

	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Backend         string `yaml:"backend"` // gcs | local
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
	PublicBaseURL   string `yaml:"public_base_url"`
	LocalDir        string `yaml:"local_dir"`
}

type MediaConfig struct {
	FfmpegPath       string        `yaml:"ffmpeg_path"`
	FfprobePath      string        `yaml:"ffprobe_path"`
	ScratchDir       string        `yaml:"scratch_dir"`
	MaxDownloadBytes int64         `yaml:"max_download_bytes"`
	DownloadTimeout  time.Duration `yaml:"download_timeout"`
	DownloadAttempts int           `yaml:"download_attempts"`
	DownloadBackoff  time.Duration `yaml:"download_backoff"`
	AudioTimeout     time.Duration `yaml:"audio_timeout"`
	FrameTimeout     time.Duration `yaml:"frame_timeout"`
	FrameCount       int           `yaml:"frame_count"`
}

type OCRConfig struct {
	TesseractPath string        `yaml:"tesseract_path"`
	Languages     string        `yaml:"languages"`
	PSM           int           `yaml:"psm"`
	Timeout       time.Duration `yaml:"timeout"`
}

type WorkerConfig struct {
	Concurrency int           `yaml:"concurrency"`
	QueueSize   int           `yaml:"queue_size"`
	LockTTL     time.Duration `yaml:"lock_ttl"`
}

type SchedulerConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	StaleAfter        time.Duration `yaml:"stale_after"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	TikHub    TikHubConfig    `yaml:"tikhub"`
	AI        AIConfig        `yaml:"ai"`
	Storage   StorageConfig   `yaml:"storage"`
	Media     MediaConfig     `yaml:"media"`
	OCR       OCRConfig       `yaml:"ocr"`
	Worker    WorkerConfig    `yaml:"worker"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes YAML, fills secrets from the environment and applies defaults.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Storage.Backend == "gcs" && cfg.Storage.Bucket == "" {
		return nil, errors.New("storage.bucket is required for the gcs backend")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	envFallback(&cfg.TikHub.Token, "TIKHUB_API_TOKEN")
	envFallback(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	envFallback(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	envFallback(&cfg.Database.URL, "DATABASE_URL")
	envFallback(&cfg.Redis.Password, "REDIS_PASSWORD")
}

func envFallback(dst *string, key string) {
	if *dst != "" {
		return
	}
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.TikHub.BaseURL == "" {
		cfg.TikHub.BaseURL = "https://api.tikhub.io"
	}
	if cfg.TikHub.Timeout <= 0 {
		cfg.TikHub.Timeout = 30 * time.Second
	}

	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.VisionModel == "" {
		cfg.AI.VisionModel = "gpt-4o-mini"
	}
	if cfg.AI.SummaryModel == "" {
		cfg.AI.SummaryModel = cfg.AI.VisionModel
	}
	if cfg.AI.SpeechModel == "" {
		cfg.AI.SpeechModel = "whisper-1"
	}
	if cfg.AI.LanguageHint == "" {
		cfg.AI.LanguageHint = "zh"
	}
	if cfg.AI.PromptLanguage == "" {
		cfg.AI.PromptLanguage = "en"
	}
	if cfg.AI.SummaryBudget <= 0 {
		cfg.AI.SummaryBudget = 6000
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 4
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 60 * time.Second
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "./data/assets"
	}
	if cfg.Storage.PublicBaseURL == "" && cfg.Storage.Backend == "local" {
		cfg.Storage.PublicBaseURL = fmt.Sprintf("http://localhost:%d/assets", cfg.HTTP.Port)
	}

	if cfg.Media.FfmpegPath == "" {
		cfg.Media.FfmpegPath = "ffmpeg"
	}
	if cfg.Media.FfprobePath == "" {
		cfg.Media.FfprobePath = "ffprobe"
	}
	if cfg.Media.ScratchDir == "" {
		cfg.Media.ScratchDir = os.TempDir() + "/video-analysis"
	}
	if cfg.Media.MaxDownloadBytes <= 0 {
		cfg.Media.MaxDownloadBytes = 500 << 20
	}
	if cfg.Media.DownloadTimeout <= 0 {
		cfg.Media.DownloadTimeout = 120 * time.Second
	}
	if cfg.Media.DownloadAttempts < 2 {
		cfg.Media.DownloadAttempts = 3
	}
	if cfg.Media.DownloadBackoff <= 0 {
		cfg.Media.DownloadBackoff = 2 * time.Second
	}
	if cfg.Media.AudioTimeout <= 0 {
		cfg.Media.AudioTimeout = 60 * time.Second
	}
	if cfg.Media.FrameTimeout <= 0 {
		cfg.Media.FrameTimeout = 30 * time.Second
	}
	if cfg.Media.FrameCount <= 0 {
		cfg.Media.FrameCount = 6
	}

	if cfg.OCR.TesseractPath == "" {
		cfg.OCR.TesseractPath = "tesseract"
	}
	if cfg.OCR.Languages == "" {
		cfg.OCR.Languages = "eng+chi_sim+chi_tra"
	}
	if cfg.OCR.PSM == 0 {
		cfg.OCR.PSM = 6
	}
	if cfg.OCR.Timeout <= 0 {
		cfg.OCR.Timeout = 30 * time.Second
	}

	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = 2
	}
	if cfg.Worker.QueueSize <= 0 {
		cfg.Worker.QueueSize = cfg.Worker.Concurrency * 4
	}
	if cfg.Worker.LockTTL <= 0 {
		cfg.Worker.LockTTL = 30 * time.Minute
	}

	if cfg.Scheduler.ReconcileInterval <= 0 {
		cfg.Scheduler.ReconcileInterval = time.Minute
	}
	if cfg.Scheduler.StaleAfter <= 0 {
		cfg.Scheduler.StaleAfter = 45 * time.Minute
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
