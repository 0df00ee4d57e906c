// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	ImageProvider   string        `yaml:"image_provider"` // openai|gemini|hf|noop
	VoiceProvider   string        `yaml:"voice_provider"` // openai|noop
	TextModel       string        `yaml:"text_model"`
	ImageModel      string        `yaml:"image_model"`
	TTSModel        string        `yaml:"tts_model"`
	OpenAIKey       string        `yaml:"openai_key"`
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	GeminiModel     string        `yaml:"gemini_model"`
	HFToken         string        `yaml:"hf_token"`
	HFURL           string        `yaml:"hf_url"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent AI calls
	CallTimeout     time.Duration `yaml:"call_timeout"`
	MaxPromptTokens int           `yaml:"max_prompt_tokens"`
}

type GenerationConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxJitter      time.Duration `yaml:"max_jitter"`
	Throttle       time.Duration `yaml:"throttle"` // negative disables pacing
	MinNarration   int           `yaml:"min_narration"`
	DefaultTheme   string        `yaml:"default_theme"`
	DefaultVoice   string        `yaml:"default_voice"`
	GenerateLimit  int           `yaml:"generate_limit"`
	GenerateWindow time.Duration `yaml:"generate_window"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
}

type RenderConfig struct {
	FFmpegPath   string        `yaml:"ffmpeg_path"`
	FFprobePath  string        `yaml:"ffprobe_path"`
	WorkDir      string        `yaml:"work_dir"`
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	Workers      int           `yaml:"workers"`
	StaleAfter   time.Duration `yaml:"stale_after"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MaxFetchMB   int64         `yaml:"max_fetch_mb"`
	FontFile     string        `yaml:"font_file"` // optional drawtext font
}

type StorageConfig struct {
	BaseDir       string `yaml:"base_dir"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type VoicesConfig struct {
	CatalogPath string `yaml:"catalog_path"`
}

type PublishConfig struct {
	YouTube struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RefreshToken string `yaml:"refresh_token"`
		CategoryID   string `yaml:"category_id"`
	} `yaml:"youtube"`
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

type TrendsConfig struct {
	DefaultSubreddit string `yaml:"default_subreddit"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	AI         AIConfig         `yaml:"ai"`
	Generation GenerationConfig `yaml:"generation"`
	Render     RenderConfig     `yaml:"render"`
	Storage    StorageConfig    `yaml:"storage"`
	Voices     VoicesConfig     `yaml:"voices"`
	Publish    PublishConfig    `yaml:"publish"`
	Trends     TrendsConfig     `yaml:"trends"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the yaml file at path, overlays secrets from the
// environment (a .env file next to the binary is loaded first when present)
// and applies defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Generation.MaxAttempts < 1 {
		return nil, errors.New("generation.max_attempts must be >= 1")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Database.URL, "DATABASE_URL")
	set(&cfg.Redis.URL, "REDIS_URL")
	set(&cfg.Auth.JWTSecret, "JWT_SECRET")
	set(&cfg.AI.OpenAIKey, "OPENAI_API_KEY")
	set(&cfg.AI.GeminiKey, "GEMINI_API_KEY")
	set(&cfg.AI.HFToken, "HF_TOKEN")
	set(&cfg.Publish.YouTube.ClientID, "YOUTUBE_CLIENT_ID")
	set(&cfg.Publish.YouTube.ClientSecret, "YOUTUBE_CLIENT_SECRET")
	set(&cfg.Publish.YouTube.RefreshToken, "YOUTUBE_REFRESH_TOKEN")
	set(&cfg.Publish.Telegram.Token, "TELEGRAM_BOT_TOKEN")
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Minute
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.AI.ImageProvider == "" {
		cfg.AI.ImageProvider = "openai"
	}
	if cfg.AI.VoiceProvider == "" {
		cfg.AI.VoiceProvider = "openai"
	}
	if cfg.AI.TextModel == "" {
		cfg.AI.TextModel = "gpt-4o-mini"
	}
	if cfg.AI.ImageModel == "" {
		cfg.AI.ImageModel = "dall-e-3"
	}
	if cfg.AI.TTSModel == "" {
		cfg.AI.TTSModel = "tts-1"
	}
	if cfg.AI.GeminiModel == "" {
		cfg.AI.GeminiModel = "imagen-3.0-generate-002"
	}
	if cfg.AI.HFURL == "" {
		cfg.AI.HFURL = "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-xl-base-1.0"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 4
	}
	if cfg.AI.CallTimeout <= 0 {
		cfg.AI.CallTimeout = 60 * time.Second
	}
	if cfg.AI.MaxPromptTokens <= 0 {
		cfg.AI.MaxPromptTokens = 2000
	}

	g := &cfg.Generation
	if g.MaxAttempts == 0 {
		g.MaxAttempts = 3
	}
	if g.BaseDelay <= 0 {
		g.BaseDelay = time.Second
	}
	if g.MaxJitter <= 0 {
		g.MaxJitter = 250 * time.Millisecond
	}
	if g.Throttle < 0 {
		g.Throttle = 0
	} else if g.Throttle == 0 {
		g.Throttle = 6 * time.Second
	}
	if g.MinNarration <= 0 {
		g.MinNarration = 10
	}
	if g.DefaultTheme == "" {
		g.DefaultTheme = "cartoon"
	}
	if g.GenerateLimit <= 0 {
		g.GenerateLimit = 10
	}
	if g.GenerateWindow <= 0 {
		g.GenerateWindow = time.Hour
	}
	if g.LockTTL <= 0 {
		g.LockTTL = 5 * time.Minute
	}

	r := &cfg.Render
	if r.FFmpegPath == "" {
		r.FFmpegPath = "ffmpeg"
	}
	if r.FFprobePath == "" {
		r.FFprobePath = "ffprobe"
	}
	if r.WorkDir == "" {
		r.WorkDir = os.TempDir()
	}
	if r.Width <= 0 {
		r.Width = 720
	}
	if r.Height <= 0 {
		r.Height = 1280
	}
	if r.Workers <= 0 {
		r.Workers = 2
	}
	if r.StaleAfter <= 0 {
		r.StaleAfter = 30 * time.Minute
	}
	if r.FetchTimeout <= 0 {
		r.FetchTimeout = 30 * time.Second
	}
	if r.MaxFetchMB <= 0 {
		r.MaxFetchMB = 200
	}

	if cfg.Storage.BaseDir == "" {
		cfg.Storage.BaseDir = "./data"
	}
	if cfg.Publish.YouTube.CategoryID == "" {
		cfg.Publish.YouTube.CategoryID = "22"
	}
	if cfg.Trends.DefaultSubreddit == "" {
		cfg.Trends.DefaultSubreddit = "popular"
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
