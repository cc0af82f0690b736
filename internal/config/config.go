package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds all service settings. Values come from an optional YAML
// file (CONFIG_FILE) with environment variables taking precedence.
type Config struct {
	Port string `yaml:"port"`

	// Storage
	UploadDir      string        `yaml:"upload_dir"`
	WorkDir        string        `yaml:"work_dir"`
	OutputDir      string        `yaml:"output_dir"`
	SpoolDir       string        `yaml:"spool_dir"`
	Retention      time.Duration `yaml:"retention"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	HistoryDBPath  string        `yaml:"history_db"`

	// Pipeline
	FFmpegPath  string        `yaml:"ffmpeg_path"`
	FFprobePath string        `yaml:"ffprobe_path"`
	Workers     int           `yaml:"workers"`
	JobTimeout  time.Duration `yaml:"job_timeout"`

	// Recognition
	Engine          string  `yaml:"engine"` // whispercpp or openai
	WhisperPath     string  `yaml:"whisper_path"`
	WhisperModel    string  `yaml:"whisper_model"`
	OpenAIKey       string  `yaml:"-"`
	OpenAIModel     string  `yaml:"openai_model"`
	Language        string  `yaml:"language"`
	ChunkSeconds    float64 `yaml:"chunk_seconds"`
	OverlapSeconds  float64 `yaml:"overlap_seconds"`
	BoundaryMargin  float64 `yaml:"boundary_margin_seconds"`
	ConfidenceFloor float64 `yaml:"confidence_floor"`
	DedupWindow     float64 `yaml:"dedup_window_seconds"`

	// Cue shaping
	SubtitleFormat  string  `yaml:"subtitle_format"` // srt or ass
	CueMaxChars     int     `yaml:"cue_max_chars"`
	CueMaxWords     int     `yaml:"cue_max_words"`
	CueMaxDuration  float64 `yaml:"cue_max_duration_seconds"`
	CueMinDuration  float64 `yaml:"cue_min_duration_seconds"`
	CueSilenceBreak float64 `yaml:"cue_silence_break_seconds"`
}

// Load builds the configuration from CONFIG_FILE (if set) and environment
// variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:            "8080",
		UploadDir:       "data/uploads",
		WorkDir:         "data/work",
		OutputDir:       "data/results",
		Retention:       60 * time.Minute,
		MaxUploadBytes:  500 * 1024 * 1024,
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		Workers:         2,
		JobTimeout:      30 * time.Minute,
		Engine:          "whispercpp",
		WhisperPath:     "whisper-cli",
		WhisperModel:    "models/ggml-base.en.bin",
		OpenAIModel:     "whisper-1",
		ChunkSeconds:    120,
		OverlapSeconds:  5,
		BoundaryMargin:  2,
		ConfidenceFloor: 0.4,
		DedupWindow:     0.5,
		SubtitleFormat:  "srt",
		CueMaxChars:     42,
		CueMaxWords:     10,
		CueMaxDuration:  6,
		CueMinDuration:  1,
		CueSilenceBreak: 1.5,
	}
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.WorkDir = getEnv("WORK_DIR", cfg.WorkDir)
	cfg.OutputDir = getEnv("OUTPUT_DIR", cfg.OutputDir)
	cfg.SpoolDir = getEnv("SPOOL_DIR", cfg.SpoolDir)
	cfg.HistoryDBPath = getEnv("HISTORY_DB", cfg.HistoryDBPath)
	cfg.FFmpegPath = getEnv("FFMPEG_PATH", cfg.FFmpegPath)
	cfg.FFprobePath = getEnv("FFPROBE_PATH", cfg.FFprobePath)
	cfg.Engine = getEnv("STT_ENGINE", cfg.Engine)
	cfg.WhisperPath = getEnv("WHISPER_PATH", cfg.WhisperPath)
	cfg.WhisperModel = getEnv("WHISPER_MODEL", cfg.WhisperModel)
	cfg.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.OpenAIModel = getEnv("OPENAI_STT_MODEL", cfg.OpenAIModel)
	cfg.Language = getEnv("LANGUAGE", cfg.Language)
	cfg.SubtitleFormat = getEnv("SUBTITLE_FORMAT", cfg.SubtitleFormat)

	if v := os.Getenv("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("JOB_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.JobTimeout = d
		}
	}
	if v := os.Getenv("RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Retention = d
		}
	}
	if v := os.Getenv("CHUNK_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.ChunkSeconds = f
		}
	}
	if v := os.Getenv("OVERLAP_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.OverlapSeconds = f
		}
	}
}

func (c *Config) validate() error {
	switch c.Engine {
	case "whispercpp":
		if c.WhisperPath == "" {
			return fmt.Errorf("WHISPER_PATH is required for the whispercpp engine")
		}
		if c.WhisperModel == "" {
			return fmt.Errorf("WHISPER_MODEL is required for the whispercpp engine")
		}
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai engine. Set it as an environment variable:\n  Linux/Mac: export OPENAI_API_KEY=\"your_key\"")
		}
	default:
		return fmt.Errorf("unsupported STT engine: %s. Supported: whispercpp, openai", c.Engine)
	}

	if c.OverlapSeconds >= c.ChunkSeconds {
		return fmt.Errorf("overlap (%gs) must be shorter than chunk length (%gs)", c.OverlapSeconds, c.ChunkSeconds)
	}
	switch c.SubtitleFormat {
	case "srt", "ass":
	default:
		return fmt.Errorf("unsupported subtitle format: %s. Supported: srt, ass", c.SubtitleFormat)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
