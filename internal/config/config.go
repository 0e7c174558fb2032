package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// CheckMode selects how a job's progress is checked.
type CheckMode string

const (
	// CheckStatus polls GET /status/{id}.
	CheckStatus CheckMode = "status"
	// CheckHead checks the download URL with HEAD.
	CheckHead CheckMode = "head"
)

// Config captures ferry's runtime settings.
type Config struct {
	ServerURL      string
	CheckMode      CheckMode
	AutoPoll       bool
	PollInterval   time.Duration
	PollTimeout    time.Duration
	RequestTimeout time.Duration
	DownloadDir    string
	LogDir         string
	LogLevel       string
	MetricsBind    string
}

const (
	defaultConfigPath     = "~/.config/ferry/config.toml"
	defaultServerURL      = "http://localhost:8000"
	defaultDownloadDir    = "~/Downloads/ferry"
	defaultLogDir         = "~/.local/share/ferry/logs"
	defaultLogLevel       = "info"
	defaultPollInterval   = 2 * time.Second
	defaultPollTimeout    = 10 * time.Minute
	defaultRequestTimeout = 30 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		ServerURL:      defaultServerURL,
		CheckMode:      CheckStatus,
		AutoPoll:       true,
		PollInterval:   defaultPollInterval,
		PollTimeout:    defaultPollTimeout,
		RequestTimeout: defaultRequestTimeout,
		DownloadDir:    mustExpand(defaultDownloadDir),
		LogDir:         mustExpand(defaultLogDir),
		LogLevel:       defaultLogLevel,
	}
}

type rawConfig struct {
	ServerURL      string `toml:"server_url"`
	CheckMode      string `toml:"check_mode"`
	AutoPoll       *bool  `toml:"auto_poll"`
	PollInterval   int    `toml:"poll_interval"`
	PollTimeout    int    `toml:"poll_timeout"`
	RequestTimeout int    `toml:"request_timeout"`
	DownloadDir    string `toml:"download_dir"`
	LogDir         string `toml:"log_dir"`
	LogLevel       string `toml:"log_level"`
	MetricsBind    string `toml:"metrics_bind"`
}

// Load locates and parses the ferry config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.ServerURL); v != "" {
		cfg.ServerURL = v
	}

	switch mode := CheckMode(strings.ToLower(strings.TrimSpace(raw.CheckMode))); mode {
	case "":
	case CheckStatus, CheckHead:
		cfg.CheckMode = mode
	default:
		return Config{}, fmt.Errorf("parse config: check_mode %q, want %q or %q", raw.CheckMode, CheckStatus, CheckHead)
	}

	if raw.AutoPoll != nil {
		cfg.AutoPoll = *raw.AutoPoll
	}
	if raw.PollInterval > 0 {
		cfg.PollInterval = time.Duration(raw.PollInterval) * time.Second
	}
	if raw.PollTimeout > 0 {
		cfg.PollTimeout = time.Duration(raw.PollTimeout) * time.Second
	}
	if raw.RequestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeout) * time.Second
	}
	if v := strings.TrimSpace(raw.DownloadDir); v != "" {
		cfg.DownloadDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.LogDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.MetricsBind = strings.TrimSpace(raw.MetricsBind)

	return cfg, nil
}

// LogPath returns the path to ferry's diagnostic log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/ferry.log")
	}
	return filepath.Join(c.LogDir, "ferry.log")
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
