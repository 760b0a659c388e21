package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultLanguage      = "en"
	DefaultModel         = "gemini-2.0-flash"
	DefaultEndpoint      = "https://generativelanguage.googleapis.com/v1beta"
	DefaultWeatherURL    = "https://api.openweathermap.org/data/2.5"
	defaultStateDirLinux = ".local/state/agrivoice"
	defaultConfigDir     = ".config/agrivoice"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Language struct {
		Code string `toml:"code"` // two-letter application language
	} `toml:"language"`

	Assistant struct {
		Backend         string  `toml:"backend"` // gemini, genai
		APIKey          string  `toml:"api_key"`
		Model           string  `toml:"model"`
		Endpoint        string  `toml:"endpoint"`
		Temperature     float64 `toml:"temperature"`
		MaxOutputTokens int     `toml:"max_output_tokens"`
		TimeoutSec      float64 `toml:"timeout_sec"` // 0 waits for the upstream to settle
	} `toml:"assistant"`

	Weather struct {
		APIKey  string `toml:"api_key"`
		BaseURL string `toml:"base_url"`
		Units   string `toml:"units"`
	} `toml:"weather"`

	SpeechInput struct {
		Backend        string            `toml:"backend"` // command, whisper, none
		Command        string            `toml:"command"`
		Args           []string          `toml:"args"`
		Env            map[string]string `toml:"env"`
		TimeoutSec     float64           `toml:"timeout_sec"`
		ModelPath      string            `toml:"model_path"`
		DeviceName     string            `toml:"device_name"`
		SampleRate     int               `toml:"sample_rate"`
		FrameMS        int               `toml:"frame_ms"`
		SilenceMS      int               `toml:"silence_ms"`
		MaxSegmentMS   int               `toml:"max_segment_ms"`
		Aggressiveness int               `toml:"aggressiveness"`
	} `toml:"speech_input"`

	SpeechOutput struct {
		Backend string            `toml:"backend"` // command, none
		Command string            `toml:"command"`
		Args    []string          `toml:"args"`
		Env     map[string]string `toml:"env"`
	} `toml:"speech_output"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`

		// Rotation of the log file.
		MaxSizeMB  int  `toml:"max_size_mb"`
		MaxBackups int  `toml:"max_backups"`
		MaxAgeDays int  `toml:"max_age_days"`
		Compress   bool `toml:"compress"`
	} `toml:"logging"`

	Paths struct {
		StateDir   string `toml:"state_dir"`
		LogPath    string `toml:"log_path"`
		ConfigPath string `toml:"-"`
	} `toml:"paths"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "agrivoice")
	}

	cfg := &Config{}

	cfg.Language.Code = DefaultLanguage

	cfg.Assistant.Backend = "gemini"
	cfg.Assistant.Model = DefaultModel
	cfg.Assistant.Endpoint = DefaultEndpoint
	cfg.Assistant.Temperature = 0.7
	cfg.Assistant.MaxOutputTokens = 500

	cfg.Weather.BaseURL = DefaultWeatherURL
	cfg.Weather.Units = "metric"

	cfg.SpeechInput.Backend = "command"
	cfg.SpeechInput.Args = []string{}
	cfg.SpeechInput.Env = map[string]string{}
	cfg.SpeechInput.TimeoutSec = 15
	cfg.SpeechInput.ModelPath = filepath.Join(stateDir, "models", "ggml-small-q5_1.bin")
	cfg.SpeechInput.SampleRate = 16000
	cfg.SpeechInput.FrameMS = 20
	cfg.SpeechInput.SilenceMS = 1000
	cfg.SpeechInput.MaxSegmentMS = 10000
	cfg.SpeechInput.Aggressiveness = 2

	cfg.SpeechOutput.Backend = "command"
	cfg.SpeechOutput.Command = "espeak-ng"
	// Answers go on stdin; as an argument, a leading "- " bullet would be
	// parsed as an option.
	cfg.SpeechOutput.Args = []string{"-v", "${lang}", "--stdin"}
	cfg.SpeechOutput.Env = map[string]string{}
	if isMac() {
		cfg.SpeechOutput.Command = "say"
		cfg.SpeechOutput.Args = []string{}
	}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.MaxSizeMB = 5
	cfg.Logging.MaxBackups = 4
	cfg.Logging.MaxAgeDays = 14
	cfg.Logging.Compress = true

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "agrivoice.log")

	return cfg, nil
}

// Load loads config from file, applying defaults, .env and env overrides.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
	} else if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path

	// A missing .env is the common case.
	_ = godotenv.Load()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Assistant.APIKey = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("AGRIVOICE_LANG"); v != "" {
		cfg.Language.Code = strings.ToLower(v)
	}
	if v := os.Getenv("AGRIVOICE_ASSISTANT_BACKEND"); v != "" {
		cfg.Assistant.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("AGRIVOICE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AGRIVOICE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("AGRIVOICE_LOG_STDOUT"); v != "" {
		cfg.Logging.Stdout = v != "0" && strings.ToLower(v) != "false"
	}
}
