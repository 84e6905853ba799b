// Package config loads go-tabletop settings from .env files, an optional
// TOML settings file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Defaults.
const (
	DefaultEnv            = "development"
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 3000
	DefaultLogLevel       = "info"
	DefaultVoiceChannelID = "1291440448761757838"
	DefaultOCRModel       = "gpt-4.1-mini"
	DefaultTranslateModel = "gpt-4.1"
	DefaultTTSModel       = "eleven_multilingual_v2"
)

// Environment variable names.
const (
	EnvOpenAIKey             = "OPENAI_API_KEY"
	EnvElevenLabsKey         = "ELEVENLABS_API_KEY"
	EnvDiscordToken          = "DISCORD_TOKEN"
	EnvAppEnv                = "APP_ENV"
	EnvNodeEnv               = "NODE_ENV"
	EnvGoEnv                 = "GO_ENV"
	EnvPort                  = "PORT"
	EnvHost                  = "HOST"
	EnvLogLevel              = "LOG_LEVEL"
	EnvVoiceChannelID        = "DISCORD_VOICE_CHANNEL_ID"
	EnvFFmpegPath            = "FFMPEG_PATH"
	EnvOpenAIBaseURL         = "OPENAI_BASE_URL"
	EnvElevenLabsBaseURL     = "ELEVENLABS_BASE_URL"
	EnvTranslateInstructions = "TRANSLATE_INSTRUCTIONS_FILE"
	EnvSettingsFile          = "TABLETOP_CONFIG"
)

// Config holds all configuration for the service.
// Flag parsing is done in cmd/tabletop; this struct is data only.
type Config struct {
	Env      string
	Host     string
	Port     int
	LogLevel string

	// OpenAI (vision + translation).
	OpenAIKey                 string
	OpenAIBaseURL             string
	OCRModel                  string
	TranslateModel            string
	TranslateInstructionsFile string

	// ElevenLabs (speech synthesis).
	ElevenLabsKey     string
	ElevenLabsBaseURL string
	TTSModel          string

	// Discord (voice playback).
	DiscordToken   string
	VoiceChannelID string
	FFmpegPath     string
}

// Default returns the configuration used before any source is applied.
func Default() Config {
	return Config{
		Env:            DefaultEnv,
		Host:           DefaultHost,
		Port:           DefaultPort,
		LogLevel:       DefaultLogLevel,
		OCRModel:       DefaultOCRModel,
		TranslateModel: DefaultTranslateModel,
		TTSModel:       DefaultTTSModel,
		VoiceChannelID: DefaultVoiceChannelID,
	}
}

// ConfigError lists every problem found while validating configuration.
type ConfigError struct {
	Missing []string
	Invalid []string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required variables: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid values: "+strings.Join(e.Invalid, ", "))
	}
	return "config: " + strings.Join(parts, "; ")
}

// Load reads dotenv files (".env" when none are given; a missing file is
// not an error), then the TOML settings file named by TABLETOP_CONFIG,
// then the environment, and validates the result.
func Load(dotenvFiles ...string) (Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load dotenv: %w", err)
	}

	cfg := Default()

	if path := os.Getenv(EnvSettingsFile); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	invalid := cfg.applyEnv()

	err := cfg.Validate()
	if len(invalid) > 0 {
		var cerr *ConfigError
		if !errors.As(err, &cerr) {
			cerr = &ConfigError{}
		}
		cerr.Invalid = append(invalid, cerr.Invalid...)
		err = cerr
	}
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// settingsFile mirrors the TOML layout. Secrets are deliberately absent.
type settingsFile struct {
	Server struct {
		Env  string `toml:"env"`
		Host string `toml:"host"`
		Port int    `toml:"port"`
	} `toml:"server"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
	Discord struct {
		VoiceChannelID string `toml:"voice_channel_id"`
		FFmpegPath     string `toml:"ffmpeg_path"`
	} `toml:"discord"`
	OpenAI struct {
		BaseURL                   string `toml:"base_url"`
		OCRModel                  string `toml:"ocr_model"`
		TranslateModel            string `toml:"translate_model"`
		TranslateInstructionsFile string `toml:"translate_instructions_file"`
	} `toml:"openai"`
	ElevenLabs struct {
		BaseURL string `toml:"base_url"`
		Model   string `toml:"model"`
	} `toml:"elevenlabs"`
}

// LoadFile applies non-empty values from a TOML settings file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read settings file: %w", err)
	}
	return c.ApplyTOML(data)
}

// ApplyTOML applies non-empty values from TOML-encoded settings.
func (c *Config) ApplyTOML(data []byte) error {
	var f settingsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config: parse settings file: %w", err)
	}

	setString(&c.Env, f.Server.Env)
	setString(&c.Host, f.Server.Host)
	if f.Server.Port != 0 {
		c.Port = f.Server.Port
	}
	setString(&c.LogLevel, f.Log.Level)
	setString(&c.VoiceChannelID, f.Discord.VoiceChannelID)
	setString(&c.FFmpegPath, f.Discord.FFmpegPath)
	setString(&c.OpenAIBaseURL, f.OpenAI.BaseURL)
	setString(&c.OCRModel, f.OpenAI.OCRModel)
	setString(&c.TranslateModel, f.OpenAI.TranslateModel)
	setString(&c.TranslateInstructionsFile, f.OpenAI.TranslateInstructionsFile)
	setString(&c.ElevenLabsBaseURL, f.ElevenLabs.BaseURL)
	setString(&c.TTSModel, f.ElevenLabs.Model)
	return nil
}

// applyEnv overlays environment variables and returns the names of any
// that could not be parsed.
func (c *Config) applyEnv() []string {
	var invalid []string

	c.OpenAIKey = os.Getenv(EnvOpenAIKey)
	c.ElevenLabsKey = os.Getenv(EnvElevenLabsKey)
	c.DiscordToken = os.Getenv(EnvDiscordToken)

	// Later names win: NODE_ENV, then GO_ENV, then APP_ENV.
	setString(&c.Env, os.Getenv(EnvNodeEnv))
	setString(&c.Env, os.Getenv(EnvGoEnv))
	setString(&c.Env, os.Getenv(EnvAppEnv))
	setString(&c.Host, os.Getenv(EnvHost))
	setString(&c.LogLevel, os.Getenv(EnvLogLevel))
	setString(&c.VoiceChannelID, os.Getenv(EnvVoiceChannelID))
	setString(&c.FFmpegPath, os.Getenv(EnvFFmpegPath))
	setString(&c.OpenAIBaseURL, os.Getenv(EnvOpenAIBaseURL))
	setString(&c.ElevenLabsBaseURL, os.Getenv(EnvElevenLabsBaseURL))
	setString(&c.TranslateInstructionsFile, os.Getenv(EnvTranslateInstructions))

	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			invalid = append(invalid, EnvPort+"="+v)
		} else {
			c.Port = port
		}
	}

	return invalid
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	cerr := &ConfigError{}

	if c.OpenAIKey == "" {
		cerr.Missing = append(cerr.Missing, EnvOpenAIKey)
	}
	if c.ElevenLabsKey == "" {
		cerr.Missing = append(cerr.Missing, EnvElevenLabsKey)
	}
	if c.DiscordToken == "" {
		cerr.Missing = append(cerr.Missing, EnvDiscordToken)
	}
	if c.Port <= 0 || c.Port > 65535 {
		cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("port=%d", c.Port))
	}
	if c.VoiceChannelID == "" {
		cerr.Invalid = append(cerr.Invalid, "voice channel id is empty")
	}

	if len(cerr.Missing) > 0 || len(cerr.Invalid) > 0 {
		return cerr
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
