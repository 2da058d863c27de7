// Package config loads process configuration from config.toml.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath  = "config.toml"
	DefaultHTTPAddr    = ":9999"
	DefaultMongoURI    = "mongodb://localhost:27017"
	DefaultDatabase    = "line_chatgpt"
	DefaultOpenAIBase  = "https://api.openai.com/v1"
	DefaultConfigDir   = "config"
	DefaultMaxHistory  = 10
	DefaultMaxPixel    = 1280
	DefaultJPEGQuality = 30
)

type Config struct {
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
	Line   LineConfig   `toml:"line"`
	OpenAI OpenAIConfig `toml:"openai"`
	Mongo  MongoConfig  `toml:"mongo"`
	Chat   ChatConfig   `toml:"chat"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LineConfig carries the LINE Messaging API credentials. The channel
// secret signs webhook deliveries; the access token authorizes replies.
type LineConfig struct {
	ChannelSecret      string `toml:"channel_secret" validate:"required"`
	ChannelAccessToken string `toml:"channel_access_token" validate:"required"`
}

type OpenAIConfig struct {
	APIKey  string `toml:"api_key" validate:"required"`
	BaseURL string `toml:"base_url" validate:"omitempty,url"`
}

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// ChatConfig holds conversation-layer settings. ConfigDir points at the
// directory containing models.yml and assistants.yml.
type ChatConfig struct {
	ConfigDir   string   `toml:"config_dir"`
	MaxHistory  int      `toml:"max_history" validate:"gt=0"`
	MaxPixel    int      `toml:"max_pixel" validate:"gt=0"`
	JPEGQuality int      `toml:"jpeg_quality" validate:"gt=0,lte=100"`
	AllowList   []string `toml:"allow_list"`
	DenyList    []string `toml:"deny_list"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		OpenAI: OpenAIConfig{
			BaseURL: DefaultOpenAIBase,
		},
		Mongo: MongoConfig{
			URI:      DefaultMongoURI,
			Database: DefaultDatabase,
		},
		Chat: ChatConfig{
			ConfigDir:   DefaultConfigDir,
			MaxHistory:  DefaultMaxHistory,
			MaxPixel:    DefaultMaxPixel,
			JPEGQuality: DefaultJPEGQuality,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
