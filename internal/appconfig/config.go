package appconfig

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int        `mapstructure:"config_version" yaml:"config_version"`
	API           APIConfig  `mapstructure:"api" yaml:"api"`
	Chat          ChatConfig `mapstructure:"chat" yaml:"chat"`
	Mock          MockConfig `mapstructure:"mock" yaml:"mock"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// APIConfig describes the chat server endpoints.
type APIConfig struct {
	BaseURL               string            `mapstructure:"base_url" yaml:"base_url"`
	ChatPath              string            `mapstructure:"chat_path" yaml:"chat_path"`
	HistoriesPath         string            `mapstructure:"histories_path" yaml:"histories_path"`
	HistoryPath           string            `mapstructure:"history_path" yaml:"history_path"`
	RequestTimeoutSeconds int               `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	Headers               map[string]string `mapstructure:"headers" yaml:"headers"`
}

// RequestTimeout returns the JSON request timeout as a duration.
func (c APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ChatConfig controls what the chat commands render.
type ChatConfig struct {
	ShowThinking bool   `mapstructure:"show_thinking" yaml:"show_thinking"`
	ShowTools    bool   `mapstructure:"show_tools" yaml:"show_tools"`
	StateDir     string `mapstructure:"state_dir" yaml:"state_dir"`
}

// MockConfig configures the reference server.
type MockConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	BasePath  string `mapstructure:"base_path" yaml:"base_path"`
	DelayMS   int    `mapstructure:"delay_ms" yaml:"delay_ms"`
	StorePath string `mapstructure:"store_path" yaml:"store_path"`
}

// Delay returns the per-frame delay as a duration.
func (c MockConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		API: APIConfig{
			BaseURL:               "http://localhost:8000/api",
			ChatPath:              "/chat",
			HistoriesPath:         "/chat/histories",
			HistoryPath:           "/chat/history/{thread_id}",
			RequestTimeoutSeconds: 30,
			Headers:               map[string]string{},
		},
		Chat: ChatConfig{
			ShowThinking: false,
			ShowTools:    true,
			StateDir:     "${HOME}/.agstream/state",
		},
		Mock: MockConfig{
			Addr:     "127.0.0.1:8000",
			BasePath: "/api",
			DelayMS:  40,
		},
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".agstream", "config.yaml"), nil
}
