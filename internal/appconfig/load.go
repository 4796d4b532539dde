package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.chat_path", cfg.API.ChatPath)
	v.SetDefault("api.histories_path", cfg.API.HistoriesPath)
	v.SetDefault("api.history_path", cfg.API.HistoryPath)
	v.SetDefault("api.request_timeout_seconds", cfg.API.RequestTimeoutSeconds)
	v.SetDefault("api.headers", cfg.API.Headers)
	v.SetDefault("chat.show_thinking", cfg.Chat.ShowThinking)
	v.SetDefault("chat.show_tools", cfg.Chat.ShowTools)
	v.SetDefault("chat.state_dir", cfg.Chat.StateDir)
	v.SetDefault("mock.addr", cfg.Mock.Addr)
	v.SetDefault("mock.base_path", cfg.Mock.BasePath)
	v.SetDefault("mock.delay_ms", cfg.Mock.DelayMS)
	v.SetDefault("mock.store_path", cfg.Mock.StorePath)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateAPIConfig(cfg.API); err != nil {
		return Config{}, err
	}
	if err := validateMockConfig(cfg.Mock); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateAPIConfig(cfg APIConfig) error {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	parsed, err := url.Parse(baseURL)
	if baseURL == "" || err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.base_url must include scheme and host (e.g. http://localhost:8000/api)")
	}
	if !strings.Contains(cfg.HistoryPath, "{thread_id}") {
		return fmt.Errorf("api.history_path must contain {thread_id}")
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("api.request_timeout_seconds must be positive")
	}
	return nil
}

func validateMockConfig(cfg MockConfig) error {
	basePath := strings.TrimSpace(cfg.BasePath)
	if basePath != "" {
		if strings.Contains(basePath, "://") {
			return fmt.Errorf("mock.base_path must be a path prefix, not a URL")
		}
		if strings.ContainsAny(basePath, "?#") {
			return fmt.Errorf("mock.base_path must not include query or fragment")
		}
	}
	if cfg.DelayMS < 0 {
		return fmt.Errorf("mock.delay_ms must not be negative")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.API.BaseURL = expandEnv(cfg.API.BaseURL)
	for key, value := range cfg.API.Headers {
		cfg.API.Headers[key] = expandEnv(value)
	}
	cfg.Chat.StateDir = expandEnv(cfg.Chat.StateDir)
	cfg.Mock.Addr = expandEnv(cfg.Mock.Addr)
	cfg.Mock.StorePath = expandEnv(cfg.Mock.StorePath)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	data, err := Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// Marshal renders cfg as YAML in the config file layout.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
