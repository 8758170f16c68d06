package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Settings is the full server configuration. Values come from an optional
// TOML file with environment variables taking precedence.
type Settings struct {
	ListenAddr    string   `toml:"listen_addr"`
	TMDBAPIKey    string   `toml:"tmdb_api_key"`
	TMDBBaseURL   string   `toml:"tmdb_base_url"`
	OpenAIAPIKey  string   `toml:"openai_api_key"`
	OpenAIBaseURL string   `toml:"openai_base_url"`
	OpenAIModel   string   `toml:"openai_model"`
	Language      string   `toml:"language"`
	Regions       []string `toml:"regions"`
	MaxAttempts   int      `toml:"max_attempts"`
	LogFile       string   `toml:"log_file"`
}

// Default returns the baseline settings before file/env overrides.
func Default() Settings {
	return Settings{
		ListenAddr:  ":8000",
		Language:    "en-US",
		Regions:     []string{"US", "GB", "CA", "IN"},
		MaxAttempts: 3,
		OpenAIModel: "gpt-3.5-turbo",
	}
}

// AIEnabled reports whether the recommendation provider should run at all.
// A missing OpenAI key disables enrichment instead of failing.
func (s Settings) AIEnabled() bool {
	return s.OpenAIAPIKey != ""
}

// Validate checks that the settings are coherent enough to start the server.
func (s Settings) Validate() error {
	if s.TMDBAPIKey == "" {
		return errors.New("tmdb_api_key is required (set TMDB_API_KEY)")
	}
	if s.ListenAddr == "" {
		return errors.New("listen_addr cannot be empty")
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1, got %d", s.MaxAttempts)
	}
	for _, region := range s.Regions {
		if len(region) != 2 {
			return fmt.Errorf("region %q is not a 2-letter country code", region)
		}
	}
	return nil
}

// Manager loads settings lazily and hands out copies.
type Manager struct {
	path string

	mu     sync.Mutex
	loaded *Settings
}

// NewManager creates a manager for the given config file path. An empty path
// means env-and-defaults only.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load returns the settings, reading file and environment on first use.
func (m *Manager) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded != nil {
		return *m.loaded, nil
	}

	settings := Default()
	if m.path != "" {
		raw, err := os.ReadFile(m.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// optional file
		case err != nil:
			return Settings{}, fmt.Errorf("read config %s: %w", m.path, err)
		default:
			if err := toml.Unmarshal(raw, &settings); err != nil {
				return Settings{}, fmt.Errorf("parse config %s: %w", m.path, err)
			}
		}
	}
	applyEnv(&settings)

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	m.loaded = &settings
	return settings, nil
}

// Reload drops the cached settings so the next Load rereads file and env.
func (m *Manager) Reload() {
	m.mu.Lock()
	m.loaded = nil
	m.mu.Unlock()
}

func applyEnv(s *Settings) {
	envString(&s.ListenAddr, "LISTEN_ADDR")
	envString(&s.TMDBAPIKey, "TMDB_API_KEY")
	envString(&s.TMDBBaseURL, "TMDB_BASE_URL")
	envString(&s.OpenAIAPIKey, "OPENAI_API_KEY")
	envString(&s.OpenAIBaseURL, "OPENAI_BASE_URL")
	envString(&s.OpenAIModel, "OPENAI_MODEL")
	envString(&s.Language, "LANGUAGE")
	envString(&s.LogFile, "LOG_FILE")
	if v := os.Getenv("MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxAttempts = n
		}
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
