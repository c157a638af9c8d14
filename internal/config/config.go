package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alexjbarnes/gitlab-note-sync/internal/notesync"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for gitlab-sync.
type Config struct {
	// GitLab personal access token with api scope.
	Token string `env:"GITLAB_TOKEN"`

	// Numeric project ID or full "group/project" path.
	ProjectID string `env:"GITLAB_PROJECT_ID"`

	// Branch notes are committed to.
	Branch string `env:"GITLAB_BRANCH" envDefault:"master"`

	// Directory inside the repository that note paths are rooted at.
	BasePath string `env:"GITLAB_BASE_PATH" envDefault:""`

	// Drop the top-level book from note paths.
	SkipNoteRootDir bool `env:"SKIP_NOTE_ROOT_DIR" envDefault:"true"`

	// Prepend the Title/Date/Modified/Category/Tags header to file content.
	AddMetadata bool `env:"ADD_METADATA" envDefault:"true"`

	// GitLab instance URL, without the /api/v4 suffix.
	GitLabURL string `env:"GITLAB_URL" envDefault:"https://gitlab.com"`

	// YAML snapshot of books, tags and notes. Resolved to an absolute
	// path so the watcher can match fsnotify events against it.
	NoteLibrary string `env:"NOTE_LIBRARY" envDefault:"notes.yaml"`

	// Sync journal database. Defaults to ~/.gitlab-sync/journal.db.
	StatePath string `env:"STATE_PATH"`

	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the GitLab token to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.GitLabURL = strings.TrimRight(cfg.GitLabURL, "/")

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	absLib, err := filepath.Abs(cfg.NoteLibrary)
	if err != nil {
		return nil, fmt.Errorf("resolving note library to absolute path: %w", err)
	}

	cfg.NoteLibrary = absLib

	if cfg.StatePath == "" {
		p, err := DefaultStatePath()
		if err != nil {
			return nil, err
		}

		cfg.StatePath = p
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Token == "" {
		return fmt.Errorf("GITLAB_TOKEN is required")
	}

	if c.ProjectID == "" {
		return fmt.Errorf("GITLAB_PROJECT_ID is required")
	}

	if c.Branch == "" {
		return fmt.Errorf("GITLAB_BRANCH must not be empty")
	}

	if c.NoteLibrary == "" {
		return fmt.Errorf("NOTE_LIBRARY must not be empty")
	}

	u, err := url.Parse(c.GitLabURL)
	if err != nil {
		return fmt.Errorf("GITLAB_URL is not a valid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("GITLAB_URL must use http or https, got %q", c.GitLabURL)
	}

	if u.Host == "" {
		return fmt.Errorf("GITLAB_URL has no host: %q", c.GitLabURL)
	}

	return nil
}

// DefaultStatePath returns ~/.gitlab-sync/journal.db.
func DefaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".gitlab-sync", "journal.db"), nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SyncConfig implements notesync.ConfigSource.
func (c *Config) SyncConfig() notesync.Config {
	return notesync.Config{
		Token:           c.Token,
		ProjectID:       c.ProjectID,
		Branch:          c.Branch,
		BasePath:        c.BasePath,
		SkipNoteRootDir: c.SkipNoteRootDir,
		AddMetadata:     c.AddMetadata,
	}
}
