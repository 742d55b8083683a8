package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database locations.
type Paths struct {
	InputDir     string `toml:"input_dir"`
	OutputDir    string `toml:"output_dir"`
	DatabasePath string `toml:"database_path"`
	LogDir       string `toml:"log_dir"`
}

// Media controls which files are discovered and in which order they are served.
type Media struct {
	Extensions []string `toml:"extensions"`
	Shuffle    bool     `toml:"shuffle"`
}

// Schema carries the catalog DDL and the ordered column statements.
type Schema struct {
	Tables  []string `toml:"tables"`
	Columns []string `toml:"columns"`
}

// Vocabulary configures the controlled-vocabulary registry.
type Vocabulary struct {
	// Backfill is either "record" or "legacy". See BackfillRecord and BackfillLegacy.
	Backfill  string `toml:"backfill"`
	CacheSize int    `toml:"cache_size"`
}

// Player configures the external playback process.
type Player struct {
	// Command is the player executable. Empty disables playback.
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	// ReleaseDelayMS is how long the organizer waits after releasing the
	// player before touching the file.
	ReleaseDelayMS int `toml:"release_delay_ms"`
}

// Probe configures the resolution probe.
type Probe struct {
	FFprobeBinary  string `toml:"ffprobe_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Trash configures where deleted files are sent.
type Trash struct {
	Dir string `toml:"dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics configures the Prometheus textfile export.
type Metrics struct {
	// TextfilePath is rewritten after every run. Empty disables the export.
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for mediasort.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Media      Media      `toml:"media"`
	Schema     Schema     `toml:"schema"`
	Vocabulary Vocabulary `toml:"vocabulary"`
	Player     Player     `toml:"player"`
	Probe      Probe      `toml:"probe"`
	Trash      Trash      `toml:"trash"`
	Logging    Logging    `toml:"logging"`
	Metrics    Metrics    `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mediasort/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediasort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories mediasort writes into. The input
// directory is never created; a missing input directory simply yields no files.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.LogDir, filepath.Dir(c.Paths.DatabasePath)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the lock file guarding single-writer access to the catalog.
func (c *Config) LockPath() string {
	return c.Paths.DatabasePath + ".lock"
}

// ReleaseDelay returns the pause between releasing playback and moving a file.
func (c *Config) ReleaseDelay() time.Duration {
	return time.Duration(c.Player.ReleaseDelayMS) * time.Millisecond
}

// ProbeTimeout bounds a single ffprobe invocation.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// FFprobeBinary returns the ffprobe executable used for resolution probing.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.Probe.FFprobeBinary) == "" {
		return defaultFFprobeBinary
	}
	return c.Probe.FFprobeBinary
}

// AllowsExtension reports whether ext (with leading dot, any case) is on the allow-list.
func (c *Config) AllowsExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimSpace(ext))
	for _, allowed := range c.Media.Extensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
