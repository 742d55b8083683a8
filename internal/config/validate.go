package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateSchema(); err != nil {
		return err
	}
	if err := c.validateVocabulary(); err != nil {
		return err
	}
	if err := c.validatePlayer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.InputDir == "" {
		return errors.New("paths.input_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if filepath.Clean(c.Paths.InputDir) == filepath.Clean(c.Paths.OutputDir) {
		return errors.New("paths.output_dir must differ from paths.input_dir")
	}
	if c.Paths.DatabasePath == "" {
		return errors.New("paths.database_path must be set")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if len(c.Media.Extensions) == 0 {
		return errors.New("media.extensions must list at least one extension")
	}
	return nil
}

func (c *Config) validateSchema() error {
	if len(c.Schema.Tables) == 0 {
		return errors.New("schema.tables must contain at least one CREATE TABLE statement")
	}
	for i, stmt := range c.Schema.Columns {
		if !strings.Contains(strings.ToUpper(stmt), " ADD COLUMN ") {
			return fmt.Errorf("schema.columns[%d]: expected an ALTER TABLE ... ADD COLUMN statement, got %q", i, stmt)
		}
	}
	return nil
}

func (c *Config) validateVocabulary() error {
	switch c.Vocabulary.Backfill {
	case BackfillRecord, BackfillLegacy:
		return nil
	default:
		return fmt.Errorf("vocabulary.backfill must be %q or %q, got %q", BackfillRecord, BackfillLegacy, c.Vocabulary.Backfill)
	}
}

func (c *Config) validatePlayer() error {
	if c.Player.ReleaseDelayMS < 0 {
		return errors.New("player.release_delay_ms must not be negative")
	}
	if c.Probe.TimeoutSeconds <= 0 {
		return errors.New("probe.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
