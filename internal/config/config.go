// Package config holds sheetlab's settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"sheetlab/internal/grid"
	"sheetlab/internal/recalc"
)

// Config is the on-disk settings file. Zero fields in a file keep the
// defaults.
type Config struct {
	UserID       string `yaml:"user_id"`
	LessonsFile  string `yaml:"lessons_file"`
	ProgressFile string `yaml:"progress_file"`
	LogFile      string `yaml:"log_file"`
	LogLevel     string `yaml:"log_level"`
	ColumnWidth  int    `yaml:"column_width"`
	Columns      int    `yaml:"columns"`
	Rows         int    `yaml:"rows"`
	Recompute    string `yaml:"recompute"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ProgressFile: filepath.Join(Dir(), "progress.yaml"),
		LogFile:      filepath.Join(Dir(), "sheetlab.log"),
		LogLevel:     "info",
		ColumnWidth:  12,
		Columns:      10,
		Rows:         20,
		Recompute:    string(recalc.Converge),
	}
}

// Dir is where sheetlab keeps its files, ~/.sheetlab or ./.sheetlab when
// there is no home directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sheetlab"
	}
	return filepath.Join(home, ".sheetlab")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the grid size and recompute mode.
func (c Config) Validate() error {
	if c.Columns < 1 || c.Columns > grid.MaxColumns {
		return fmt.Errorf("columns must be between 1 and %d, got %d", grid.MaxColumns, c.Columns)
	}
	if c.Rows < 1 {
		return fmt.Errorf("rows must be positive, got %d", c.Rows)
	}
	if c.ColumnWidth < 1 {
		return fmt.Errorf("column_width must be positive, got %d", c.ColumnWidth)
	}
	if _, err := recalc.ParseMode(c.Recompute); err != nil {
		return err
	}
	return nil
}

// Mode returns the validated recompute mode.
func (c Config) Mode() recalc.Mode {
	m, err := recalc.ParseMode(c.Recompute)
	if err != nil {
		return recalc.Converge
	}
	return m
}
