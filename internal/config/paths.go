package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// SalaryPath is the resolved location of the per-country salary table.
func (d DataConfig) SalaryPath() string {
	return d.resolve(d.SalaryFile)
}

// CostPath is the resolved location of the per-state cost table.
func (d DataConfig) CostPath() string {
	return d.resolve(d.CostFile)
}

// DetailPath is the resolved location of the wide per-state cost breakdown.
func (d DataConfig) DetailPath() string {
	return d.resolve(d.DetailFile)
}

// resolve joins relative file names onto the data directory.
func (d DataConfig) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) || d.Dir == "" {
		return name
	}
	return filepath.Join(d.Dir, name)
}

// EnsureDirectories creates the parent directories of every file the
// application writes.
func (c *Config) EnsureDirectories() error {
	var dirs []string
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}
	if c.Store.Enabled {
		dirs = append(dirs, filepath.Dir(c.Store.Path))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
