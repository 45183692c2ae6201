package manager

import (
	"os"

	"go.yaml.in/yaml/v3"
)

// Config is the manager's on-disk configuration: the three paths the
// CLI surface's set_root_path/set_inst_path/set_database_path exist to
// override programmatically.
type Config struct {
	RootPath     string `yaml:"root_path"`
	InstPath     string `yaml:"inst_path"`
	DatabasePath string `yaml:"database_path"`
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyConfig seeds m's three paths from cfg, leaving any field cfg
// leaves empty untouched so an explicit CLI flag can still override it
// when applied afterward.
func (m *Manager) ApplyConfig(cfg *Config) {
	if cfg.RootPath != "" {
		m.rootPath = cfg.RootPath
	}
	if cfg.InstPath != "" {
		m.instPath = cfg.InstPath
	}
	if cfg.DatabasePath != "" {
		m.databasePath = cfg.DatabasePath
	}
}
