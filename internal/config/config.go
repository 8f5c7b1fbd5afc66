package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load loads the configuration from a TOML file, applies defaults, expands
// environment variables and loads the consumption diagram referenced by
// files.cons_diagram.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	if cfg.Files.ConsDiagram != "" {
		diagram, err := LoadDiagram(cfg.Files.ConsDiagram)
		if err != nil {
			return nil, fmt.Errorf("failed to load consumption diagram: %w", err)
		}
		cfg.Consumption.Diagram = diagram
	}

	return &cfg, nil
}

// expandEnvVars expands environment variable references in the configuration.
func expandEnvVars(c *Config) {
	c.FoxESS.APIKey = expandEnv(c.FoxESS.APIKey)
	c.Mail.SMTPUser = expandEnv(c.Mail.SMTPUser)
	c.Mail.SMTPPassword = expandEnv(c.Mail.SMTPPassword)

	c.Files.ScheduleDir = expandHome(expandEnv(c.Files.ScheduleDir))
	c.Files.BaseDataDir = expandHome(expandEnv(c.Files.BaseDataDir))
	c.Files.ConsDiagram = expandHome(expandEnv(c.Files.ConsDiagram))
	c.General.LogOutput = expandEnv(c.General.LogOutput)
}

// expandEnv expands an environment variable of the form ${VAR} or ${VAR:default}.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		key := parts[0]
		defaultVal := parts[1]
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	return os.Getenv(content)
}

// expandHome expands a leading ~ in a path.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
