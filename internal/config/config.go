package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type ProjectConfig struct {
	Project    string           `yaml:"project"`
	Version    int              `yaml:"version"`
	Database   DatabaseConfig   `yaml:"database"`
	SchemaRepo SchemaRepoConfig `yaml:"schema_repo"`
	Limits     LimitsConfig     `yaml:"limits"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type SchemaRepoConfig struct {
	Checkout   string `yaml:"checkout"`
	APIBase    string `yaml:"api_base"`
	Repository string `yaml:"repository"`
	BaseBranch string `yaml:"base_branch"`
	TokenEnv   string `yaml:"token_env"`
}

type LimitsConfig struct {
	MaxInheritanceDepth int `yaml:"max_inheritance_depth"`
}

const defaultMaxInheritanceDepth = 25

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if cfg.Limits.MaxInheritanceDepth == 0 {
		cfg.Limits.MaxInheritanceDepth = defaultMaxInheritanceDepth
	}
	if cfg.SchemaRepo.BaseBranch == "" {
		cfg.SchemaRepo.BaseBranch = "main"
	}

	return &cfg, nil
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	case "":
		return fmt.Errorf("database driver is required")
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	if strings.TrimSpace(cfg.SchemaRepo.Checkout) == "" {
		return fmt.Errorf("schema repo checkout path is required")
	}
	if cfg.Limits.MaxInheritanceDepth < 0 {
		return fmt.Errorf("max_inheritance_depth must not be negative")
	}
	return nil
}
