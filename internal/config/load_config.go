package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the project root when --config is not given.
const DefaultFile = "railsdock.yaml"

// Default returns the configuration of the stock Rails/PostgreSQL/Redis/Nginx/Sidekiq layout.
func Default(root string) *Config {
	return &Config{
		ProjectRoot:    root,
		ProjectName:    projectNameFrom(root),
		ComposeFile:    "docker-compose.yml",
		ComposeCommand: "auto",
		Services: Services{
			Web:    "web",
			DB:     "db",
			Redis:  "redis",
			Worker: "sidekiq",
			Proxy:  "nginx",
		},
		EnvDir:           "env",
		PostgresEnvFile:  "postgres.env",
		RailsEnvFile:     "rails.env",
		SourceDir:        "src",
		BackupsDir:       "backups",
		StateFile:        filepath.Join(".railsdock", "state.json"),
		WebPort:          3000,
		ReadinessTimeout: 60 * time.Second,
		ReadinessPoll:    2 * time.Second,
		Tasks:            map[string]Task{},
	}
}

// LoadConfig resolves the project root and reads the optional YAML config.
//
// root and configFile come from flags and may be empty. The root falls back to
// RAILSDOCK_PROJECT_ROOT and then the working directory. A missing default
// config file is not an error; a missing explicit one is.
func LoadConfig(root, configFile string) (*Config, error) {
	if root == "" {
		root = os.Getenv("RAILSDOCK_PROJECT_ROOT")
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root %s: %w", root, err)
	}
	cfg := Default(abs)

	explicit := configFile != ""
	if !explicit {
		configFile = filepath.Join(abs, DefaultFile)
	}
	raw, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configFile, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// stock layout
	default:
		return nil, fmt.Errorf("read %s: %w", configFile, err)
	}

	if v := strings.TrimSpace(os.Getenv("RAILSDOCK_COMPOSE_FILE")); v != "" {
		cfg.ComposeFile = v
	}
	if v := strings.TrimSpace(os.Getenv("RAILSDOCK_PROJECT_NAME")); v != "" {
		cfg.ProjectName = v
	}
	cfg.ProjectRoot = abs
	if cfg.Tasks == nil {
		cfg.Tasks = map[string]Task{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that would produce broken compose invocations.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ComposeFile) == "" {
		errs = append(errs, errors.New("compose_file must not be empty"))
	}
	switch c.ComposeCommand {
	case "", "auto", "docker-compose", "docker compose":
	default:
		errs = append(errs, fmt.Errorf("compose_command %q must be auto, docker-compose or \"docker compose\"", c.ComposeCommand))
	}
	if c.Services.Web == "" || c.Services.DB == "" {
		errs = append(errs, errors.New("services.web and services.db are required"))
	}
	if c.ReadinessTimeout < 0 || c.ReadinessPoll < 0 {
		errs = append(errs, errors.New("readiness durations must not be negative"))
	}
	for name, t := range c.Tasks {
		if len(t.Args) == 0 {
			errs = append(errs, fmt.Errorf("task %q has no args", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Path resolves p against the project root.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectRoot, p)
}

func (c *Config) ComposePath() string { return c.Path(c.ComposeFile) }
func (c *Config) SourcePath() string  { return c.Path(c.SourceDir) }
func (c *Config) BackupsPath() string { return c.Path(c.BackupsDir) }
func (c *Config) StatePath() string   { return c.Path(c.StateFile) }

// EnvPath returns the location of one of the env files.
func (c *Config) EnvPath(name string) string {
	return filepath.Join(c.Path(c.EnvDir), name)
}

// Volume returns the database volume name, applying compose's <project>_ prefix.
func (c *Config) Volume() string {
	if c.DBVolume != "" {
		return c.DBVolume
	}
	return c.ProjectName + "_postgres_data"
}

var nonName = regexp.MustCompile(`[^a-z0-9_-]+`)

// projectNameFrom mirrors how compose derives a project name from a directory.
func projectNameFrom(root string) string {
	name := nonName.ReplaceAllString(strings.ToLower(filepath.Base(root)), "")
	if name == "" {
		return "railsdock"
	}
	return name
}
