package config

import "time"

// Services names the compose services railsdock talks to.
// - Web: the Rails application container (console, migrations, tests).
// - DB: the PostgreSQL container used for dumps and psql.
// - Redis/Worker/Proxy: cache, Sidekiq and Nginx, used by task shortcuts.
type Services struct {
	Web    string `yaml:"web"`
	DB     string `yaml:"db"`
	Redis  string `yaml:"redis"`
	Worker string `yaml:"worker"`
	Proxy  string `yaml:"proxy"`
}

// Task is a user-defined entry for the task table (a Makefile target).
// - Description: one-line help text.
// - Args: compose arguments, e.g. ["exec", "web", "bin/rails", "about"].
type Task struct {
	Description string   `yaml:"description"`
	Args        []string `yaml:"args"`
}

// Aliases holds shell-specific alias definitions.
// - Shell: Shell type (e.g., zsh, bash).
// - Entries: List of aliases to apply.
type Aliases struct {
	Shell   string  `yaml:"shell"`
	Entries []Alias `yaml:"entries"`
}

// Alias defines a single shell alias (e.g., rdc = railsdock quick console).
type Alias struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Config is the explicit project description passed to every operation.
// Paths other than ProjectRoot are relative to ProjectRoot unless absolute.
type Config struct {
	ProjectRoot string `yaml:"-"`

	// ProjectName is passed to compose with -p and prefixes named volumes.
	ProjectName string `yaml:"project_name"`
	ComposeFile string `yaml:"compose_file"`
	// ComposeCommand is "docker-compose", "docker compose" or "auto".
	ComposeCommand string `yaml:"compose_command"`

	Services Services `yaml:"services"`

	EnvDir          string `yaml:"env_dir"`
	PostgresEnvFile string `yaml:"postgres_env_file"`
	RailsEnvFile    string `yaml:"rails_env_file"`

	SourceDir  string `yaml:"source_dir"`
	BackupsDir string `yaml:"backups_dir"`
	StateFile  string `yaml:"state_file"`

	// DBVolume is the named volume holding PostgreSQL data. Defaults to
	// <project>_postgres_data.
	DBVolume string `yaml:"db_volume"`
	WebPort  int    `yaml:"web_port"`

	ReadinessTimeout time.Duration `yaml:"readiness_timeout"`
	ReadinessPoll    time.Duration `yaml:"readiness_poll"`

	Tasks   map[string]Task `yaml:"tasks"`
	Aliases Aliases         `yaml:"aliases"`
}
