package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// EnvFile is a parsed KEY=VALUE file. Later keys win.
type EnvFile map[string]string

// ReadEnvFile parses the flat key-value format consumed by docker-compose env_file.
// Blank lines and # comments are skipped, an "export " prefix is tolerated and
// matching surrounding quotes are stripped.
func ReadEnvFile(path string) (EnvFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	env := EnvFile{}
	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%s:%d: expected KEY=VALUE", path, n)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%s:%d: empty key", path, n)
		}
		env[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return env, nil
}

// Get returns the value of key or def when unset or empty.
func (e EnvFile) Get(key, def string) string {
	if v := e[key]; v != "" {
		return v
	}
	return def
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// Postgres holds the connection settings dump and restore need.
type Postgres struct {
	User     string
	Database string
}

// PostgresSettings reads POSTGRES_USER and POSTGRES_DB from the postgres env
// file, defaulting both to "postgres" like the official image does.
func (c *Config) PostgresSettings() Postgres {
	env, err := ReadEnvFile(c.EnvPath(c.PostgresEnvFile))
	if err != nil {
		env = EnvFile{}
	}
	user := env.Get("POSTGRES_USER", "postgres")
	return Postgres{User: user, Database: env.Get("POSTGRES_DB", user)}
}
