// Package config loads runtime settings from the environment, with an optional
// .env file for local runs and an optional YAML file listing the divisions.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pr0mega/BCLLDraft/internal/division"
	"github.com/pr0mega/BCLLDraft/internal/snapshot"
)

type Config struct {
	App struct {
		Env  string
		Port string
		// CORSOrigins are the origins allowed to call the HTTP API and open sockets.
		CORSOrigins []string
	}
	Snapshot struct {
		// DSN selects the store: empty keeps slots in memory, postgres:// uses
		// postgres, anything else is a sqlite file.
		DSN string
		Key string
	}
	NATS struct {
		// URL empty means notifications stay in process.
		URL           string
		SubjectPrefix string
	}
	DivisionsFile string
	Divisions     []division.Division
}

type divisionsFile struct {
	Divisions []division.Division `yaml:"divisions"`
}

// Load reads configuration from the environment. A missing .env file is fine.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.App.Env = getEnv("APP_ENV", "development")
	cfg.App.Port = getEnv("PORT", "8080")
	cfg.App.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "http://localhost:*,http://127.0.0.1:*"))

	cfg.Snapshot.DSN = getEnv("SNAPSHOT_DSN", "")
	cfg.Snapshot.Key = getEnv("SNAPSHOT_KEY", snapshot.DefaultKey)

	cfg.NATS.URL = getEnv("NATS_URL", "")
	cfg.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", snapshot.DefaultNATSConfig().SubjectPrefix)

	cfg.DivisionsFile = getEnv("DIVISIONS_FILE", "")
	cfg.Divisions = division.Defaults()
	if cfg.DivisionsFile != "" {
		divs, err := LoadDivisions(cfg.DivisionsFile)
		if err != nil {
			return nil, err
		}
		cfg.Divisions = divs
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool { return c.App.Env == "production" }

// Logger builds the zap logger for the configured environment.
func (c *Config) Logger() (*zap.Logger, error) {
	if c.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// LoadDivisions reads a YAML file of the form
//
//	divisions:
//	  - name: Rookies
//	    order: 1
//
// Teams listed in the file become the starting teams of the division.
func LoadDivisions(path string) ([]division.Division, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read divisions file: %w", err)
	}

	var file divisionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse divisions file: %w", err)
	}
	if len(file.Divisions) == 0 {
		return nil, fmt.Errorf("divisions file %s lists no divisions", path)
	}

	seen := make(map[string]bool, len(file.Divisions))
	divs := make([]division.Division, 0, len(file.Divisions))
	for i, d := range file.Divisions {
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			return nil, fmt.Errorf("division %d has no name", i+1)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("division %s listed twice", d.Name)
		}
		seen[d.Name] = true
		if d.Order == 0 {
			d.Order = i + 1
		}
		if d.Teams == nil {
			d.Teams = []string{}
		}
		d.DraftOrderTeams = append([]string{}, d.Teams...)
		divs = append(divs, d)
	}
	return division.Sorted(divs), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
