package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/acksell/colldb/dynamodb/logging"
)

const configFilename = "ddb.yaml"

const (
	backendLocal = "local"
	backendAWS   = "aws"
)

// Config holds the settings shared by every command. It is loaded from
// ddb.yaml if present, then overridden by the environment and a .env file.
type Config struct {
	// Schema is the definition file. Relative paths resolve against the
	// directory holding ddb.yaml.
	Schema string `yaml:"schema"`
	// Backend is "local" (BadgerDB, default) or "aws".
	Backend string `yaml:"backend"`
	// DataDir is where the local backend keeps its data. Empty means in-memory.
	DataDir string `yaml:"dataDir"`
	// Table overrides the table name of the schema.
	Table    string         `yaml:"table"`
	Region   string         `yaml:"region"`
	Profile  string         `yaml:"profile"`
	Endpoint string         `yaml:"endpoint"`
	Log      logging.Config `yaml:"log"`
}

// envOverrides maps environment variables onto config fields.
var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"DDB_SCHEMA", func(c *Config) *string { return &c.Schema }},
	{"DDB_BACKEND", func(c *Config) *string { return &c.Backend }},
	{"DDB_DATA_DIR", func(c *Config) *string { return &c.DataDir }},
	{"DDB_TABLE", func(c *Config) *string { return &c.Table }},
	{"AWS_REGION", func(c *Config) *string { return &c.Region }},
	{"AWS_PROFILE", func(c *Config) *string { return &c.Profile }},
	{"DDB_ENDPOINT", func(c *Config) *string { return &c.Endpoint }},
	{"DDB_LOG_LEVEL", func(c *Config) *string { return &c.Log.Level }},
	{"DDB_LOG_FORMAT", func(c *Config) *string { return &c.Log.Format }},
}

// LoadConfig searches for ddb.yaml starting from dir and walking up to the
// filesystem root, then applies overrides. Variables set in the process
// environment win over those in dir/.env.
func LoadConfig(dir string) (Config, error) {
	var cfg Config
	if path := findConfigFile(dir); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		base := filepath.Dir(path)
		cfg.Schema = resolve(base, cfg.Schema)
		cfg.DataDir = resolve(base, cfg.DataDir)
	}

	dotenv, err := godotenv.Read(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read .env: %w", err)
	}
	cfg.applyEnv(func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok {
			return v, true
		}
		v, ok := dotenv[name]
		return v, ok
	})

	if cfg.Backend == "" {
		cfg.Backend = backendLocal
	}
	if cfg.Backend != backendLocal && cfg.Backend != backendAWS {
		return cfg, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for _, o := range envOverrides {
		if v, ok := lookup(o.name); ok && v != "" {
			*o.field(c) = v
		}
	}
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// findConfigFile searches for ddb.yaml walking up from dir.
func findConfigFile(dir string) string {
	for {
		path := filepath.Join(dir, configFilename)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
}
