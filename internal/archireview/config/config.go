package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/rules"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/telemetry"
)

// FileNames are the configuration files looked up in the project root, in
// order. JSON is a subset of YAML, so one decoder reads all of them.
var FileNames = []string{"archireview.yaml", "archireview.yml", "archireview.json"}

// ErrNotFound is returned by LoadConfig when no configuration file exists.
var ErrNotFound = errors.New("no archireview configuration file")

// Config controls which files are reviewed, how rules are tuned and where
// review history is persisted.
type Config struct {
	Project        string         `yaml:"project" json:"project"`                 // Project name attached to reports; defaults to the root directory name.
	ExcludedDirs   []string       `yaml:"excluded_dirs" json:"excluded_dirs"`     // Directory names skipped while scanning.
	PersistenceDir string         `yaml:"persistence_dir" json:"persistence_dir"` // Directory holding the SQLite database.
	Concurrency    int            `yaml:"concurrency" json:"concurrency"`         // Parallel file reviews and semantic evaluations; 0 means GOMAXPROCS.
	DisabledRules  []string       `yaml:"disabled_rules" json:"disabled_rules"`   // Rule IDs that are not run.
	Rules          rules.Settings `yaml:"rules" json:"rules"`

	Spelling struct {
		Words          []string `yaml:"words" json:"words"`
		WordFile       string   `yaml:"word_file" json:"word_file"`
		ExemptPatterns []string `yaml:"exempt_patterns" json:"exempt_patterns"`
	} `yaml:"spelling" json:"spelling"`

	Types struct {
		Packages []string `yaml:"packages" json:"packages"` // go/packages patterns; empty means "std".
		Known    []string `yaml:"known" json:"known"`       // Extra interface names treated as external.
		NoCache  bool     `yaml:"no_cache" json:"no_cache"`

		// SkipPackages limits the catalogue to Known, without loading Go packages.
		SkipPackages bool `yaml:"skip_packages" json:"skip_packages"`
	} `yaml:"types" json:"types"`

	Telemetry telemetry.Config `yaml:"telemetry" json:"telemetry"`

	Logging struct {
		Format string `yaml:"format" json:"format"` // "text"|"json"
		Level  string `yaml:"level" json:"level"`   // "debug"|"info"|"warn"|"error"
	} `yaml:"logging" json:"logging"`
}

// DefaultConfig returns the configuration used when no config file is found.
func DefaultConfig() Config {
	var c Config
	c.ExcludedDirs = []string{"node_modules", "dist", "build", ".git", "vendor", "target", "__pycache__"}
	c.PersistenceDir = ".archireview"
	c.Rules = rules.DefaultSettings
	c.Telemetry = telemetry.DefaultConfig()
	c.Logging.Format = "text"
	c.Logging.Level = "info"
	return c
}

// LoadConfig reads the first configuration file found in rootDir. Missing
// fields take their defaults. It returns ErrNotFound when there is no file.
func LoadConfig(rootDir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(rootDir, name)
		content, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cfg := DefaultConfig()
		cfg.ExcludedDirs = nil
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		cfg.applyDefaults()
		return &cfg, nil
	}
	return nil, ErrNotFound
}

// Load is LoadConfig falling back to DefaultConfig, with environment
// overrides applied on top.
func Load(rootDir string) (*Config, error) {
	cfg, err := LoadConfig(rootDir)
	if errors.Is(err, ErrNotFound) {
		d := DefaultConfig()
		cfg, err = &d, nil
	}
	if err != nil {
		return nil, err
	}
	if cfg.Project == "" {
		if abs, err := filepath.Abs(rootDir); err == nil {
			cfg.Project = filepath.Base(abs)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if len(c.ExcludedDirs) == 0 {
		c.ExcludedDirs = d.ExcludedDirs
	}
	if c.PersistenceDir == "" {
		c.PersistenceDir = d.PersistenceDir
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = d.Telemetry.ServiceName
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// ApplyEnv applies ARCHIREVIEW_* environment overrides.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ARCHIREVIEW_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("ARCHIREVIEW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ARCHIREVIEW_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Concurrency = n
		}
	}
	if v := os.Getenv("ARCHIREVIEW_PERSISTENCE_DIR"); v != "" {
		c.PersistenceDir = v
	}
	if v := os.Getenv("ARCHIREVIEW_TRACES"); v != "" {
		c.Telemetry.TraceExporter = v
	}
	if v := os.Getenv("ARCHIREVIEW_METRICS"); v != "" {
		c.Telemetry.MetricExporter = v
	}
}

// StoreDir resolves the persistence directory against the project root.
func (c *Config) StoreDir(rootDir string) string {
	if filepath.IsAbs(c.PersistenceDir) {
		return c.PersistenceDir
	}
	return filepath.Join(rootDir, c.PersistenceDir)
}

// Excluded reports whether a directory name is skipped while scanning.
func (c *Config) Excluded(dirName string) bool {
	for _, d := range c.ExcludedDirs {
		if d == dirName {
			return true
		}
	}
	return false
}
