package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"enstats/domain/calc"
	"enstats/domain/core"
	"enstats/domain/ensemble"
	"enstats/domain/frequency"
	"enstats/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Data     DataConfig
	LogLevel string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds database connection settings. URL is optional; it is
// only required when the catalog names a postgres ensemble.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
}

// DataConfig holds ensemble data settings
type DataConfig struct {
	EnsemblesFile    string
	DefaultFrequency frequency.Frequency
	LoadConcurrency  int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	freq, err := frequency.Parse(getEnvOrDefault("DEFAULT_FREQUENCY", "monthly"))
	if err != nil {
		return nil, errors.Wrap(errors.WithCode(errors.CodeConfigInvalid, err), "DEFAULT_FREQUENCY")
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 4),
		},
		Data: DataConfig{
			EnsemblesFile:    getEnvOrDefault("ENSEMBLES_FILE", "ensembles.yaml"),
			DefaultFrequency: freq,
			LoadConcurrency:  getEnvIntOrDefault("LOAD_CONCURRENCY", 4),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT must not be empty")
	}
	if config.Data.EnsemblesFile == "" {
		return errors.ConfigInvalid("ENSEMBLES_FILE must not be empty")
	}
	if config.Data.LoadConcurrency < 1 {
		return errors.ConfigInvalid("LOAD_CONCURRENCY must be at least 1")
	}
	return nil
}

// Source kinds of a catalog ensemble
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// EnsembleSource locates the raw data of one ensemble
type EnsembleSource struct {
	Name string `yaml:"name"`
	// Source is "file" (default) or "postgres"
	Source string `yaml:"source"`
	// Path of an xlsx or csv file, relative to the catalog file
	Path string `yaml:"path"`
	// Sheet selects the xlsx worksheet; the first sheet when empty
	Sheet string `yaml:"sheet"`
}

// Catalog is the YAML ensemble catalog: the ensembles to load plus
// predefined delta ensembles and calculated expressions
type Catalog struct {
	Ensembles   []EnsembleSource  `yaml:"ensembles"`
	Deltas      []ensemble.Delta  `yaml:"deltas"`
	Expressions []calc.Expression `yaml:"expressions"`
}

// LoadCatalog reads and validates the catalog at path. Relative file paths
// are resolved against the catalog's directory and expressions without an
// id get a fresh one.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.WithCode(errors.CodeConfigInvalid, err), "read ensemble catalog %s", path)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, errors.Wrapf(err, "ensemble catalog %s", path)
	}
	dir := filepath.Dir(path)
	for i := range catalog.Ensembles {
		src := &catalog.Ensembles[i]
		if src.Source == SourceFile && !filepath.IsAbs(src.Path) {
			src.Path = filepath.Join(dir, src.Path)
		}
	}
	return catalog, nil
}

// ParseCatalog decodes and validates catalog YAML
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	names := make(map[string]bool, len(catalog.Ensembles))
	for i := range catalog.Ensembles {
		src := &catalog.Ensembles[i]
		if src.Source == "" {
			src.Source = SourceFile
		}
		switch {
		case src.Name == "":
			return nil, errors.ConfigInvalid(fmt.Sprintf("ensemble #%d has no name", i+1))
		case names[src.Name]:
			return nil, errors.ConfigInvalid(fmt.Sprintf("ensemble %q listed twice", src.Name))
		case src.Source != SourceFile && src.Source != SourcePostgres:
			return nil, errors.ConfigInvalid(fmt.Sprintf("ensemble %q has unknown source %q", src.Name, src.Source))
		case src.Source == SourceFile && src.Path == "":
			return nil, errors.ConfigInvalid(fmt.Sprintf("ensemble %q needs a path", src.Name))
		}
		names[src.Name] = true
	}

	for _, d := range catalog.Deltas {
		if err := d.Validate(); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, err)
		}
		if !names[d.A] || !names[d.B] {
			return nil, errors.ConfigInvalid(fmt.Sprintf("delta %s references an unknown ensemble", d.Name()))
		}
	}

	for i := range catalog.Expressions {
		if catalog.Expressions[i].ID.String() == "" {
			catalog.Expressions[i].ID = core.NewExpressionID()
		}
	}
	return &catalog, nil
}

// FileSources returns the ensembles read from files
func (c *Catalog) FileSources() []EnsembleSource {
	return c.sources(SourceFile)
}

// PostgresSources returns the ensembles read from the database
func (c *Catalog) PostgresSources() []EnsembleSource {
	return c.sources(SourcePostgres)
}

func (c *Catalog) sources(kind string) []EnsembleSource {
	var out []EnsembleSource
	for _, src := range c.Ensembles {
		if src.Source == kind {
			out = append(out, src)
		}
	}
	return out
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
