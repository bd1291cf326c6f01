// Manages roomdb.yaml, the configuration stored in the data directory.

// Package config loads and validates the roomdb configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/maruel/roomdb/internal/auditlog"
	"github.com/maruel/roomdb/internal/csvdb"
	"github.com/maruel/roomdb/internal/models"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file name inside the data directory.
const FileName = "roomdb.yaml"

// Config stores every setting of a data directory.
// Loaded from roomdb.yaml, created with defaults if missing.
type Config struct {
	// LogLevel is the minimum level of diagnostics written to stderr.
	LogLevel string `yaml:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,description=Minimum level of diagnostic logs"`

	// AuditLog is the operations log path, relative to the data directory
	// unless absolute. Empty disables the operations log.
	AuditLog string `yaml:"audit_log" jsonschema:"description=Operations log path; must end in .csv; empty disables it"`

	// SequenceSeed picks where id sequences start on each run. With "one",
	// the default, ids restart at 1 in every process, so a CLI that inserts
	// once per run needs "max" to avoid CONFLICT on the second insert.
	SequenceSeed string `yaml:"sequence_seed" jsonschema:"enum=one,enum=max,description=Start ids at 1 (one) or after the largest stored id (max)"`

	// EmailDomain is the domain user emails must belong to.
	EmailDomain string `yaml:"email_domain" jsonschema:"description=Required suffix of user emails including the @"`

	// History commits every table change to a git repository in the data
	// directory.
	History bool `yaml:"history" jsonschema:"description=Snapshot table files into a git repository after each write"`

	// Tables overrides table file names per kind.
	Tables map[string]string `yaml:"tables,omitempty" jsonschema:"description=Table file name per kind relative to the data directory"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		LogLevel:     "info",
		AuditLog:     auditlog.DefaultFile,
		SequenceSeed: string(csvdb.SeedOne),
		EmailDomain:  models.DefaultEmailDomain,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.AuditLog != "" && !strings.EqualFold(filepath.Ext(c.AuditLog), ".csv") {
		return errors.New("audit_log must have a .csv extension")
	}
	if _, err := csvdb.ParseSeedPolicy(c.SequenceSeed); err != nil {
		return fmt.Errorf("sequence_seed: %w", err)
	}
	if !strings.HasPrefix(c.EmailDomain, "@") || len(c.EmailDomain) < 2 {
		return errors.New("email_domain must start with @ and name a domain")
	}
	seen := make(map[string]string, len(c.Tables))
	for kind, name := range c.Tables {
		if _, err := models.ParseKind(kind); err != nil {
			return fmt.Errorf("tables: %w", err)
		}
		if name == "" || filepath.IsAbs(name) || !filepath.IsLocal(name) {
			return fmt.Errorf("tables: %s must be a relative path inside the data directory, got %q", kind, name)
		}
		if other, ok := seen[filepath.Clean(name)]; ok {
			return fmt.Errorf("tables: %s and %s share %q", other, kind, name)
		}
		seen[filepath.Clean(name)] = kind
	}
	return nil
}

// Level returns LogLevel parsed. Validate must have succeeded.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	_ = lvl.UnmarshalText([]byte(c.LogLevel))
	return lvl
}

// SeedPolicy returns SequenceSeed parsed. Validate must have succeeded.
func (c *Config) SeedPolicy() csvdb.SeedPolicy {
	p, _ := csvdb.ParseSeedPolicy(c.SequenceSeed)
	return p
}

// Files returns the table file overrides keyed by kind.
func (c *Config) Files() map[models.Kind]string {
	out := make(map[models.Kind]string, len(c.Tables))
	for k, v := range c.Tables {
		out[models.Kind(k)] = v
	}
	return out
}

// AuditLogPath resolves AuditLog against dataDir. It returns "" when the
// operations log is disabled.
func (c *Config) AuditLogPath(dataDir string) string {
	if c.AuditLog == "" || filepath.IsAbs(c.AuditLog) {
		return c.AuditLog
	}
	return filepath.Join(dataDir, c.AuditLog)
}

// Load loads configuration from dataDir/roomdb.yaml.
// Creates the file with defaults if it doesn't exist.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, FileName)

	cfg := Default()
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
		}
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/roomdb.yaml.
func (c *Config) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, FileName), data, 0o644); err != nil { //nolint:gosec // G306: not a secret
		return fmt.Errorf("failed to write %s: %w", FileName, err)
	}
	return nil
}

// Schema returns the JSON Schema of the configuration file.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{FieldNameTag: "yaml", DoNotReference: true}
	s := r.Reflect(&Config{})
	s.Title = FileName
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}
