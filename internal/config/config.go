// Package config loads the queryfilterd TOML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hugr-lab/queryfilter/auth"
	"github.com/hugr-lab/queryfilter/schema"
	"github.com/hugr-lab/queryfilter/source/sqldb"
)

// DefaultListen is used when the config sets no listen address.
const DefaultListen = "localhost:50051"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the daemon configuration.
//
//	listen = "0.0.0.0:50051"
//	log_level = "debug"
//
//	[database]
//	driver = "sqlite"
//	dsn = "file:pets.db?mode=ro"
//
//	[[datasets]]
//	name = "pets"
//	table = "main.pets"
//	columns = [
//	  { name = "id", type = "int" },
//	  { name = "name", type = "string", column = "full_name" },
//	]
//
//	[[tokens]]
//	token = "secret"
//	identity = "reporting"
//	datasets = ["pets"]
type Config struct {
	// Listen is the TCP address to serve on.
	Listen string `toml:"listen"`

	// Address is the public address advertised in Flight endpoints.
	Address string `toml:"address"`

	// LogLevel is one of debug, info, warn or error. Defaults to info.
	LogLevel string `toml:"log_level"`

	// MaxMessageSize limits gRPC messages in bytes; 0 keeps the gRPC default.
	MaxMessageSize int `toml:"max_message_size"`

	Database Database  `toml:"database"`
	Datasets []Dataset `toml:"datasets"`

	// Tokens enables bearer authentication when not empty.
	Tokens []Token `toml:"tokens"`
}

// Database selects the SQL driver and connection string.
type Database struct {
	// Driver is "duckdb" or "sqlite".
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// Dataset exposes one table.
type Dataset struct {
	Name    string   `toml:"name"`
	Table   string   `toml:"table"`
	Columns []Column `toml:"columns"`
}

// Column declares a dataset field.
type Column struct {
	Name string `toml:"name"`
	Type string `toml:"type"`

	// Column is the table column when it differs from Name.
	Column string `toml:"column"`
}

// Token grants an identity access to datasets; no datasets means all.
type Token struct {
	Token    string   `toml:"token"`
	Identity string   `toml:"identity"`
	Datasets []string `toml:"datasets"`
}

// LoadFrom reads and validates the configuration at path. Unknown keys are
// rejected so that typos do not silently change behaviour.
func LoadFrom(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration without touching the database.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Dialect(); err != nil {
		errs = append(errs, err)
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if len(c.Datasets) == 0 {
		errs = append(errs, errors.New("at least one dataset is required"))
	}

	seen := make(map[string]bool, len(c.Datasets))
	for i, ds := range c.Datasets {
		if ds.Name == "" {
			errs = append(errs, fmt.Errorf("datasets[%d]: name is required", i))
			continue
		}
		if seen[ds.Name] {
			errs = append(errs, fmt.Errorf("datasets[%d]: duplicate name %q", i, ds.Name))
		}
		seen[ds.Name] = true
		if ds.Table == "" {
			errs = append(errs, fmt.Errorf("dataset %q: table is required", ds.Name))
		}
		if _, _, err := ds.RowSchema(); err != nil {
			errs = append(errs, fmt.Errorf("dataset %q: %w", ds.Name, err))
		}
	}

	for i, tok := range c.Tokens {
		if tok.Token == "" || tok.Identity == "" {
			errs = append(errs, fmt.Errorf("tokens[%d]: token and identity are required", i))
		}
		for _, name := range tok.Datasets {
			if !seen[name] {
				errs = append(errs, fmt.Errorf("tokens[%d]: unknown dataset %q", i, name))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Level parses LogLevel; empty means info.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Dialect resolves the database driver.
func (c *Config) Dialect() (sqldb.Dialect, error) {
	d, err := sqldb.ParseDialect(c.Database.Driver)
	if err != nil {
		return 0, fmt.Errorf("database.driver: %w", err)
	}
	return d, nil
}

// Authenticator returns the token table, or nil when no tokens are set.
func (c *Config) Authenticator() auth.Authenticator {
	if len(c.Tokens) == 0 {
		return nil
	}
	grants := make([]auth.Grant, len(c.Tokens))
	for i, tok := range c.Tokens {
		grants[i] = auth.Grant{Token: tok.Token, Identity: tok.Identity, Datasets: tok.Datasets}
	}
	return auth.NewStaticTokens(grants...)
}

// RowSchema builds the record schema of the dataset and the field to
// column mapping for sqldb.Options.
func (d *Dataset) RowSchema() (*schema.Schema[sqldb.Row], map[string]string, error) {
	if len(d.Columns) == 0 {
		return nil, nil, errors.New("at least one column is required")
	}
	cols := make([]sqldb.Column, len(d.Columns))
	mapping := make(map[string]string)
	for i, c := range d.Columns {
		t, err := schema.ParseFieldType(c.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		cols[i] = sqldb.Column{Name: c.Name, Type: t}
		if c.Column != "" && c.Column != c.Name {
			mapping[c.Name] = c.Column
		}
	}
	sch, err := sqldb.RowSchema(cols...)
	if err != nil {
		return nil, nil, err
	}
	return sch, mapping, nil
}
