// Package config loads the database/tables/limits configuration
// surface described in spec.md §6, the way the teacher project reads
// flags and environment variables in internal/cli/helpers.go, but
// sourced from the environment so the core library has no CLI
// dependency.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/accented-ai/quadsparql/internal/apperr"
)

// identifierPattern matches spec.md §3: alphanumeric plus "_"/"-", no
// "__".
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type Database struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

type Tables struct {
	GlobalPrefix string
}

type Limits struct {
	TermCacheSize  int
	GraphCacheSize int
	QueryTimeoutMS int
	MaxRows        int
	MaxPathDepth   int
	MaxAlgebraNodes int
}

type Config struct {
	Database Database
	Tables   Tables
	Limits   Limits
}

// ValidateIdentifier enforces spec.md §3's space/prefix identifier
// rule: alphanumeric plus "_"/"-", never containing "__".
func ValidateIdentifier(id string) error {
	if id == "" || !identifierPattern.MatchString(id) {
		return apperr.New(apperr.KindInvalidIdentifier, "validate identifier",
			fmt.Sprintf("%q is not alphanumeric/underscore/hyphen", id))
	}

	for i := 0; i+1 < len(id); i++ {
		if id[i] == '_' && id[i+1] == '_' {
			return apperr.New(apperr.KindInvalidIdentifier, "validate identifier",
				fmt.Sprintf("%q contains a reserved double underscore", id))
		}
	}

	return nil
}

// Load reads QUADSPARQL_* environment variables into a Config,
// applying the defaults written below when a variable is unset.
func Load() (*Config, error) {
	cfg := &Config{
		Database: Database{
			Host:     getenv("QUADSPARQL_DATABASE_HOST", "localhost"),
			Port:     getenvInt("QUADSPARQL_DATABASE_PORT", 5432),
			Database: getenv("QUADSPARQL_DATABASE_NAME", "quadsparql"),
			User:     getenv("QUADSPARQL_DATABASE_USER", "postgres"),
			Password: os.Getenv("QUADSPARQL_DATABASE_PASSWORD"),
		},
		Tables: Tables{
			GlobalPrefix: getenv("QUADSPARQL_TABLES_GLOBAL_PREFIX", "qs"),
		},
		Limits: Limits{
			TermCacheSize:   getenvInt("QUADSPARQL_LIMITS_TERM_CACHE_SIZE", 100_000),
			GraphCacheSize:  getenvInt("QUADSPARQL_LIMITS_GRAPH_CACHE_SIZE", 10_000),
			QueryTimeoutMS:  getenvInt("QUADSPARQL_LIMITS_QUERY_TIMEOUT_MS", 30_000),
			MaxRows:         getenvInt("QUADSPARQL_LIMITS_MAX_ROWS", 100_000),
			MaxPathDepth:    getenvInt("QUADSPARQL_LIMITS_MAX_PATH_DEPTH", 50),
			MaxAlgebraNodes: getenvInt("QUADSPARQL_LIMITS_MAX_ALGEBRA_NODES", 5_000),
		},
	}

	if err := ValidateIdentifier(cfg.Tables.GlobalPrefix); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidIdentifier, "load config: tables.global_prefix", err)
	}

	return cfg, nil
}

// ConnString builds a libpq-style connection URL for pgxpool.
func (d Database) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Database)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}
