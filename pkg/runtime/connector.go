package runtime

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver
)

// Supported database/sql driver names.
const (
	DriverPQ  = "postgres"
	DriverPgx = "pgx"
)

// Connect opens a connection pool for dsn using driver ("postgres" when
// empty).
func Connect(driver, dsn string) (*sql.DB, error) {
	// If the DSN is empty, throw an error.
	if dsn == "" {
		return nil, fmt.Errorf("DSN is empty")
	}
	switch driver {
	case "":
		driver = DriverPQ
	case DriverPQ, DriverPgx:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	// Ensure SSL mode is disabled by default if not specified.
	if strings.HasPrefix(dsn, "postgres://") && !strings.Contains(dsn, "sslmode=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn = dsn + sep + "sslmode=disable"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

// PoolConfig describes a database/sql pool.
type PoolConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Open connects with cfg and applies its pool limits. Zero limits keep the
// database/sql defaults.
func Open(cfg PoolConfig) (*sql.DB, error) {
	db, err := Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	return db, nil
}
