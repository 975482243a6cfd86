package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed schema/*.sql
var schemas embed.FS

// Config describes the database connection.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	// Migrate creates the tables when they are missing.
	Migrate bool
}

// Open connects to the configured database and returns a ready repository.
func Open(ctx context.Context, cfg Config) (*Repository, error) {
	dialect, driverName, err := resolveDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("storage dsn is empty")
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}

	if dialect == SQLite {
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}

	if cfg.Migrate {
		if err := migrate(ctx, db, dialect); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return NewRepository(db, dialect), nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	script, err := schemas.ReadFile("schema/" + string(dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func resolveDriver(name string) (Dialect, string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pq":
		return Postgres, "postgres", nil
	case "sqlite", "sqlite3", "":
		return SQLite, "sqlite", nil
	default:
		return "", "", fmt.Errorf("unsupported storage driver %q", name)
	}
}
