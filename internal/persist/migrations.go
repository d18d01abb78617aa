package persist

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNoSchema means the journal tables were never created.
var ErrNoSchema = errors.New("journal schema not found; start simd with the journal enabled first")

func (db *DB) withGoose(fn func(*sql.DB) error) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	conn := stdlib.OpenDBFromPool(db.Pool)
	defer conn.Close()
	return fn(conn)
}

// Migrate brings the journal schema up to date and returns its version.
func (db *DB) Migrate(ctx context.Context) (int64, error) {
	var version int64
	err := db.withGoose(func(conn *sql.DB) error {
		if err := goose.UpContext(ctx, conn, "migrations"); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		v, err := goose.GetDBVersionContext(ctx, conn)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		version = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	db.log.Info("journal schema ready", zap.Int64("version", version))
	return version, nil
}

// CheckSchema fails with ErrNoSchema when no migration was ever applied. It
// never migrates, so read-only tools can use it.
func (db *DB) CheckSchema(ctx context.Context) error {
	return db.withGoose(func(conn *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, conn)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		if v == 0 {
			return ErrNoSchema
		}
		return nil
	})
}
