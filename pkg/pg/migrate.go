package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// MigrateFS applies schema migrations embedded in fsys. The dir argument is
// the migrations directory inside fsys, typically "migrations" for a
// //go:embed migrations/*.sql declaration.
//
// goose works against database/sql, so the pgx pool is bridged through
// stdlib.OpenDBFromPool; closing the bridge does not close the pool.
func MigrateFS(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir string, cfg Config, log *slog.Logger) error {
	if dir == "" {
		return errors.Join(ErrMigrationFailed, errors.New("migrations directory not set"))
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration db handle", slog.Any("error", err))
		}
	}()

	goose.SetLogger(gooseLogger{ctx: ctx, log: log})
	goose.SetTableName(cfg.MigrationsTable)
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// gooseLogger routes goose's Printf-style output through slog.
type gooseLogger struct {
	ctx context.Context
	log *slog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.ErrorContext(l.ctx, fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.InfoContext(l.ctx, fmt.Sprintf(format, v...))
}
