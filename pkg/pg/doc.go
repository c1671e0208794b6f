// Package pg provides PostgreSQL bootstrap helpers on top of the pgx/v5
// driver: pooled connections with startup retries, embedded goose schema
// migrations, and a readiness probe.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.MigrateFS(ctx, pool, queue.MigrationsFS, "migrations", cfg, log); err != nil {
//		return err
//	}
//
// IsNotFoundError unwraps pgx's no-rows sentinel so storage code can map it
// to its own domain error.
package pg
