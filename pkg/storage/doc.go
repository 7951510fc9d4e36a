// Package storage provides the database and Redis plumbing shared by the
// audit log, identity store and settings store.
//
// # Overview
//
// Two SQL dialects are supported through database/sql:
//
//   - postgres (github.com/lib/pq) for production
//   - sqlite3 (github.com/mattn/go-sqlite3) for local development and tests
//
// Statements elsewhere in the module are written once with $N placeholders,
// ON CONFLICT upserts and RETURNING clauses, which both dialects accept.
//
// # Usage
//
//	db, err := storage.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	if err := storage.Migrate(ctx, db, cfg.Driver); err != nil {
//		return err
//	}
//
// Migrate is idempotent and only issues CREATE ... IF NOT EXISTS statements.
//
// # Redis
//
// NewRedisClient parses a redis:// URL, applies pool settings and pings the
// server. The client backs the distributed rate limiter.
package storage
