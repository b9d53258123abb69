package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const upSuffix = ".up.sql"

// Pending returns migration names in fsys not yet listed in applied, in order.
func Pending(fsys fs.FS, applied map[string]bool) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), upSuffix) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), upSuffix)
		if !applied[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Run applies every pending migration, each in its own transaction, and returns how many ran.
func Run(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, logger *zap.Logger) (int, error) {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := pool.Query(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return 0, fmt.Errorf("list applied migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, err
		}
		applied[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	pending, err := Pending(fsys, applied)
	if err != nil {
		return 0, err
	}

	for _, name := range pending {
		sql, err := fs.ReadFile(fsys, name+upSuffix)
		if err != nil {
			return 0, fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			_ = tx.Rollback(ctx)
			return 0, fmt.Errorf("migration %s failed: %w", name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback(ctx)
			return 0, fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, err
		}
		logger.Info("Migration applied", zap.String("migration", name))
	}

	if len(pending) == 0 {
		logger.Info("All migrations already applied")
	}
	return len(pending), nil
}
