// Command bizctl is the operator CLI: schema migrations, outbox replay and
// one-off runs of the background jobs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"freelanceos/internal/config"
	"freelanceos/pkg/db"
	"freelanceos/pkg/logger"
)

// env carries the lazily opened infrastructure shared by subcommands.
type env struct {
	log  *zap.Logger
	cfg  *config.Config
	pool *pgxpool.Pool
}

func (e *env) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := db.NewConnection(cfg.DB, e.log)
	if err != nil {
		return fmt.Errorf("connecting db: %w", err)
	}
	e.cfg, e.pool = cfg, pool
	return nil
}

func (e *env) close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

func main() {
	e := &env{log: logger.NewLogger()}
	defer e.log.Sync()

	root := &cobra.Command{
		Use:           "bizctl",
		Short:         "Operate the freelance business backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.open(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			e.close()
		},
	}
	root.AddCommand(migrateCmd(e), outboxCmd(e), invoicesCmd(e))

	if err := root.ExecuteContext(context.Background()); err != nil {
		e.close()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
