// Command mcp serves the business tools over the MCP stdio transport.
//
// Logs go to stderr so they never interleave with protocol frames on stdout.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"freelanceos/internal/config"
	"freelanceos/internal/mcptools"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/inbox"
	"freelanceos/internal/service/report"
	"freelanceos/internal/service/task"
	"freelanceos/pkg/db"
	"freelanceos/pkg/llm"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	log := zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.Lock(os.Stderr),
		zap.InfoLevel,
	))
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		return fmt.Errorf("connecting db: %w", err)
	}
	defer dbConn.Close()

	inv, err := llm.New(context.Background(), cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("creating llm client: %w", err)
	}

	stores := repository.NewPostgresStores(dbConn, log)
	s := mcptools.NewServer(version, mcptools.Services{
		Reports: report.NewService(stores, log),
		Tasks:   task.NewService(stores.Tasks, inv, log),
		Inbox:   inbox.NewService(stores.Messages, stores.Clients, stores.Projects, inv, log),
	})
	return server.ServeStdio(s)
}
