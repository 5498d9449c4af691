// Command sheets-import runs a one-shot batch import from a Google
// Sheets spreadsheet into the local store. The sheet uses the same
// header-driven layout as CSV uploads.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/amqp"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/config"
	applog "github.com/shubhamchaurasiya12/Carbon-Tracker/internal/log"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/services"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/sheets"
	gsheet "github.com/shubhamchaurasiya12/Carbon-Tracker/internal/sheets/google"
	"github.com/shubhamchaurasiya12/Carbon-Tracker/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentSheets,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for sheets import")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Events are optional for a manual import run.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		events = amqpClient
	}

	client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	var source sheets.ImportSource = client

	rows, err := source.ReadRows(ctx)
	if err != nil {
		logger.Error("Failed to read spreadsheet rows", "error", err,
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
		os.Exit(1)
	}
	if len(rows) == 0 {
		logger.Info("No rows to import")
		return
	}

	inserted, err := services.NewImportService(repo, events).ImportBatch(ctx, rows)
	if err != nil {
		logger.Error("Import aborted, nothing committed", "error", err, "rows", len(rows))
		os.Exit(1)
	}

	logger.Info("Sheets import completed",
		"rows", len(rows),
		"inserted", inserted,
		"skipped", len(rows)-inserted)
}
