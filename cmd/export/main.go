package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"slotbook/internal/config"
	"slotbook/internal/export"
	"slotbook/internal/logging"
	"slotbook/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (defaults to CONFIG_PATH or configs/config.yaml)")
	outDir := flag.String("out", "", "output directory (defaults to export.path from config)")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	var store storage.Store
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		sqliteStore, err := storage.NewSQLiteStore(cfg.Storage.Path, logger)
		if err != nil {
			return fmt.Errorf("init sqlite store: %w", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	default:
		fileStore, err := storage.NewFileStore(cfg.Storage.Path, logger)
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
		store = fileStore
	}

	dir := *outDir
	if dir == "" {
		dir = cfg.Export.Path
	}
	if dir == "" {
		dir = "exports"
	}

	bookings := store.ReadAll()
	filePath, err := export.WriteExcel(bookings, dir)
	if err != nil {
		return err
	}

	logger.Info().Int("bookings", len(bookings)).Str("file_path", filePath).Msg("export complete")
	return nil
}
