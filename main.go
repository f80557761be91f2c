package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"car-ads/classifier"
	"car-ads/config"
	"car-ads/models"
	"car-ads/scraper/telegram"
	"car-ads/services"
	"car-ads/storage"
	"car-ads/utils"
)

func main() {
	cfg := config.Load()

	logger, err := utils.NewLoggerWith(utils.LoggerOptions{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		logger.Warn("Logger setup: %v", err)
	}

	logger.Info("=== Car Ads Pipeline starting ===")
	logger.Info("Config: channels %v | live fetch: %v | store: %s | messages: %s",
		cfg.Channels, cfg.FetchLive, cfg.StoreDriver, cfg.MessagesPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cal, err := config.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		logger.Error("Failed to load calibration: %v", err)
		os.Exit(1)
	}

	relevance, err := classifier.FromCorpus(cal.Relevance)
	if err != nil {
		logger.Error("Failed to train relevance classifier: %v", err)
		os.Exit(1)
	}
	var recognizer classifier.EntityRecognizer
	if len(cal.Entities) > 0 {
		recognizer = classifier.NewGazetteer(cal.Entities)
	}

	pipeline := services.NewPipeline(cal, relevance, recognizer, logger.Component("pipeline"))
	store := storage.NewMessageStore(cfg.MessagesPath)

	result := processBatch(ctx, cfg, logger, store, pipeline)
	for _, c := range result.Conditions {
		logger.Warn("Batch condition: %s", c)
	}
	if len(result.Listings) == 0 {
		logger.Error("No listings were extracted. Exiting.")
		os.Exit(1)
	}

	filter := services.NewListingFilter(cfg.Filter)
	listings := filter.Apply(result.Listings)
	if filter.Active() {
		logger.Info("Filter kept %d of %d listings", len(listings), len(result.Listings))
	}

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
	} else {
		if err := csvWriter.Write(result.RunID, result.Listings); err != nil {
			logger.Error("CSV write failed: %v", err)
		} else {
			logger.Info("Listings saved to %s", cfg.CSVOutputPath)
		}
		csvWriter.Close()
	}

	if cfg.ParquetOutputPath != "" {
		exportParquet(cfg.ParquetOutputPath, result, logger)
	}

	dbListings := listings
	if db := openStore(ctx, cfg, logger); db != nil {
		defer db.Close()
		if err := db.Write(result.RunID, result.Listings); err != nil {
			logger.Error("%s write failed: %v", cfg.StoreDriver, err)
		} else {
			logger.Info("Listings stored in %s (table: listings)", cfg.StoreDriver)
			if !filter.Active() {
				if stored, err := db.FetchAll(); err != nil {
					logger.Error("Failed to fetch listings from DB for insights: %v", err)
				} else {
					dbListings = stored
				}
			}
		}
	}

	insightSvc := services.NewInsightService(logger)
	report := insightSvc.Generate(dbListings)
	insightSvc.Print(report)

	fmt.Printf("  Done. Run %s | CSV → %s | %d accepted, %d suspect, %d irrelevant\n\n",
		result.RunID, cfg.CSVOutputPath, result.Stats.Accepted, result.Stats.Suspect, result.Stats.Irrelevant)
}

// processBatch reads the batch from Telegram when live fetching is enabled,
// saving it to the line store, and from the line store otherwise.
func processBatch(ctx context.Context, cfg *config.Config, logger *utils.Logger, store *storage.MessageStore, pipeline *services.Pipeline) *models.BatchResult {
	if cfg.FetchLive {
		msgs, err := telegram.New(cfg, logger).Fetch(ctx)
		switch {
		case err != nil:
			logger.Error("Telegram fetch failed: %v, falling back to %s", err, store.Path())
		case len(msgs) == 0:
			logger.Warn("Telegram returned no messages, falling back to %s", store.Path())
		default:
			if err := store.Write(msgs); err != nil {
				logger.Warn("Could not save fetched messages: %v", err)
			} else {
				logger.Info("Saved %d messages to %s", len(msgs), store.Path())
			}
			return pipeline.Process(msgs)
		}
	}

	lines, err := store.ReadLines()
	if err != nil {
		return pipeline.Unavailable(err)
	}
	logger.Info("Read %d lines from %s", len(lines), store.Path())
	return pipeline.ProcessLines(lines)
}

func exportParquet(path string, result *models.BatchResult, logger *utils.Logger) {
	pw, err := storage.NewParquetWriter(path)
	if err != nil {
		logger.Error("Failed to create parquet writer: %v", err)
		return
	}
	defer pw.Close()
	if err := pw.Write(result.RunID, result.Listings); err != nil {
		logger.Error("Parquet write failed: %v", err)
		return
	}
	logger.Info("Listings saved to %s", path)
}

// openStore connects the SQL backend selected by STORE_DRIVER; it returns nil
// for "none" or when the backend is unreachable.
func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) storage.ListingStore {
	var (
		store storage.ListingStore
		err   error
	)
	switch cfg.StoreDriver {
	case "postgres":
		store, err = storage.NewPostgresWriter(ctx, cfg.DSN(), logger)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Make sure Docker is running: docker compose up -d")
			return nil
		}
	case "sqlite":
		store, err = storage.NewSQLiteWriter(cfg.SQLitePath)
		if err != nil {
			logger.Error("Failed to open sqlite database: %v", err)
			return nil
		}
	case "", "none":
		return nil
	default:
		logger.Warn("Unknown STORE_DRIVER %q, skipping database export", cfg.StoreDriver)
		return nil
	}
	return store
}
