package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopradar/config"
	"shopradar/httputil"
	"shopradar/logging"
	"shopradar/scheduler"
	"shopradar/scraper"
	"shopradar/services"
	"shopradar/storage"
	"shopradar/workers"
)

var (
	batchNow = flag.Bool("batch", false, "Run the configured batch once and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting shopradar...")

	log.Printf("Loaded %d platform configs", len(cfg.Platforms))
	for id, platform := range cfg.Platforms {
		log.Printf("  - %s (%s)", platform.Name, id)
	}

	clients := httputil.NewClients(&cfg.Proxy)
	if cfg.Proxy.URL != "" {
		log.Printf("Proxy: %s", cfg.Proxy.URL)
	}

	ctx := context.Background()

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer store.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	dispatcher, err := scraper.NewDispatcher(cfg, clients)
	if err != nil {
		log.Fatalf("Failed to build dispatcher: %v", err)
	}

	normalizer := services.NewNormalizer(nil)
	tracker := services.NewPriceTracker(store, cfg.Tracker.NoiseThresholdPct)

	pipeline := services.NewPipeline(dispatcher, normalizer, tracker)
	pipeline.SetRunRecorder(store)
	pipeline.AddSink(store)
	pipeline.AddSink(storage.NewDatasetWriter(cfg.DatasetDir))

	// Postgres mirror (required when configured)
	if cfg.Postgres.URL != "" {
		pgSink, err := storage.NewPostgresSink(ctx, cfg.Postgres.URL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgSink.Close()
		pipeline.AddSink(pgSink)
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.Postgres.URL))
	}

	// S3 archive (best effort)
	if cfg.S3.Enabled() {
		s3Sink, err := storage.NewS3Exporter(ctx, cfg.S3)
		if err != nil {
			log.Printf("Warning: S3 export disabled: %v", err)
		} else {
			pipeline.AddSink(s3Sink)
			log.Printf("S3 export: bucket %s", cfg.S3.Bucket)
		}
	}

	// Handle one-shot batch
	if *batchNow {
		log.Println("Running batch...")
		result, err := pipeline.RunBatch(ctx, cfg.Batch.ToRequest())
		if err != nil {
			log.Fatalf("Batch failed: %v", err)
		}
		log.Printf("Batch complete: %d products, %d price changes, %d alerts, %d failed jobs",
			len(result.Products), len(result.PriceChanges), len(result.Alerts), len(result.JobFailures))
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg, pipeline)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	retention := workers.NewRetentionWorker(store, cfg.Tracker.HistoryLimit)
	go retention.Run(ctx, time.Hour) // prune hourly
	log.Println("Retention worker started")

	if cfg.Alerts.WebhookURL != "" {
		notifier := workers.NewAlertNotifier(store, cfg.Alerts.WebhookURL)
		go notifier.Run(ctx, 20, time.Minute) // batch of 20 every minute
		log.Println("Alert notifier started")
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	// Simple mask - find :// and mask until @
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	// Find : after user
	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
