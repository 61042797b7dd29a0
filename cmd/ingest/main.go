package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vanshika/ownergraph/backend/internal/bootstrap"
	"github.com/vanshika/ownergraph/backend/internal/config"
	"github.com/vanshika/ownergraph/backend/internal/generator"
	"github.com/vanshika/ownergraph/backend/internal/logging"
	"github.com/vanshika/ownergraph/backend/internal/service"
)

var (
	errMissingDataset = errors.New("dataset not found")
)

func main() {
	var (
		datasetDir = flag.String("dataset-dir", "./seed-data", "Directory containing entities.json and links.json")
		orgID      = flag.String("org", "", "Organization to ingest into (defaults to DEFAULT_ORG_ID)")
		workers    = flag.Int("workers", 4, "Number of concurrent workers for ingestion")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	if err := checkDataset(*datasetDir); err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}
	dataset, err := generator.ReadDataset(*datasetDir)
	if err != nil {
		logger.Error("failed to load dataset", "error", err, "dir", *datasetDir)
		os.Exit(1)
	}
	if len(dataset.Entities) == 0 {
		logger.Error("entities dataset empty", "dir", *datasetDir)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Graph.URI == "" {
		logger.Error("GRAPH_URI is required for ingestion")
		os.Exit(1)
	}
	store, err := bootstrap.OpenStore(ctx, logger, cfg.Graph)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	org := *orgID
	if org == "" {
		org = cfg.DefaultOrgID
	}

	svc := service.NewComplianceService(store, nil)
	ingestor := service.NewBulkIngestor(svc, org, *workers).WithProgress(progressLogger(logger))

	start := time.Now()
	logger.Info("ingesting contacts", "count", len(dataset.Entities), "workers", *workers, "org", org)
	if err := ingestor.IngestEntities(ctx, dataset.Entities); err != nil {
		logger.Error("contact ingestion failed", "error", err)
		os.Exit(1)
	}

	logger.Info("ingesting links", "count", len(dataset.Links))
	if err := ingestor.IngestLinks(ctx, dataset.Links); err != nil {
		logger.Error("link ingestion failed", "error", err)
		os.Exit(1)
	}

	logger.Info("ingestion complete", "duration", time.Since(start).String(), "contacts", len(dataset.Entities), "links", len(dataset.Links))
}

func checkDataset(dir string) error {
	for _, name := range []string{generator.EntitiesFile, generator.LinksFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %s", errMissingDataset, path)
		}
	}
	return nil
}
