// Package common provides shared dependency construction for the CLI
// commands.
package common

import (
	"context"
	"fmt"

	"github.com/newsward/ingest/internal/config"
	"github.com/newsward/ingest/internal/logger"
	"github.com/newsward/ingest/internal/storage"
)

// Deps holds the dependencies every command starts from.
type Deps struct {
	Config *config.Config
	Logger logger.Interface
}

// NewCommandDeps loads configuration and builds the logger.
func NewCommandDeps(cfgFile string, debug bool) (*Deps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &Deps{Config: cfg, Logger: log}, nil
}

// NewStorage connects to Elasticsearch and verifies the connection.
func NewStorage(ctx context.Context, deps *Deps) (*storage.Storage, error) {
	client, err := storage.NewClient(ctx, deps.Config.Elasticsearch, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect to storage: %w", err)
	}
	return storage.New(client, deps.Logger), nil
}
