package storage

import (
	"context"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/newsward/ingest/internal/config"
	"github.com/newsward/ingest/internal/logger"
)

// NewClient creates a new Elasticsearch client and verifies the connection.
func NewClient(ctx context.Context, cfg *config.ElasticsearchConfig, log logger.Interface) (*es.Client, error) {
	clientConfig := es.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
	} else if cfg.Username != "" && cfg.Password != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	client, err := es.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch ping failed: %s", res.String())
	}

	log.Info("Elasticsearch connection established", "addresses", cfg.Addresses)
	return client, nil
}
