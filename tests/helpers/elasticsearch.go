// Package helpers provides testing utilities for integration tests.
package helpers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/elasticsearch"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// ElasticsearchPassword is the password the test container starts with.
	ElasticsearchPassword = "changeme"

	startupTimeout    = 60 * time.Second
	healthMaxRetries  = 30
	healthHTTPTimeout = 5 * time.Second
)

// ElasticsearchContainer manages a test Elasticsearch instance.
type ElasticsearchContainer struct {
	container testcontainers.Container
	Address   string
}

// StartElasticsearch starts an Elasticsearch container and waits for it to
// answer cluster health checks. Stop the returned container with Stop().
func StartElasticsearch(ctx context.Context) (*ElasticsearchContainer, error) {
	esContainer, err := elasticsearch.Run(
		ctx,
		"docker.elastic.co/elasticsearch/elasticsearch:8.11.0",
		elasticsearch.WithPassword(ElasticsearchPassword),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/").WithPort("9200/tcp").WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start elasticsearch container: %w", err)
	}

	host, err := esContainer.Host(ctx)
	if err != nil {
		_ = esContainer.Terminate(ctx)
		return nil, fmt.Errorf("container host: %w", err)
	}
	mappedPort, err := esContainer.MappedPort(ctx, "9200")
	if err != nil {
		_ = esContainer.Terminate(ctx)
		return nil, fmt.Errorf("container port: %w", err)
	}

	address := "http://" + net.JoinHostPort(host, mappedPort.Port())
	if waitErr := waitForElasticsearch(ctx, address); waitErr != nil {
		_ = esContainer.Terminate(ctx)
		return nil, fmt.Errorf("wait for elasticsearch: %w", waitErr)
	}

	return &ElasticsearchContainer{container: esContainer, Address: address}, nil
}

// Stop stops and removes the container.
func (e *ElasticsearchContainer) Stop(ctx context.Context) error {
	if e.container == nil {
		return nil
	}
	return e.container.Terminate(ctx)
}

// GetAddresses returns the address list in the shape the Elasticsearch
// config expects.
func (e *ElasticsearchContainer) GetAddresses() []string {
	return []string{e.Address}
}

// waitForElasticsearch polls cluster health until it answers.
func waitForElasticsearch(ctx context.Context, address string) error {
	client := &http.Client{Timeout: healthHTTPTimeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address+"/_cluster/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth("elastic", ElasticsearchPassword)

	for range healthMaxRetries {
		resp, doErr := client.Do(req)
		if doErr == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}

	return fmt.Errorf("elasticsearch did not become ready within %d attempts", healthMaxRetries)
}
