package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsward/ingest/internal/logger"
)

func TestNew(t *testing.T) {
	log, err := logger.New(&logger.Config{Level: "debug", Encoding: "console"})
	require.NoError(t, err)
	require.NotNil(t, log)

	// Derived loggers keep working without affecting the parent.
	child := log.With("component", "test").WithSource("src-1")
	child.Info("message", "key", "value")
	log.Debug("another message")
}

func TestNew_UnknownLevelFallsBack(t *testing.T) {
	log, err := logger.New(&logger.Config{Level: "chatty"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNoOp(t *testing.T) {
	log := logger.NewNoOp()
	log.Info("ignored", "key", "value")
	log.Error("ignored too")
	assert.NotNil(t, log.With("a", 1).WithComponent("x").WithError(nil))
}
