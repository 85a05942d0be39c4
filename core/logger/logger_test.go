package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sqsx/core/logger"
)

type ctxKey struct{}

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithProduction("consumer"),
		logger.WithOutput(&buf),
		logger.WithAttr(slog.String("region", "us-east-1")),
	)

	log.Info("task processed", logger.TaskName("my_task"))
	log.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "task processed", rec["msg"])
	assert.Equal(t, "consumer", rec["service"])
	assert.Equal(t, "production", rec["env"])
	assert.Equal(t, "us-east-1", rec["region"])
	assert.Equal(t, "my_task", rec["task_name"])
}

func TestNew_Development(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithDevelopment("consumer"), logger.WithOutput(&buf))
	log.Debug("no message received, waiting")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "env=development")
}

func TestNew_ContextValue(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithJSONFormatter(),
		logger.WithOutput(&buf),
		logger.WithContextValue("consumer_id", ctxKey{}),
	).With(slog.String("component", "queue"))

	ctx := context.WithValue(context.Background(), ctxKey{}, "c-1")
	log.InfoContext(ctx, "starting consuming messages")
	log.InfoContext(context.Background(), "without value")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "c-1", first["consumer_id"])
	assert.Equal(t, "queue", first["component"])
	assert.NotContains(t, second, "consumer_id")
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	log := logger.Discard()
	require.NotNil(t, log)
	log.Error("dropped")
}
