package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Format(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 8)
	assert.NotEqual(t, id, NewID())
}

func TestWithID_RoundTrip(t *testing.T) {
	ctx := WithID(context.Background(), "abcd1234")

	id, ok := ID(ctx)
	require.True(t, ok)
	assert.Equal(t, "abcd1234", id)
}

func TestID_MissingFromContext(t *testing.T) {
	_, ok := ID(context.Background())
	assert.False(t, ok)
}

func TestHandler_InjectsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithID(context.Background(), "abcd1234")
	logger.InfoContext(ctx, "something happened")

	assert.Contains(t, buf.String(), "correlation_id=abcd1234")
}

func TestHandler_NoIDNoAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "something happened")

	assert.NotContains(t, buf.String(), "correlation_id")
}
