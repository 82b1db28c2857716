package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSampleRate(t *testing.T) {
	assert.Equal(t, 1.0, DefaultSampleRate(""))
	assert.Equal(t, 1.0, DefaultSampleRate("development"))
	assert.Equal(t, 0.1, DefaultSampleRate("production"))
	assert.Equal(t, 0.1, DefaultSampleRate("staging"))
}

func TestInit_WithoutDSNIsNoop(t *testing.T) {
	shutdown, err := Init(Config{})

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestHelpers_WithoutClient(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "RetrievalService.Search", SpanAttributes{TopK: 2, Operation: "search"})
	require.NotNil(t, ctx)

	span.SetTag("retrieval_path", "keyword")
	span.SetError(errors.New("embed query: timeout"))
	RecordFallback(ctx, errors.New("embed query: timeout"))
	CaptureError(ctx, errors.New("boom"))
	CaptureMessage(ctx, "corpus source unavailable")
	span.End()

	_, tx := StartTransaction(context.Background(), "IndexWarmer.Warm", "job.index_warm")
	tx.End()
}
