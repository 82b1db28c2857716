package jobs

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/finsight/internal/telemetry"
)

// IndexBuilder is the part of the retrieval service the warmer drives.
type IndexBuilder interface {
	IndexReady() bool
	Warm(ctx context.Context) error
}

// IndexWarmer builds the vector index in the background so that the first
// query does not wait for it. Once the index exists every run is a no-op.
type IndexWarmer struct {
	builder IndexBuilder
}

func NewIndexWarmer(builder IndexBuilder) *IndexWarmer {
	return &IndexWarmer{builder: builder}
}

// ProcessJobs implements the JobProcessor interface
func (w *IndexWarmer) ProcessJobs(ctx context.Context) error {
	if w.builder.IndexReady() {
		return nil
	}

	ctx, span := telemetry.StartTransaction(ctx, "IndexWarmer.Warm", "job.index_warm")
	defer span.End()

	if err := w.builder.Warm(ctx); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to warm index: %w", err)
	}
	return nil
}
