package orchestrator

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/voxkit/transcription"
)

// BatchResult is the outcome of one request in a batch. Exactly one of
// Result and Err is set.
type BatchResult struct {
	RequestID string
	Result    *transcription.TranscriptionResult
	Err       error
}

// ProcessBatch runs reqs with at most BatchConcurrency in flight. Results
// are in request order. A failed request does not stop the others.
func (o *Orchestrator) ProcessBatch(ctx context.Context, reqs []transcription.AudioRequest) []BatchResult {
	return o.ProcessBatchWith(ctx, reqs, o.cfg.Models())
}

// ProcessBatchWith is ProcessBatch with explicit models.
func (o *Orchestrator) ProcessBatchWith(ctx context.Context, reqs []transcription.AudioRequest, models Models) []BatchResult {
	results := make([]BatchResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(o.cfg.BatchConcurrency)
	for i, req := range reqs {
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		results[i].RequestID = req.ID
		g.Go(func() error {
			results[i].Result, results[i].Err = o.ProcessWith(ctx, req, models)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
