package dedupe

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spachava753/contacttidy/contacts"
)

const (
	// DefaultBatchSize is the number of concurrent writes per batch.
	DefaultBatchSize = 5
	// DefaultBatchPacing is the minimum spacing between batch starts.
	DefaultBatchPacing = 100 * time.Millisecond
)

// BatchOptions controls RunBatches. Zero values use the defaults; a negative
// Pacing disables pacing.
type BatchOptions struct {
	Size   int
	Pacing time.Duration
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.Size <= 0 {
		o.Size = DefaultBatchSize
	}
	if o.Pacing == 0 {
		o.Pacing = DefaultBatchPacing
	}
	return o
}

// RunBatches calls fn for every item in fixed-size batches. Calls inside a
// batch run concurrently and each outcome is recorded independently, so one
// failure never cancels its siblings. Batch starts are paced to stay under
// backend rate limits.
//
// Results are returned in item order. If ctx is cancelled, items that were
// not started are reported with the context error.
func RunBatches[T any](ctx context.Context, items []T, opts BatchOptions, fn func(context.Context, T) contacts.WriteResult) []contacts.WriteResult {
	opts = opts.withDefaults()
	results := make([]contacts.WriteResult, len(items))

	limit := rate.Inf
	if opts.Pacing > 0 {
		limit = rate.Every(opts.Pacing)
	}
	limiter := rate.NewLimiter(limit, 1)

	for start := 0; start < len(items); start += opts.Size {
		if err := limiter.Wait(ctx); err != nil {
			for i := start; i < len(items); i++ {
				results[i] = contacts.WriteResult{Err: err}
			}
			break
		}

		end := min(start+opts.Size, len(items))
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				results[i] = fn(ctx, items[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	return results
}

// DeleteAll deletes every id through RunBatches and returns one result per id.
func DeleteAll(ctx context.Context, dir contacts.Directory, ids []string, opts BatchOptions) []contacts.WriteResult {
	results := RunBatches(ctx, ids, opts, func(ctx context.Context, id string) contacts.WriteResult {
		if err := dir.Delete(ctx, id); err != nil {
			return contacts.WriteResult{ResourceID: id, Err: err}
		}
		return contacts.WriteResult{ResourceID: id, Succeeded: true}
	})
	for i := range results {
		results[i].ResourceID = ids[i]
	}
	return results
}

// CreateAll creates every draft through RunBatches. ResourceID is set for
// drafts the directory accepted.
func CreateAll(ctx context.Context, dir contacts.Directory, drafts []contacts.Draft, opts BatchOptions) []contacts.WriteResult {
	return RunBatches(ctx, drafts, opts, func(ctx context.Context, draft contacts.Draft) contacts.WriteResult {
		created, err := dir.Create(ctx, draft)
		if err != nil {
			return contacts.WriteResult{Err: err}
		}
		return contacts.WriteResult{ResourceID: created.ResourceID, Succeeded: true}
	})
}

// Succeeded returns the resource ids of successful results, in order.
func Succeeded(results []contacts.WriteResult) []string {
	ids := make([]string, 0, len(results))
	for _, result := range results {
		if result.Succeeded {
			ids = append(ids, result.ResourceID)
		}
	}
	return ids
}
