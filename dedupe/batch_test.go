package dedupe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"github.com/spachava753/contacttidy/contacts"
)

func TestRunBatchesKeepsOrderAndIsolatesFailures(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	results := RunBatches(context.Background(), items, BatchOptions{Size: 3, Pacing: -1}, func(_ context.Context, n int) contacts.WriteResult {
		if n%3 == 0 {
			return contacts.WriteResult{ResourceID: fmt.Sprint(n), Err: errBackend}
		}
		return contacts.WriteResult{ResourceID: fmt.Sprint(n), Succeeded: true}
	})

	be.Equal(t, len(results), 7)
	for i, r := range results {
		be.Equal(t, r.ResourceID, fmt.Sprint(items[i]))
	}
	be.Equal(t, Succeeded(results), []string{"1", "2", "4", "5", "7"})
	be.Err(t, results[2].Err, errBackend)
}

func TestRunBatchesBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	items := make([]int, 12)
	RunBatches(context.Background(), items, BatchOptions{Size: 5, Pacing: -1}, func(_ context.Context, _ int) contacts.WriteResult {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return contacts.WriteResult{Succeeded: true}
	})
	be.True(t, peak.Load() <= DefaultBatchSize)
}

func TestRunBatchesPacesBatches(t *testing.T) {
	var mu sync.Mutex
	var starts []time.Time
	items := make([]int, 11)
	RunBatches(context.Background(), items, BatchOptions{Size: 5, Pacing: 20 * time.Millisecond}, func(_ context.Context, _ int) contacts.WriteResult {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return contacts.WriteResult{Succeeded: true}
	})

	be.Equal(t, len(starts), 11)
	first, last := starts[0], starts[0]
	for _, s := range starts {
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	// Three batches need at least two pacing intervals.
	be.True(t, last.Sub(first) >= 35*time.Millisecond)
}

func TestRunBatchesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	results := RunBatches(ctx, []string{"a", "b", "c"}, BatchOptions{Size: 1, Pacing: time.Hour}, func(_ context.Context, id string) contacts.WriteResult {
		calls++
		cancel()
		return contacts.WriteResult{ResourceID: id, Succeeded: true}
	})

	be.Equal(t, calls, 1)
	be.True(t, results[0].Succeeded)
	be.True(t, !results[1].Succeeded)
	be.True(t, errors.Is(results[2].Err, context.Canceled))
}

func TestDeleteAll(t *testing.T) {
	dir := newMemDirectory(
		person("people/c1", "A", "", ""),
		person("people/c2", "B", "", ""),
	)
	results := DeleteAll(context.Background(), dir, []string{"people/c1", "people/missing", "people/c2"}, noPacing)
	be.Equal(t, Succeeded(results), []string{"people/c1", "people/c2"})
	be.Equal(t, results[1].ResourceID, "people/missing")
	be.True(t, contacts.IsNotFound(results[1].Err))
}

func TestCreateAll(t *testing.T) {
	dir := newMemDirectory()
	drafts := []contacts.Draft{
		{Names: []contacts.Name{{DisplayName: "Ann"}}},
		{},
		{Emails: []contacts.Email{{Value: "b@x.com"}}},
	}
	results := CreateAll(context.Background(), dir, drafts, noPacing)
	be.Equal(t, len(results), 3)
	be.True(t, results[0].Succeeded)
	be.True(t, !results[1].Succeeded)
	be.Equal(t, contacts.CodeOf(results[1].Err), contacts.ErrorCodeValidation)
	be.True(t, results[2].Succeeded)

	listed, err := dir.List(context.Background(), 0)
	be.Err(t, err, nil)
	be.Equal(t, len(listed), 2)
}
