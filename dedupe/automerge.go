package dedupe

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/spachava753/contacttidy/contacts"
)

const (
	// DefaultDetectThreshold is the name similarity needed to report a pair.
	DefaultDetectThreshold = 80
	// DefaultAutoMergeThreshold is the name similarity needed to merge a pair
	// without review.
	DefaultAutoMergeThreshold = 95
	// DefaultMaxResults caps the candidate set read from the directory.
	DefaultMaxResults = 1000
)

// AutoMergeOptions controls AutoMerge.
type AutoMergeOptions struct {
	Criteria  []MatchKind
	Threshold int
	DryRun    bool
}

// GroupOutcome is the result of merging one duplicate group.
//
// Target and Sources are the ids actually merged, after following earlier
// merges in the same run. Skipped is set when an earlier group already
// absorbed every member.
type GroupOutcome struct {
	Kind    MatchKind
	Target  string
	Sources []string
	Success bool
	Skipped bool
	Error   string
	Deleted []string
}

// AutoMergeOutcome summarizes an AutoMerge run.
//
// PerGroup is nil for dry runs.
type AutoMergeOutcome struct {
	OperationCount int
	PerGroup       []GroupOutcome
	Groups         []DuplicateGroup
	Considered     int
}

// Failed returns the number of groups whose merge failed.
func (o AutoMergeOutcome) Failed() int {
	n := 0
	for _, g := range o.PerGroup {
		if !g.Success && !g.Skipped {
			n++
		}
	}
	return n
}

// AutoMerge finds duplicates in candidates and merges every group into its
// first contact, deleting the others.
//
// Groups can share contacts, so each merge re-reads its members from the
// directory and redirects ids deleted by an earlier merge to the contact that
// absorbed them. Sources that no longer exist are dropped.
//
// A failed group is recorded in PerGroup and never stops the batch. In dry-run
// mode the directory is not touched and only OperationCount is filled in.
func (e *Engine) AutoMerge(ctx context.Context, candidates []contacts.Contact, opts AutoMergeOptions) AutoMergeOutcome {
	match := FindDuplicates(candidates, MatchOptions{Criteria: opts.Criteria, Threshold: opts.Threshold})
	outcome := AutoMergeOutcome{Groups: match.Groups, Considered: match.Considered}

	e.logger.Debug("auto-merge candidates matched",
		zap.Int("considered", match.Considered),
		zap.Int("groups", len(match.Groups)),
		zap.Bool("dry_run", opts.DryRun),
	)

	absorbed := absorption{}
	for _, group := range match.Groups {
		if len(group.Contacts) < 2 {
			continue
		}
		outcome.OperationCount++
		if opts.DryRun {
			continue
		}

		entry := e.mergeGroup(ctx, group, absorbed)
		if entry.Error != "" {
			e.logger.Warn("auto-merge group failed",
				zap.String("target", entry.Target),
				zap.Strings("sources", entry.Sources),
				zap.String("error", entry.Error),
			)
		}
		outcome.PerGroup = append(outcome.PerGroup, entry)
	}

	return outcome
}

// absorption maps a deleted source id to the target that absorbed it.
type absorption map[string]string

func (a absorption) resolve(id string) string {
	for {
		next, ok := a[id]
		if !ok || next == id {
			return id
		}
		id = next
	}
}

func (e *Engine) mergeGroup(ctx context.Context, group DuplicateGroup, absorbed absorption) GroupOutcome {
	targetID := absorbed.resolve(group.Contacts[0].ResourceID)
	entry := GroupOutcome{Kind: group.Kind, Target: targetID, Sources: []string{}}
	for _, c := range group.Contacts[1:] {
		id := absorbed.resolve(c.ResourceID)
		if id != targetID && !slices.Contains(entry.Sources, id) {
			entry.Sources = append(entry.Sources, id)
		}
	}
	if len(entry.Sources) == 0 {
		entry.Skipped = true
		return entry
	}

	target, err := e.dir.Get(ctx, targetID)
	if err != nil {
		entry.Error = fmt.Errorf("dedupe: fetching merge target %s failed: %w", targetID, err).Error()
		return entry
	}
	sources := make([]contacts.Contact, 0, len(entry.Sources))
	for _, id := range entry.Sources {
		source, err := e.dir.Get(ctx, id)
		switch {
		case contacts.IsNotFound(err):
			e.logger.Debug("auto-merge source already gone", zap.String("source", id))
			continue
		case err != nil:
			entry.Error = fmt.Errorf("dedupe: fetching merge source %s failed: %w", id, err).Error()
			return entry
		}
		sources = append(sources, source)
	}
	entry.Sources = resourceIDs(sources)
	if len(sources) == 0 {
		entry.Skipped = true
		return entry
	}

	result, err := e.Merge(ctx, target, sources, MergeOptions{DeleteSources: true})
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	entry.Success = true
	entry.Deleted = result.Deleted
	for _, id := range result.Deleted {
		absorbed[id] = targetID
	}
	return entry
}

// DetectOptions controls Detect.
type DetectOptions struct {
	Criteria   []MatchKind
	Threshold  int
	MaxResults int
}

// Detect lists up to MaxResults contacts from the directory and groups
// likely duplicates.
func (e *Engine) Detect(ctx context.Context, opts DetectOptions) (MatchResult, error) {
	candidates, err := e.candidates(ctx, opts.MaxResults)
	if err != nil {
		return MatchResult{}, err
	}
	return FindDuplicates(candidates, MatchOptions{Criteria: opts.Criteria, Threshold: opts.Threshold}), nil
}

// AutoMergeDirectory lists up to maxResults contacts from the directory and
// runs AutoMerge over them.
func (e *Engine) AutoMergeDirectory(ctx context.Context, maxResults int, opts AutoMergeOptions) (AutoMergeOutcome, error) {
	candidates, err := e.candidates(ctx, maxResults)
	if err != nil {
		return AutoMergeOutcome{}, err
	}
	return e.AutoMerge(ctx, candidates, opts), nil
}

func (e *Engine) candidates(ctx context.Context, maxResults int) ([]contacts.Contact, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	candidates, err := e.dir.List(ctx, maxResults)
	if err != nil {
		return nil, fmt.Errorf("dedupe: listing candidate contacts failed: %w", err)
	}
	return candidates, nil
}

func resourceIDs(list []contacts.Contact) []string {
	ids := make([]string, len(list))
	for i, c := range list {
		ids[i] = c.ResourceID
	}
	return ids
}
