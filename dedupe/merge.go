package dedupe

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spachava753/contacttidy/contacts"
)

// Engine merges duplicate contacts in an injected Directory.
type Engine struct {
	dir    contacts.Directory
	logger *zap.Logger
	batch  BatchOptions
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithBatchOptions sets the batching used for follow-up deletes.
func WithBatchOptions(opts BatchOptions) Option {
	return func(e *Engine) { e.batch = opts }
}

// NewEngine creates an Engine backed by dir.
func NewEngine(dir contacts.Directory, opts ...Option) *Engine {
	e := &Engine{
		dir:    dir,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MergeOptions controls Merge.
type MergeOptions struct {
	// DeleteSources deletes every source after the target was updated.
	DeleteSources bool
}

// MergeResult describes one merge.
//
// Deleted lists the source ids the directory confirmed removed; it is shorter
// than Sources when some deletions failed. DeleteResults holds the outcome of
// every attempted deletion.
type MergeResult struct {
	Merged        contacts.Contact
	Sources       []contacts.Contact
	Deleted       []string
	DeleteResults []contacts.WriteResult
}

// FullyMerged reports whether every source was deleted.
func (r MergeResult) FullyMerged() bool {
	return len(r.Deleted) == len(r.Sources)
}

// Merge folds the emails, phones and addresses of sources into target with a
// single directory update. Names and organizations keep the target's values.
//
// An update failure fails the merge and nothing is deleted. Deletion failures
// never fail the merge; they are reported in MergeResult.DeleteResults.
func (e *Engine) Merge(ctx context.Context, target contacts.Contact, sources []contacts.Contact, opts MergeOptions) (MergeResult, error) {
	if target.ResourceID == "" {
		return MergeResult{}, contacts.Invalid("merge target has no resource id")
	}

	emails := UnionEmails(target, sources...)
	phones := UnionPhones(target, sources...)
	addresses := UnionAddresses(target, sources...)

	merged, err := e.dir.Update(ctx, target.ResourceID, contacts.FieldUpdate{
		Emails:    &emails,
		Phones:    &phones,
		Addresses: &addresses,
	})
	if err != nil {
		return MergeResult{}, fmt.Errorf("dedupe: updating merge target %s failed: %w", target.ResourceID, err)
	}

	log := e.logger.With(zap.String("target", target.ResourceID), zap.Int("sources", len(sources)))
	log.Info("merged contact",
		zap.Int("emails", len(emails)),
		zap.Int("phones", len(phones)),
		zap.Int("addresses", len(addresses)),
	)

	result := MergeResult{
		Merged:  merged,
		Sources: sources,
		Deleted: []string{},
	}
	if !opts.DeleteSources || len(sources) == 0 {
		return result, nil
	}

	ids := make([]string, len(sources))
	for i, source := range sources {
		ids[i] = source.ResourceID
	}
	result.DeleteResults = DeleteAll(ctx, e.dir, ids, e.batch)
	result.Deleted = Succeeded(result.DeleteResults)
	for _, r := range result.DeleteResults {
		if !r.Succeeded {
			log.Warn("deleting merged source failed", zap.String("source", r.ResourceID), zap.Error(r.Err))
		}
	}

	return result, nil
}

// MergeByID fetches target and sources from the directory and merges them.
func (e *Engine) MergeByID(ctx context.Context, targetID string, sourceIDs []string, opts MergeOptions) (MergeResult, error) {
	if err := validateMergeIDs(targetID, sourceIDs); err != nil {
		return MergeResult{}, err
	}

	target, err := e.dir.Get(ctx, targetID)
	if err != nil {
		return MergeResult{}, fmt.Errorf("dedupe: fetching merge target %s failed: %w", targetID, err)
	}

	sources := make([]contacts.Contact, 0, len(sourceIDs))
	for _, id := range sourceIDs {
		source, err := e.dir.Get(ctx, id)
		if err != nil {
			return MergeResult{}, fmt.Errorf("dedupe: fetching merge source %s failed: %w", id, err)
		}
		sources = append(sources, source)
	}

	return e.Merge(ctx, target, sources, opts)
}

func validateMergeIDs(targetID string, sourceIDs []string) error {
	if targetID == "" {
		return contacts.Invalid("merge target id is required")
	}
	if len(sourceIDs) == 0 {
		return contacts.Invalid("at least one merge source is required")
	}
	seen := map[string]struct{}{}
	var errs []error
	for _, id := range sourceIDs {
		switch {
		case id == "":
			errs = append(errs, contacts.Invalid("merge source id is empty"))
		case id == targetID:
			errs = append(errs, contacts.Invalid("contact %q cannot be merged into itself", id))
		default:
			if _, ok := seen[id]; ok {
				errs = append(errs, contacts.Invalid("merge source %q is listed twice", id))
			}
			seen[id] = struct{}{}
		}
	}
	return errors.Join(errs...)
}

// UnionEmails returns the target's emails followed by each source's emails,
// de-duplicated case-insensitively. The first entry is marked primary.
func UnionEmails(target contacts.Contact, sources ...contacts.Contact) []contacts.Email {
	var all []contacts.Email
	for _, c := range withTarget(target, sources) {
		all = append(all, c.Emails...)
	}
	return union(all, func(e contacts.Email) string { return contacts.NormalizeEmail(e.Value) },
		func(e contacts.Email, primary bool) contacts.Email { e.Primary = primary; return e })
}

// UnionPhones returns the target's phones followed by each source's phones,
// de-duplicated by digits. The first entry is marked primary.
func UnionPhones(target contacts.Contact, sources ...contacts.Contact) []contacts.Phone {
	var all []contacts.Phone
	for _, c := range withTarget(target, sources) {
		all = append(all, c.Phones...)
	}
	return union(all, func(p contacts.Phone) string { return contacts.NormalizePhone(p.Value) },
		func(p contacts.Phone, primary bool) contacts.Phone { p.Primary = primary; return p })
}

// UnionAddresses returns the target's addresses followed by each source's
// addresses, de-duplicated by normalized single-line form. The first entry is
// marked primary.
func UnionAddresses(target contacts.Contact, sources ...contacts.Contact) []contacts.Address {
	var all []contacts.Address
	for _, c := range withTarget(target, sources) {
		all = append(all, c.Addresses...)
	}
	return union(all, func(a contacts.Address) string { return contacts.NormalizeAddress(a.Line()) },
		func(a contacts.Address, primary bool) contacts.Address { a.Primary = primary; return a })
}

func withTarget(target contacts.Contact, sources []contacts.Contact) []contacts.Contact {
	return append([]contacts.Contact{target}, sources...)
}

// union keeps the first entry per non-empty key, in order.
func union[T any](entries []T, key func(T) string, mark func(T, bool) T) []T {
	out := make([]T, 0, len(entries))
	seen := map[string]struct{}{}
	for _, entry := range entries {
		k := key(entry)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, mark(entry, len(out) == 0))
	}
	return out
}
