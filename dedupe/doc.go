// Package dedupe finds contacts that likely describe the same person and
// collapses them into one.
//
// Matching runs in three fixed phases over a snapshot of contacts:
//
//   - email: contacts sharing a normalized primary email (confidence 100)
//   - phone: contacts sharing a primary phone of at least 7 digits (confidence 100)
//   - name: pairs whose primary names score at least the threshold with Similarity
//
// Pairs grouped by an exact phase are excluded from the name phase, so a pair
// is never reported twice. FindDuplicates is pure and never fails.
//
// Engine performs merges against an injected contacts.Directory:
//
//	engine := dedupe.NewEngine(dir, dedupe.WithLogger(logger))
//	result, err := engine.MergeByID(ctx, "people/c1", []string{"people/c2"},
//		dedupe.MergeOptions{DeleteSources: true})
//
// A merge unions emails, phones and addresses into the target with one update
// call, then deletes the sources in paced concurrent batches. Deletion
// failures are reported per source in MergeResult.DeleteResults rather than
// failing the merge.
//
// AutoMerge drives Merge over every group, recording per-group failures
// without stopping. With DryRun set it only counts the merges it would run.
package dedupe
