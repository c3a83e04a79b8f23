// Package contacts defines the typed contact model shared by every
// contacttidy package, plus the Directory interface the dedupe engine is
// built against.
//
// A Contact carries ordered field groups (names, emails, phones, addresses,
// organizations). The first entry of each group is the primary one and is
// the only entry used for duplicate comparisons.
//
// The composition model is:
//
//	Directory.List -> dedupe.FindDuplicates -> dedupe.Engine.Merge -> Directory.Update/Delete
//
// # Normalization
//
// NormalizeName, NormalizePhone, NormalizeEmail and NormalizeAddress are pure
// functions used both for matching and for de-duplicating field values during
// merges. Empty input normalizes to the empty string.
//
// # Errors
//
// Directory implementations return *Error values with a Code so callers can
// classify failures without depending on a backend:
//
//	c, err := dir.Get(ctx, "people/c123")
//	if contacts.IsNotFound(err) {
//		// the contact was merged or deleted since it was listed
//	}
package contacts
