package dedupe

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spachava753/contacttidy/contacts"
)

// MatchKind identifies the phase that produced a DuplicateGroup.
type MatchKind string

const (
	// MatchEmail groups contacts sharing a normalized primary email.
	MatchEmail MatchKind = "email"
	// MatchPhone groups contacts sharing a normalized primary phone.
	MatchPhone MatchKind = "phone"
	// MatchName pairs contacts whose primary names are similar enough.
	MatchName MatchKind = "name"
)

// minPhoneDigits is the shortest normalized phone considered identifying.
const minPhoneDigits = 7

// AllKinds lists every match kind in phase order.
var AllKinds = []MatchKind{MatchEmail, MatchPhone, MatchName}

// ParseKinds parses kind names such as "email,phone". Blank entries are
// ignored and an empty input yields nil.
func ParseKinds(values ...string) ([]MatchKind, error) {
	var kinds []MatchKind
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			kind := MatchKind(part)
			if !slices.Contains(AllKinds, kind) {
				return nil, fmt.Errorf("dedupe: unknown match criterion %q (want email, phone or name)", part)
			}
			if !slices.Contains(kinds, kind) {
				kinds = append(kinds, kind)
			}
		}
	}
	return kinds, nil
}

// DuplicateGroup is a set of contacts that likely describe the same person.
//
// Confidence is 100 for email and phone groups and the name similarity score
// for name groups.
type DuplicateGroup struct {
	Kind       MatchKind
	MatchValue string
	Confidence int
	Contacts   []contacts.Contact
}

// MatchOptions controls FindDuplicates.
//
// Threshold applies to the name phase only. An empty Criteria runs every
// phase.
type MatchOptions struct {
	Criteria  []MatchKind
	Threshold int
}

// MatchResult is the output of FindDuplicates.
type MatchResult struct {
	Groups     []DuplicateGroup
	Considered int
}

// FindDuplicates groups likely duplicates in three phases: exact primary
// email, exact primary phone, then pairwise fuzzy name similarity.
//
// A pair of contacts grouped by an exact phase is never reported again by the
// name phase. The name phase compares every remaining pair, so callers should
// bound the size of the candidate set.
func FindDuplicates(candidates []contacts.Contact, opts MatchOptions) MatchResult {
	criteria := opts.Criteria
	if len(criteria) == 0 {
		criteria = AllKinds
	}

	claimed := pairSet{}
	var groups []DuplicateGroup

	if slices.Contains(criteria, MatchEmail) {
		groups = append(groups, exactGroups(candidates, MatchEmail, emailKey, claimed)...)
	}
	if slices.Contains(criteria, MatchPhone) {
		groups = append(groups, exactGroups(candidates, MatchPhone, phoneKey, claimed)...)
	}
	if slices.Contains(criteria, MatchName) {
		groups = append(groups, nameGroups(candidates, opts.Threshold, claimed)...)
	}

	slices.SortStableFunc(groups, func(a, b DuplicateGroup) int {
		return b.Confidence - a.Confidence
	})

	return MatchResult{Groups: groups, Considered: len(candidates)}
}

func emailKey(c contacts.Contact) string {
	return contacts.NormalizeEmail(c.PrimaryEmail())
}

func phoneKey(c contacts.Contact) string {
	key := contacts.NormalizePhone(c.PrimaryPhone())
	if len(key) < minPhoneDigits {
		return ""
	}
	return key
}

// exactGroups buckets contacts by key in first-seen order and claims every
// pair inside a bucket of two or more. Members already paired by an earlier
// group are dropped from the bucket, so a bucket left with fewer than two
// members is skipped.
func exactGroups(candidates []contacts.Contact, kind MatchKind, key func(contacts.Contact) string, claimed pairSet) []DuplicateGroup {
	buckets := map[string][]contacts.Contact{}
	var order []string
	for _, c := range candidates {
		k := key(c)
		if k == "" {
			continue
		}
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], c)
	}

	var groups []DuplicateGroup
	for _, k := range order {
		members := buckets[k]
		if len(members) < 2 {
			continue
		}
		members = unclaimedMembers(members, claimed)
		if len(members) < 2 {
			continue
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				claimed.add(members[i].ResourceID, members[j].ResourceID)
			}
		}
		groups = append(groups, DuplicateGroup{
			Kind:       kind,
			MatchValue: k,
			Confidence: 100,
			Contacts:   members,
		})
	}
	return groups
}

func nameGroups(candidates []contacts.Contact, threshold int, claimed pairSet) []DuplicateGroup {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.DisplayName()
	}

	var groups []DuplicateGroup
	for i := 0; i < len(candidates); i++ {
		if contacts.NormalizeName(names[i]) == "" {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			// A missing name is not evidence of a match.
			if contacts.NormalizeName(names[j]) == "" || claimed.has(a.ResourceID, b.ResourceID) {
				continue
			}
			score := Similarity(names[i], names[j])
			if score < threshold {
				continue
			}
			claimed.add(a.ResourceID, b.ResourceID)
			groups = append(groups, DuplicateGroup{
				Kind:       MatchName,
				MatchValue: names[i],
				Confidence: score,
				Contacts:   []contacts.Contact{a, b},
			})
		}
	}
	return groups
}

// unclaimedMembers keeps, in order, each member that forms no claimed pair
// with a member kept before it.
func unclaimedMembers(members []contacts.Contact, claimed pairSet) []contacts.Contact {
	kept := make([]contacts.Contact, 0, len(members))
	for _, c := range members {
		ok := true
		for _, k := range kept {
			if claimed.has(k.ResourceID, c.ResourceID) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, c)
		}
	}
	return kept
}

type pairKey struct {
	lo, hi string
}

type pairSet map[pairKey]struct{}

func newPairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

func (s pairSet) add(a, b string) {
	s[newPairKey(a, b)] = struct{}{}
}

func (s pairSet) has(a, b string) bool {
	_, ok := s[newPairKey(a, b)]
	return ok
}
