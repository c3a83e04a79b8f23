package dedupe

import (
	"context"
	"errors"
	"testing"

	"github.com/nalgeon/be"

	"github.com/spachava753/contacttidy/contacts"
)

func emailValues(list []contacts.Email) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.Value
	}
	return out
}

func TestUnionEmails(t *testing.T) {
	target := contacts.Contact{Emails: []contacts.Email{{Value: "t1@x.com"}}}
	source := contacts.Contact{Emails: []contacts.Email{{Value: "T1@X.com", Primary: true}, {Value: "s1@x.com", Label: "work"}}}

	merged := UnionEmails(target, source)
	be.Equal(t, emailValues(merged), []string{"t1@x.com", "s1@x.com"})
	be.True(t, merged[0].Primary)
	be.True(t, !merged[1].Primary)
	be.Equal(t, merged[1].Label, "work")
}

func TestUnionEmailsDropsBlank(t *testing.T) {
	target := contacts.Contact{Emails: []contacts.Email{{Value: "  "}}}
	source := contacts.Contact{Emails: []contacts.Email{{Value: "s@x.com"}}}
	merged := UnionEmails(target, source)
	be.Equal(t, emailValues(merged), []string{"s@x.com"})
	be.True(t, merged[0].Primary)
}

func TestUnionPhones(t *testing.T) {
	target := contacts.Contact{Phones: []contacts.Phone{{Value: "(555) 123-4567", Primary: true}}}
	a := contacts.Contact{Phones: []contacts.Phone{{Value: "555.123.4567", Primary: true}, {Value: "555-000-1111"}}}
	b := contacts.Contact{Phones: []contacts.Phone{{Value: "5550001111"}, {Value: "+44 20 7946 0958", Primary: true}}}

	merged := UnionPhones(target, a, b)
	be.Equal(t, len(merged), 3)
	be.Equal(t, merged[0].Value, "(555) 123-4567")
	be.Equal(t, merged[1].Value, "555-000-1111")
	be.Equal(t, merged[2].Value, "+44 20 7946 0958")
	be.True(t, merged[0].Primary)
	be.True(t, !merged[1].Primary && !merged[2].Primary)
}

func TestUnionAddresses(t *testing.T) {
	target := contacts.Contact{Addresses: []contacts.Address{{Formatted: "1 Main St, Springfield"}}}
	source := contacts.Contact{Addresses: []contacts.Address{
		{Street: "1 main st", City: "SPRINGFIELD", Primary: true},
		{Formatted: "9 Elm Rd"},
	}}

	merged := UnionAddresses(target, source)
	be.Equal(t, len(merged), 2)
	be.Equal(t, merged[0].Formatted, "1 Main St, Springfield")
	be.Equal(t, merged[1].Formatted, "9 Elm Rd")
	be.True(t, merged[0].Primary)
	be.True(t, !merged[1].Primary)
}

func TestUnionTargetOnly(t *testing.T) {
	target := contacts.Contact{Emails: []contacts.Email{{Value: "b@x.com"}, {Value: "a@x.com", Primary: true}}}
	merged := UnionEmails(target)
	be.Equal(t, emailValues(merged), []string{"b@x.com", "a@x.com"})
	be.True(t, merged[0].Primary)
	be.True(t, !merged[1].Primary)
}

func TestMergeUnionsAndKeepsIdentity(t *testing.T) {
	target := person("people/t", "Jane Doe", "t1@x.com", "")
	target.Organizations = []contacts.Organization{{Name: "Acme"}}
	source := person("people/s", "Janie", "t1@x.com", "5551234567")
	source.Emails = append(source.Emails, contacts.Email{Value: "s1@x.com"})
	source.Organizations = []contacts.Organization{{Name: "Globex"}}
	dir := newMemDirectory(target, source)

	engine := NewEngine(dir, WithBatchOptions(noPacing))
	result, err := engine.Merge(context.Background(), target, []contacts.Contact{source}, MergeOptions{})
	be.Err(t, err, nil)

	be.Equal(t, result.Merged.ResourceID, "people/t")
	be.Equal(t, emailValues(result.Merged.Emails), []string{"t1@x.com", "s1@x.com"})
	be.Equal(t, result.Merged.Phones[0].Value, "5551234567")
	be.Equal(t, result.Merged.DisplayName(), "Jane Doe")
	be.Equal(t, result.Merged.Organizations[0].Name, "Acme")
	be.Equal(t, ids(result.Sources), []string{"people/s"})
	be.Equal(t, len(result.Deleted), 0)

	updates, deletes := dir.calls()
	be.Equal(t, updates, 1)
	be.Equal(t, deletes, 0)

	stored, err := dir.Get(context.Background(), "people/s")
	be.Err(t, err, nil)
	be.Equal(t, stored.ResourceID, "people/s")
}

func TestMergeDeletesSources(t *testing.T) {
	target := person("people/t", "Jane", "a@x.com", "")
	sources := []contacts.Contact{
		person("people/s1", "Jane", "b@x.com", ""),
		person("people/s2", "Jane", "c@x.com", ""),
	}
	dir := newMemDirectory(append([]contacts.Contact{target}, sources...)...)

	engine := NewEngine(dir, WithBatchOptions(noPacing))
	result, err := engine.Merge(context.Background(), target, sources, MergeOptions{DeleteSources: true})
	be.Err(t, err, nil)
	be.Equal(t, result.Deleted, []string{"people/s1", "people/s2"})
	be.True(t, result.FullyMerged())

	_, err = dir.Get(context.Background(), "people/s1")
	be.True(t, contacts.IsNotFound(err))
}

func TestMergePartialDeleteFailure(t *testing.T) {
	target := person("people/t", "Jane", "a@x.com", "")
	sources := []contacts.Contact{
		person("people/s1", "Jane", "b@x.com", ""),
		person("people/s2", "Jane", "c@x.com", ""),
		person("people/s3", "Jane", "d@x.com", ""),
	}
	dir := newMemDirectory(append([]contacts.Contact{target}, sources...)...)
	dir.failDelete["people/s2"] = errBackend

	engine := NewEngine(dir, WithBatchOptions(noPacing))
	result, err := engine.Merge(context.Background(), target, sources, MergeOptions{DeleteSources: true})
	be.Err(t, err, nil)
	be.Equal(t, result.Deleted, []string{"people/s1", "people/s3"})
	be.True(t, !result.FullyMerged())
	be.Equal(t, len(result.DeleteResults), 3)
	be.Equal(t, result.DeleteResults[1].ResourceID, "people/s2")
	be.True(t, !result.DeleteResults[1].Succeeded)
	be.Err(t, result.DeleteResults[1].Err, errBackend)
	be.Equal(t, len(result.Merged.Emails), 4)
}

func TestMergeUpdateFailureIsFatal(t *testing.T) {
	target := person("people/t", "Jane", "a@x.com", "")
	source := person("people/s", "Jane", "b@x.com", "")
	dir := newMemDirectory(target, source)
	dir.failUpdate["people/t"] = errBackend

	engine := NewEngine(dir, WithBatchOptions(noPacing))
	_, err := engine.Merge(context.Background(), target, []contacts.Contact{source}, MergeOptions{DeleteSources: true})
	be.Err(t, err, errBackend)

	_, deletes := dir.calls()
	be.Equal(t, deletes, 0)
}

func TestMergeRequiresTargetID(t *testing.T) {
	engine := NewEngine(newMemDirectory())
	_, err := engine.Merge(context.Background(), contacts.Contact{}, nil, MergeOptions{})
	be.Equal(t, contacts.CodeOf(err), contacts.ErrorCodeValidation)
}

func TestMergeByID(t *testing.T) {
	target := person("people/t", "Jane", "a@x.com", "")
	source := person("people/s", "Jane", "b@x.com", "5551234567")
	dir := newMemDirectory(target, source)

	engine := NewEngine(dir, WithBatchOptions(noPacing))
	result, err := engine.MergeByID(context.Background(), "people/t", []string{"people/s"}, MergeOptions{DeleteSources: true})
	be.Err(t, err, nil)
	be.Equal(t, emailValues(result.Merged.Emails), []string{"a@x.com", "b@x.com"})
	be.Equal(t, result.Sources[0].PrimaryPhone(), "5551234567")
	be.Equal(t, result.Deleted, []string{"people/s"})
}

func TestMergeByIDMissingSource(t *testing.T) {
	dir := newMemDirectory(person("people/t", "Jane", "a@x.com", ""))
	engine := NewEngine(dir)

	_, err := engine.MergeByID(context.Background(), "people/t", []string{"people/gone"}, MergeOptions{})
	be.True(t, contacts.IsNotFound(err))
	updates, _ := dir.calls()
	be.Equal(t, updates, 0)
}

func TestMergeByIDValidation(t *testing.T) {
	engine := NewEngine(newMemDirectory())
	ctx := context.Background()

	cases := [][]string{
		nil,
		{"people/t"},
		{"people/s", "people/s"},
		{""},
	}
	for _, sources := range cases {
		_, err := engine.MergeByID(ctx, "people/t", sources, MergeOptions{})
		be.Equal(t, contacts.CodeOf(err), contacts.ErrorCodeValidation)
	}

	_, err := engine.MergeByID(ctx, "", []string{"people/s"}, MergeOptions{})
	be.Equal(t, contacts.CodeOf(err), contacts.ErrorCodeValidation)
}

func TestMergeByIDJoinedValidation(t *testing.T) {
	err := validateMergeIDs("people/t", []string{"people/t", "people/s", "people/s"})
	be.Err(t, err, "merged into itself")
	be.Err(t, err, "listed twice")

	var typed *contacts.Error
	be.True(t, errors.As(err, &typed))
}
