package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/spachava753/contacttidy/contacts"
	"github.com/spachava753/contacttidy/dedupe"
)

type printer struct {
	w    io.Writer
	json bool

	green  func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
	red    func(a ...any) string
	faint  func(a ...any) string
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	return &printer{
		w:      w,
		json:   asJSON,
		green:  color.New(color.FgGreen).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
		faint:  color.New(color.Faint).SprintFunc(),
	}
}

func (p *printer) printJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output failed: %w", err)
	}
	return nil
}

func (p *printer) ok(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.green("✓"), fmt.Sprintf(format, args...))
}

func (p *printer) warn(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.yellow("⚠"), fmt.Sprintf(format, args...))
}

func (p *printer) fail(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.red("✗"), fmt.Sprintf(format, args...))
}

func (p *printer) contactLine(c contacts.Contact) {
	parts := []string{p.cyan(c.ResourceID)}
	if name := c.DisplayName(); name != "" {
		parts = append(parts, name)
	}
	if email := c.PrimaryEmail(); email != "" {
		parts = append(parts, email)
	}
	if phone := c.PrimaryPhone(); phone != "" {
		parts = append(parts, phone)
	}
	fmt.Fprintf(p.w, "  %s\n", strings.Join(parts, "  "))
}

func (p *printer) group(group dedupe.DuplicateGroup) {
	fmt.Fprintf(p.w, "%s %s %s\n",
		p.yellow(fmt.Sprintf("%-5s", group.Kind)),
		fmt.Sprintf("%3d%%", group.Confidence),
		p.faint(group.MatchValue))
	for _, c := range group.Contacts {
		p.contactLine(c)
	}
}

// contactView is the JSON shape of a contact.
type contactView struct {
	ResourceID    string   `json:"resource_id"`
	Name          string   `json:"name,omitempty"`
	Emails        []string `json:"emails,omitempty"`
	Phones        []string `json:"phones,omitempty"`
	Addresses     []string `json:"addresses,omitempty"`
	Organizations []string `json:"organizations,omitempty"`
}

func viewContact(c contacts.Contact) contactView {
	v := contactView{ResourceID: c.ResourceID, Name: c.DisplayName()}
	for _, e := range c.Emails {
		v.Emails = append(v.Emails, e.Value)
	}
	for _, ph := range c.Phones {
		v.Phones = append(v.Phones, ph.Value)
	}
	for _, a := range c.Addresses {
		v.Addresses = append(v.Addresses, a.Line())
	}
	for _, o := range c.Organizations {
		v.Organizations = append(v.Organizations, o.Name)
	}
	return v
}

func viewContacts(list []contacts.Contact) []contactView {
	out := make([]contactView, len(list))
	for i, c := range list {
		out[i] = viewContact(c)
	}
	return out
}

type groupView struct {
	Kind       dedupe.MatchKind `json:"kind"`
	MatchValue string           `json:"match_value"`
	Confidence int              `json:"confidence"`
	Contacts   []contactView    `json:"contacts"`
}

func viewGroups(groups []dedupe.DuplicateGroup) []groupView {
	out := make([]groupView, len(groups))
	for i, g := range groups {
		out[i] = groupView{
			Kind:       g.Kind,
			MatchValue: g.MatchValue,
			Confidence: g.Confidence,
			Contacts:   viewContacts(g.Contacts),
		}
	}
	return out
}

type writeResultView struct {
	ResourceID string `json:"resource_id,omitempty"`
	Succeeded  bool   `json:"succeeded"`
	Error      string `json:"error,omitempty"`
}

func viewWriteResults(results []contacts.WriteResult) []writeResultView {
	out := make([]writeResultView, len(results))
	for i, r := range results {
		out[i] = writeResultView{ResourceID: r.ResourceID, Succeeded: r.Succeeded}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}
