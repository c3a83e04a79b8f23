package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spachava753/contacttidy/contacts"
	"github.com/spachava753/contacttidy/dedupe"
	"github.com/spachava753/contacttidy/gmail"
	"github.com/spachava753/contacttidy/macos/messages"
)

// contactFile is the YAML import format:
//
//	contacts:
//	  - name: Jane Doe
//	    emails: [jane@example.com]
//	    phones: ["+1 555 123 4567"]
//	    addresses: ["1 Main St, Springfield"]
//	    organization: Acme
//	    title: Engineer
type contactFile struct {
	Contacts []contactEntry `yaml:"contacts"`
}

type contactEntry struct {
	Name         string   `yaml:"name"`
	GivenName    string   `yaml:"given_name"`
	FamilyName   string   `yaml:"family_name"`
	Emails       []string `yaml:"emails"`
	Phones       []string `yaml:"phones"`
	Addresses    []string `yaml:"addresses"`
	Organization string   `yaml:"organization"`
	Title        string   `yaml:"title"`
}

func (e contactEntry) draft() contacts.Draft {
	var d contacts.Draft
	if e.Name != "" || e.GivenName != "" || e.FamilyName != "" {
		d.Names = []contacts.Name{{
			DisplayName: strings.TrimSpace(e.Name),
			GivenName:   strings.TrimSpace(e.GivenName),
			FamilyName:  strings.TrimSpace(e.FamilyName),
			Primary:     true,
		}}
	}
	for i, v := range e.Emails {
		d.Emails = append(d.Emails, contacts.Email{Value: strings.TrimSpace(v), Primary: i == 0})
	}
	for i, v := range e.Phones {
		d.Phones = append(d.Phones, contacts.Phone{Value: strings.TrimSpace(v), Primary: i == 0})
	}
	for i, v := range e.Addresses {
		d.Addresses = append(d.Addresses, contacts.Address{Formatted: strings.TrimSpace(v), Primary: i == 0})
	}
	if e.Organization != "" || e.Title != "" {
		d.Organizations = []contacts.Organization{{Name: e.Organization, Title: e.Title, Primary: true}}
	}
	return d
}

func readContactFile(path string) ([]contacts.Draft, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s failed: %w", path, err)
	}
	var file contactFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing %s failed: %w", path, err)
	}
	drafts := make([]contacts.Draft, len(file.Contacts))
	for i, entry := range file.Contacts {
		drafts[i] = entry.draft()
	}
	return drafts, nil
}

type importOutput struct {
	Source  string            `json:"source"`
	Drafts  int               `json:"drafts"`
	Created []string          `json:"created"`
	Results []writeResultView `json:"results,omitempty"`
}

// importDrafts creates drafts in batches and reports the outcome.
func (a *app) importDrafts(ctx context.Context, source string, drafts []contacts.Draft, dryRun bool) error {
	a.logger.Debug("importing contacts", zap.String("source", source), zap.Int("drafts", len(drafts)), zap.Bool("dry_run", dryRun))

	out := importOutput{Source: source, Drafts: len(drafts), Created: []string{}}
	if !dryRun {
		results := dedupe.CreateAll(ctx, a.dir, drafts, a.cfg.BatchOptions())
		out.Created = dedupe.Succeeded(results)
		out.Results = viewWriteResults(results)
	}
	failed := len(out.Results) - len(out.Created)

	if a.out.json {
		if err := a.out.printJSON(out); err != nil {
			return err
		}
	} else {
		switch {
		case len(drafts) == 0:
			a.out.ok("Nothing to import from %s", source)
		case dryRun:
			a.out.warn("Dry run: %d contact(s) would be imported from %s", len(drafts), source)
		default:
			a.out.ok("Imported %d of %d contact(s) from %s", len(out.Created), len(drafts), source)
			for i, r := range out.Results {
				if !r.Succeeded {
					a.out.fail("entry %d: %s", i+1, r.Error)
				}
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d contact(s) could not be imported", failed)
	}
	return nil
}

func newImportCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import contacts from a YAML file",
		Long: `Import contacts from a YAML file of the form:

  contacts:
    - name: Jane Doe
      emails: [jane@example.com]
      phones: ["+1 555 123 4567"]
      addresses: ["1 Main St, Springfield"]
      organization: Acme
      title: Engineer`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			drafts, err := readContactFile(args[0])
			if err != nil {
				return err
			}
			return a.importDrafts(cmd.Context(), args[0], drafts, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the file without importing")
	return cmd
}

func newImportMailCmd(a *app) *cobra.Command {
	var (
		mailboxes  []string
		since      string
		limit      int
		recipients bool
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "import-mail",
		Short: "Import senders from a Gmail mailbox",
		Long: `Create a contact for every distinct address found in recent Gmail messages.

Credentials come from GMAIL_ADDRESS and GMAIL_APP_PASSWORD. Run duplicates or
auto-merge afterwards to fold the new contacts into existing ones.

Examples:
  contacttidy import-mail --since 720h --limit 200
  contacttidy import-mail --mailbox INBOX --since 2024-01-01 --recipients`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sinceTime, err := parseSince(since, time.Now())
			if err != nil {
				return err
			}
			creds, err := gmail.LoadCredentialsFrom(a.cfg.Getenv)
			if err != nil {
				return err
			}
			drafts, err := gmail.Harvest(cmd.Context(), creds, gmail.HarvestInput{
				Mailboxes:         mailboxes,
				Since:             sinceTime,
				Limit:             limit,
				IncludeRecipients: recipients,
			})
			if err != nil {
				return err
			}
			return a.importDrafts(cmd.Context(), "gmail", drafts, dryRun)
		},
	}
	cmd.Flags().StringSliceVar(&mailboxes, "mailbox", nil, `mailboxes to read (default "[Gmail]/All Mail")`)
	cmd.Flags().StringVar(&since, "since", "", "only messages after a date (2006-01-02) or age (720h)")
	cmd.Flags().IntVar(&limit, "limit", 0, "most recent messages read per mailbox")
	cmd.Flags().BoolVar(&recipients, "recipients", false, "also import To and Cc addresses")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "harvest without importing")
	return cmd
}

func newImportMessagesCmd(a *app) *cobra.Command {
	var (
		path        string
		limit       int
		minMessages int
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "import-messages",
		Short: "Import conversation partners from macOS Messages",
		Long: `Create a contact for every email or phone handle in the local Messages
database (~/Library/Messages/chat.db). The database is opened read-only and
needs Full Disk Access.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			drafts, err := messages.Harvest(cmd.Context(), messages.HarvestInput{
				Path:        path,
				Limit:       limit,
				MinMessages: minMessages,
			})
			if err != nil {
				return err
			}
			return a.importDrafts(cmd.Context(), "messages", drafts, dryRun)
		},
	}
	cmd.Flags().StringVar(&path, "chat-db", "", "path to a chat.db copy")
	cmd.Flags().IntVar(&limit, "limit", 0, "most recently active handles to read")
	cmd.Flags().IntVar(&minMessages, "min-messages", 1, "skip handles with fewer messages")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "harvest without importing")
	return cmd
}

// parseSince accepts an ISO date or a Go duration measured back from now.
func parseSince(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if day, err := time.Parse(time.DateOnly, value); err == nil {
		return day, nil
	}
	age, err := time.ParseDuration(value)
	if err != nil || age < 0 {
		return time.Time{}, fmt.Errorf("invalid --since %q: want a date like 2006-01-02 or a duration like 720h", value)
	}
	return now.Add(-age), nil
}
