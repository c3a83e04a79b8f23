package gmail

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/spachava753/contacttidy/contacts"
)

const (
	// DefaultHarvestLimit is the number of most recent messages read per
	// mailbox when HarvestInput.Limit is zero.
	DefaultHarvestLimit = 500
	maxHarvestLimit     = 10000

	// MailLabel is the email label given to harvested addresses.
	MailLabel = "mail"
)

// HarvestInput selects the messages Harvest reads.
type HarvestInput struct {
	// Mailboxes defaults to "[Gmail]/All Mail".
	Mailboxes []string
	// Since limits the search to messages on or after this date.
	Since time.Time
	// Limit caps the most recent messages read per mailbox.
	Limit int
	// IncludeRecipients also harvests To and Cc addresses, not just senders.
	IncludeRecipients bool
}

// Harvest reads message envelopes over IMAP and returns one contact draft per
// distinct address found in them. The account's own address is skipped.
//
// Example:
//
//	drafts, err := gmail.Harvest(ctx, creds, gmail.HarvestInput{
//		Since: time.Now().AddDate(0, -6, 0),
//		Limit: 200,
//	})
func Harvest(ctx context.Context, creds Credentials, input HarvestInput) ([]contacts.Draft, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHarvestLimit
	}
	limit = min(limit, maxHarvestLimit)

	imapClient, err := connectIMAP(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer imapClient.Logout()

	var envelopes []envelopeRecord
	for _, mailbox := range normalizeMailboxes(input.Mailboxes) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := imapClient.Select(mailbox, true); err != nil {
			return nil, fmt.Errorf("gmail: selecting mailbox %q failed: %w", mailbox, err)
		}

		criteria := imap.NewSearchCriteria()
		if !input.Since.IsZero() {
			criteria.Since = input.Since
		}
		uids, err := imapClient.UidSearch(criteria)
		if err != nil {
			return nil, fmt.Errorf("gmail: searching messages failed: %w", err)
		}
		// UIDs grow with arrival order, so the tail holds the newest messages.
		if len(uids) > limit {
			uids = uids[len(uids)-limit:]
		}

		fetched, err := fetchEnvelopesByUID(imapClient, uids)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, fetched...)
	}

	return draftsFromEnvelopes(envelopes, creds.Address, input.IncludeRecipients), nil
}

type envelopeRecord struct {
	Envelope     *imap.Envelope
	InternalDate time.Time
}

func fetchEnvelopesByUID(imapClient *client.Client, uids []uint32) ([]envelopeRecord, error) {
	if len(uids) == 0 {
		return []envelopeRecord{}, nil
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, imap.FetchInternalDate}
	messages := make(chan *imap.Message, len(uids)+8)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.UidFetch(seqSet, items, messages)
	}()

	out := make([]envelopeRecord, 0, len(uids))
	for msg := range messages {
		out = append(out, envelopeRecord{Envelope: msg.Envelope, InternalDate: msg.InternalDate})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("gmail: fetching envelopes failed: %w", err)
	}
	return out, nil
}

type harvested struct {
	address  string
	name     string
	nameSeen time.Time
	lastSeen time.Time
}

// draftsFromEnvelopes folds envelope addresses into drafts keyed by
// normalized email. The display name comes from the most recent message that
// carried one. Drafts are ordered by most recent contact first.
func draftsFromEnvelopes(records []envelopeRecord, self string, includeRecipients bool) []contacts.Draft {
	self = contacts.NormalizeEmail(self)
	byKey := map[string]*harvested{}

	for _, rec := range records {
		if rec.Envelope == nil {
			continue
		}
		seen := envelopeDate(rec.Envelope, rec.InternalDate)

		addrs := append([]*imap.Address(nil), rec.Envelope.From...)
		if includeRecipients {
			addrs = append(addrs, rec.Envelope.To...)
			addrs = append(addrs, rec.Envelope.Cc...)
		}
		for _, addr := range convertAddresses(addrs) {
			key := contacts.NormalizeEmail(addr.Email)
			if key == "" || key == self || !strings.Contains(key, "@") {
				continue
			}
			entry, ok := byKey[key]
			if !ok {
				entry = &harvested{address: addr.Email}
				byKey[key] = entry
			}
			if addr.Name != "" && (entry.name == "" || !seen.Before(entry.nameSeen)) {
				entry.name = addr.Name
				entry.nameSeen = seen
			}
			if seen.After(entry.lastSeen) {
				entry.lastSeen = seen
			}
		}
	}

	entries := make([]*harvested, 0, len(byKey))
	for _, entry := range byKey {
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b *harvested) int {
		if c := b.lastSeen.Compare(a.lastSeen); c != 0 {
			return c
		}
		return cmp.Compare(contacts.NormalizeEmail(a.address), contacts.NormalizeEmail(b.address))
	})

	drafts := make([]contacts.Draft, 0, len(entries))
	for _, entry := range entries {
		draft := contacts.Draft{
			Emails: []contacts.Email{{Label: MailLabel, Value: entry.address, Primary: true}},
		}
		if entry.name != "" && contacts.NormalizeEmail(entry.name) != contacts.NormalizeEmail(entry.address) {
			draft.Names = []contacts.Name{{DisplayName: entry.name, Primary: true}}
		}
		drafts = append(drafts, draft)
	}
	return drafts
}

// envelopeAddress is one parsed envelope address.
type envelopeAddress struct {
	Name  string
	Email string
}

func convertAddresses(addrs []*imap.Address) []envelopeAddress {
	out := make([]envelopeAddress, 0, len(addrs))
	for _, addr := range addrs {
		if addr == nil {
			continue
		}
		out = append(out, envelopeAddress{
			Name:  strings.Trim(strings.TrimSpace(addr.PersonalName), `"'`),
			Email: strings.TrimSpace(addr.Address()),
		})
	}
	return out
}

func normalizeMailboxes(mailboxes []string) []string {
	out := make([]string, 0, len(mailboxes))
	seen := map[string]struct{}{}
	for _, mailbox := range mailboxes {
		mailbox = strings.TrimSpace(mailbox)
		if mailbox == "" {
			continue
		}
		if _, ok := seen[mailbox]; ok {
			continue
		}
		seen[mailbox] = struct{}{}
		out = append(out, mailbox)
	}
	if len(out) == 0 {
		return []string{gmailAllMail}
	}
	return out
}

func envelopeDate(env *imap.Envelope, fallback time.Time) time.Time {
	if env != nil && !env.Date.IsZero() {
		return env.Date
	}
	return fallback
}
