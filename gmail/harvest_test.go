package gmail

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/nalgeon/be"

	"github.com/spachava753/contacttidy/contacts"
)

func addr(name, mailbox, host string) *imap.Address {
	return &imap.Address{PersonalName: name, MailboxName: mailbox, HostName: host}
}

func envelopeAt(day int, from []*imap.Address, to []*imap.Address) envelopeRecord {
	return envelopeRecord{Envelope: &imap.Envelope{
		Date: time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC),
		From: from,
		To:   to,
	}}
}

func draftEmails(drafts []contacts.Draft) []string {
	out := make([]string, len(drafts))
	for i, d := range drafts {
		out[i] = d.Emails[0].Value
	}
	return out
}

func TestDraftsFromEnvelopesDedupesAddresses(t *testing.T) {
	records := []envelopeRecord{
		envelopeAt(1, []*imap.Address{addr("Jane Doe", "jane", "x.com")}, nil),
		envelopeAt(3, []*imap.Address{addr("", "JANE", "X.com")}, nil),
		envelopeAt(2, []*imap.Address{addr("Bob", "bob", "y.com")}, nil),
	}

	drafts := draftsFromEnvelopes(records, "me@gmail.com", false)
	be.Equal(t, len(drafts), 2)
	be.Equal(t, draftEmails(drafts), []string{"jane@x.com", "bob@y.com"})
	be.Equal(t, drafts[0].Names[0].DisplayName, "Jane Doe")
	be.Equal(t, drafts[0].Emails[0].Label, MailLabel)
	be.True(t, drafts[0].Emails[0].Primary)
}

func TestDraftsFromEnvelopesLatestNameWins(t *testing.T) {
	records := []envelopeRecord{
		envelopeAt(5, []*imap.Address{addr("Jane Q. Doe", "jane", "x.com")}, nil),
		envelopeAt(1, []*imap.Address{addr("jane", "jane", "x.com")}, nil),
	}
	drafts := draftsFromEnvelopes(records, "", false)
	be.Equal(t, len(drafts), 1)
	be.Equal(t, drafts[0].Names[0].DisplayName, "Jane Q. Doe")
}

func TestDraftsFromEnvelopesSkipsSelfAndJunk(t *testing.T) {
	records := []envelopeRecord{
		envelopeAt(1, []*imap.Address{addr("Me", "me", "gmail.com")}, []*imap.Address{addr("Ann", "ann", "z.com")}),
		envelopeAt(2, []*imap.Address{addr("", "undisclosed-recipients", ""), nil}, nil),
		{Envelope: nil},
	}

	senders := draftsFromEnvelopes(records, "ME@gmail.com", false)
	be.Equal(t, len(senders), 0)

	everyone := draftsFromEnvelopes(records, "ME@gmail.com", true)
	be.Equal(t, draftEmails(everyone), []string{"ann@z.com"})
}

func TestDraftsFromEnvelopesNameEqualToAddress(t *testing.T) {
	records := []envelopeRecord{
		envelopeAt(1, []*imap.Address{addr("bob@y.com", "bob", "y.com")}, nil),
	}
	drafts := draftsFromEnvelopes(records, "", false)
	be.Equal(t, len(drafts), 1)
	be.Equal(t, len(drafts[0].Names), 0)
}

func TestDraftsFromEnvelopesUsesInternalDateFallback(t *testing.T) {
	records := []envelopeRecord{
		{Envelope: &imap.Envelope{From: []*imap.Address{addr("Old", "old", "x.com")}}, InternalDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Envelope: &imap.Envelope{From: []*imap.Address{addr("New", "new", "x.com")}}, InternalDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	drafts := draftsFromEnvelopes(records, "", false)
	be.Equal(t, draftEmails(drafts), []string{"new@x.com", "old@x.com"})
}

func TestNormalizeMailboxes(t *testing.T) {
	be.Equal(t, normalizeMailboxes(nil), []string{gmailAllMail})
	be.Equal(t, normalizeMailboxes([]string{" ", ""}), []string{gmailAllMail})
	be.Equal(t, normalizeMailboxes([]string{"INBOX", " INBOX ", "[Gmail]/Sent Mail"}), []string{"INBOX", "[Gmail]/Sent Mail"})
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv(envGmailAddress, " me@gmail.com ")
	t.Setenv(envGmailAppPassword, "abcd efgh ijkl mnop")

	creds, err := LoadCredentials()
	be.Err(t, err, nil)
	be.Equal(t, creds.Address, "me@gmail.com")
	be.Equal(t, creds.AppPassword, "abcdefghijklmnop")

	t.Setenv(envGmailAppPassword, "")
	_, err = LoadCredentials()
	be.Err(t, err, envGmailAppPassword)
}

func TestLoadCredentialsFrom(t *testing.T) {
	values := map[string]string{
		envGmailAddress:     "me@gmail.com",
		envGmailAppPassword: "abcd efgh",
	}
	getenv := func(key string) string { return values[key] }

	creds, err := LoadCredentialsFrom(getenv)
	be.Err(t, err, nil)
	be.Equal(t, creds, Credentials{Address: "me@gmail.com", AppPassword: "abcdefgh"})

	delete(values, envGmailAddress)
	_, err = LoadCredentialsFrom(getenv)
	be.Err(t, err, envGmailAddress)
}

func TestConvertAddresses(t *testing.T) {
	got := convertAddresses([]*imap.Address{nil, addr(` "Jane Doe" `, "jane", "x.com")})
	be.Equal(t, got, []envelopeAddress{{Name: "Jane Doe", Email: "jane@x.com"}})
}
