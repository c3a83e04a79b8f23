package gmail

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"github.com/spachava753/contacttidy/dedupe"
)

const (
	liveTestFlagEnv = "CONTACTTIDY_GMAIL_LIVE_TEST"
	liveTestToEnv   = "GMAIL_TEST_RECIPIENT"
)

func liveCredentials(t *testing.T) Credentials {
	t.Helper()
	if os.Getenv(liveTestFlagEnv) != "1" {
		t.Skipf("set %s=1 to run live Gmail integration tests", liveTestFlagEnv)
	}
	creds, err := LoadCredentials()
	if err != nil {
		t.Skipf("set %s and %s to run live Gmail integration tests", envGmailAddress, envGmailAppPassword)
	}
	return creds
}

func TestLiveHarvestInbox(t *testing.T) {
	creds := liveCredentials(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	drafts, err := Harvest(ctx, creds, HarvestInput{
		Mailboxes: []string{"INBOX"},
		Since:     time.Now().AddDate(0, -1, 0),
		Limit:     50,
	})
	be.Err(t, err, nil)

	self := strings.ToLower(creds.Address)
	for _, draft := range drafts {
		be.Equal(t, len(draft.Emails), 1)
		be.True(t, strings.Contains(draft.Emails[0].Value, "@"))
		be.True(t, strings.ToLower(draft.Emails[0].Value) != self)
	}
}

func TestLiveSendReport(t *testing.T) {
	creds := liveCredentials(t)
	recipient := strings.TrimSpace(os.Getenv(liveTestToEnv))
	if recipient == "" {
		recipient = creds.Address
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	out, err := SendReport(ctx, creds, ReportInput{
		To:      []string{recipient},
		Subject: fmt.Sprintf("contacttidy live test %d", time.Now().UnixNano()),
		Outcome: dedupe.AutoMergeOutcome{Considered: 1},
		DryRun:  true,
	})
	be.Err(t, err, nil)
	be.True(t, out.MessageID != "")
}
