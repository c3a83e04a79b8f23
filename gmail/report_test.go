package gmail

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"github.com/spachava753/contacttidy/contacts"
	"github.com/spachava753/contacttidy/dedupe"
)

func TestBuildReportExecuted(t *testing.T) {
	outcome := dedupe.AutoMergeOutcome{
		OperationCount: 2,
		Considered:     10,
		Groups:         make([]dedupe.DuplicateGroup, 2),
		PerGroup: []dedupe.GroupOutcome{
			{Kind: dedupe.MatchEmail, Target: "people/c1", Sources: []string{"people/c2"}, Success: true, Deleted: []string{"people/c2"}},
			{Kind: dedupe.MatchName, Target: "people/c3", Sources: []string{"people/c4"}, Error: "dedupe: boom\nagain"},
			{Kind: dedupe.MatchName, Target: "people/c1", Sources: []string{}, Skipped: true},
		},
	}

	report := BuildReport(outcome, false)
	be.True(t, strings.Contains(report, "Contacts considered: 10"))
	be.True(t, strings.Contains(report, "Merge operations:    2"))
	be.True(t, strings.Contains(report, "Failed merges:       1"))
	be.True(t, strings.Contains(report, "[ok] email people/c1 <- people/c2 (deleted 1 of 1)"))
	be.True(t, strings.Contains(report, "[failed] name people/c3 <- people/c4: dedupe: boom again"))
	be.True(t, strings.Contains(report, "[skipped] name people/c1: already merged"))
	be.True(t, !strings.Contains(report, "Dry run"))
}

func TestBuildReportDryRun(t *testing.T) {
	outcome := dedupe.AutoMergeOutcome{
		OperationCount: 1,
		Considered:     3,
		Groups: []dedupe.DuplicateGroup{{
			Kind:       dedupe.MatchEmail,
			MatchValue: "jane@x.com",
			Confidence: 100,
			Contacts:   []contacts.Contact{{ResourceID: "people/c1"}, {ResourceID: "people/c2"}},
		}},
	}

	report := BuildReport(outcome, true)
	be.True(t, strings.Contains(report, "Dry run: no contacts were changed."))
	be.True(t, strings.Contains(report, `email "jane@x.com" (100%): people/c1 <- people/c2`))
	be.True(t, !strings.Contains(report, "Failed merges"))
}

func TestBuildReportNoDuplicates(t *testing.T) {
	be.True(t, strings.Contains(BuildReport(dedupe.AutoMergeOutcome{Considered: 4}, false), "No duplicates found."))
	be.True(t, strings.Contains(BuildReport(dedupe.AutoMergeOutcome{Considered: 4}, true), "No duplicates found."))
}

func TestBuildReportMessage(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	raw := string(buildReportMessage("me@gmail.com", []string{"a@x.com", "b@x.com"}, ReportInput{
		Subject: "weekly\r\ncleanup",
		Outcome: dedupe.AutoMergeOutcome{Considered: 1},
	}, "123.gmail.com", now))

	be.True(t, strings.HasPrefix(raw, "From: me@gmail.com\r\n"))
	be.True(t, strings.Contains(raw, "To: a@x.com, b@x.com\r\n"))
	be.True(t, strings.Contains(raw, "Subject: weekly  cleanup\r\n"))
	be.True(t, strings.Contains(raw, "Message-ID: <123.gmail.com>\r\n"))
	be.True(t, strings.Contains(raw, "Content-Type: text/plain; charset=UTF-8\r\n\r\n"))
	be.True(t, strings.Contains(raw, "Contacts considered: 1\r\n"))
	be.True(t, !strings.Contains(strings.ReplaceAll(raw, "\r\n", ""), "\n"))
}

func TestBuildReportMessageDefaultSubject(t *testing.T) {
	raw := string(buildReportMessage("me@gmail.com", []string{"a@x.com"}, ReportInput{}, "<1.gmail.com>", time.Now()))
	be.True(t, strings.Contains(raw, "Subject: "+defaultReportSubject+"\r\n"))
}

func TestSendReportRequiresRecipient(t *testing.T) {
	_, err := SendReport(context.Background(), Credentials{Address: "me@gmail.com"}, ReportInput{To: []string{" "}})
	be.Err(t, err, "at least one recipient")
}

func TestGenerateMessageID(t *testing.T) {
	id := generateMessageID("me@example.org")
	be.True(t, strings.HasPrefix(id, "<"))
	be.True(t, strings.HasSuffix(id, ".example.org>"))
	be.True(t, strings.HasSuffix(generateMessageID("nobody"), ".localhost>"))
}
