package gmail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spachava753/contacttidy/contacts"
	"github.com/spachava753/contacttidy/dedupe"
)

const defaultReportSubject = "contacttidy auto-merge report"

// ReportInput describes an auto-merge summary email.
type ReportInput struct {
	To      []string
	Subject string
	Outcome dedupe.AutoMergeOutcome
	DryRun  bool
}

// SendOutput reports the message id of a sent report.
type SendOutput struct {
	MessageID string
}

// SendReport emails a plain-text auto-merge summary from the credential
// account over Gmail SMTP.
func SendReport(ctx context.Context, creds Credentials, input ReportInput) (SendOutput, error) {
	recipients := uniqueRecipients(input.To)
	if len(recipients) == 0 {
		return SendOutput{}, errors.New("gmail: at least one recipient is required")
	}

	messageID := generateMessageID(creds.Address)
	rawMessage := buildReportMessage(creds.Address, recipients, input, messageID, time.Now())

	smtpClient, err := connectSMTP(ctx, creds)
	if err != nil {
		return SendOutput{}, err
	}
	defer smtpClient.Close()

	if err := smtpClient.Mail(creds.Address, nil); err != nil {
		return SendOutput{}, fmt.Errorf("gmail: MAIL FROM failed: %w", err)
	}
	for _, rcpt := range recipients {
		if err := smtpClient.Rcpt(rcpt, nil); err != nil {
			return SendOutput{}, fmt.Errorf("gmail: RCPT TO %q failed: %w", rcpt, err)
		}
	}

	writer, err := smtpClient.Data()
	if err != nil {
		return SendOutput{}, fmt.Errorf("gmail: DATA failed: %w", err)
	}
	if _, err := writer.Write(rawMessage); err != nil {
		return SendOutput{}, fmt.Errorf("gmail: writing message failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return SendOutput{}, fmt.Errorf("gmail: finalizing message failed: %w", err)
	}
	if err := smtpClient.Quit(); err != nil {
		return SendOutput{}, fmt.Errorf("gmail: QUIT failed: %w", err)
	}

	return SendOutput{MessageID: messageID}, nil
}

// BuildReport renders the plain-text body of an auto-merge summary.
func BuildReport(outcome dedupe.AutoMergeOutcome, dryRun bool) string {
	var b strings.Builder

	b.WriteString("contacttidy auto-merge report\n\n")
	if dryRun {
		b.WriteString("Dry run: no contacts were changed.\n\n")
	}
	fmt.Fprintf(&b, "Contacts considered: %d\n", outcome.Considered)
	fmt.Fprintf(&b, "Duplicate groups:    %d\n", len(outcome.Groups))
	fmt.Fprintf(&b, "Merge operations:    %d\n", outcome.OperationCount)
	if !dryRun {
		fmt.Fprintf(&b, "Failed merges:       %d\n", outcome.Failed())
	}

	if dryRun {
		if len(outcome.Groups) == 0 {
			b.WriteString("\nNo duplicates found.\n")
			return b.String()
		}
		b.WriteString("\nPlanned merges:\n")
		for _, group := range outcome.Groups {
			if len(group.Contacts) < 2 {
				continue
			}
			fmt.Fprintf(&b, "  %s %q (%d%%): %s <- %s\n",
				group.Kind, group.MatchValue, group.Confidence,
				group.Contacts[0].ResourceID, joinIDs(group.Contacts[1:]))
		}
		return b.String()
	}

	if len(outcome.PerGroup) == 0 {
		b.WriteString("\nNo duplicates found.\n")
		return b.String()
	}
	b.WriteString("\nMerges:\n")
	for _, group := range outcome.PerGroup {
		if group.Skipped {
			fmt.Fprintf(&b, "  [skipped] %s %s: already merged\n", group.Kind, group.Target)
			continue
		}
		if group.Success {
			fmt.Fprintf(&b, "  [ok] %s %s <- %s (deleted %d of %d)\n",
				group.Kind, group.Target, strings.Join(group.Sources, ", "), len(group.Deleted), len(group.Sources))
			continue
		}
		fmt.Fprintf(&b, "  [failed] %s %s <- %s: %s\n",
			group.Kind, group.Target, strings.Join(group.Sources, ", "), sanitizeHeader(group.Error))
	}
	return b.String()
}

func buildReportMessage(from string, recipients []string, input ReportInput, messageID string, now time.Time) []byte {
	subject := sanitizeHeader(input.Subject)
	if subject == "" {
		subject = defaultReportSubject
	}

	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", strings.Join(recipients, ", ")),
		fmt.Sprintf("Subject: %s", subject),
		fmt.Sprintf("Date: %s", now.Format(time.RFC1123Z)),
		fmt.Sprintf("Message-ID: %s", normalizeMessageID(messageID)),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}
	body := normalizeBody(BuildReport(input.Outcome, input.DryRun))
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body + "\r\n")
}

func joinIDs(list []contacts.Contact) string {
	ids := make([]string, len(list))
	for i, c := range list {
		ids[i] = c.ResourceID
	}
	return strings.Join(ids, ", ")
}

func uniqueRecipients(groups ...[]string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 8)
	for _, group := range groups {
		for _, recipient := range group {
			recipient = strings.TrimSpace(recipient)
			if recipient == "" {
				continue
			}
			if _, ok := seen[recipient]; ok {
				continue
			}
			seen[recipient] = struct{}{}
			out = append(out, recipient)
		}
	}
	return out
}

func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	return strings.TrimSpace(body)
}

func generateMessageID(address string) string {
	domain := "localhost"
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		domain = address[at+1:]
	}
	return fmt.Sprintf("<%d.%s>", time.Now().UnixNano(), domain)
}

func normalizeMessageID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "<") && strings.HasSuffix(value, ">") {
		return value
	}
	return "<" + strings.Trim(value, "<>") + ">"
}
