// Package gmail connects contacttidy to a Gmail account.
//
// It exposes two operations:
//
//   - Harvest: read message envelopes over IMAP and turn the addresses found
//     in them into contact drafts ready for import.
//   - SendReport: email a plain-text auto-merge summary over SMTP.
//
// # Authentication
//
// Credentials are read from environment variables by LoadCredentials:
//
//   - GMAIL_ADDRESS
//   - GMAIL_APP_PASSWORD
//
// LoadCredentialsFrom takes the same keys from any lookup, such as one that
// also reads a dotenv file.
//
// Gmail requires an app password for IMAP and SMTP logins when two-step
// verification is on.
//
// # Harvesting
//
// Harvest searches each mailbox (default "[Gmail]/All Mail") for messages on
// or after HarvestInput.Since and reads the envelopes of the newest Limit
// messages. Only sender addresses are used unless IncludeRecipients is set.
// Every distinct address, compared case-insensitively, yields one draft
// labeled "mail". Its display name is the most recent non-empty header name.
//
//	creds, err := gmail.LoadCredentials()
//	if err != nil { /* handle */ }
//
//	drafts, err := gmail.Harvest(ctx, creds, gmail.HarvestInput{Limit: 200})
//	if err != nil { /* handle */ }
//
//	results := dedupe.CreateAll(ctx, dir, drafts, dedupe.BatchOptions{})
//
// Harvested drafts usually overlap existing contacts; run duplicate detection
// after importing them.
//
// # Reports
//
// BuildReport renders an AutoMergeOutcome as text. SendReport wraps the same
// text in a message from the credential account:
//
//	_, err = gmail.SendReport(ctx, creds, gmail.ReportInput{
//		To:      []string{"me@example.com"},
//		Outcome: outcome,
//	})
package gmail
