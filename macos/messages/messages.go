package messages

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spachava753/contacttidy/contacts"
)

const (
	messagesDBRelativePath = "Library/Messages/chat.db"
	appleReferenceUnix     = int64(978307200) // 2001-01-01T00:00:00Z

	// DefaultHarvestLimit caps the handles read when HarvestInput.Limit is zero.
	DefaultHarvestLimit = 1000
	// HandleLabel is the label given to harvested emails and phones.
	HandleLabel = "messages"

	minPhoneDigits = 7
)

// HarvestInput controls Harvest.
type HarvestInput struct {
	// Path overrides the chat database location. It defaults to
	// ~/Library/Messages/chat.db.
	Path string
	// Limit caps the number of handles read, most recently active first.
	Limit int
	// MinMessages skips handles with fewer exchanged messages.
	MinMessages int
}

// Handle is one Messages conversation partner.
type Handle struct {
	ID           string
	Service      string
	Name         string
	LastMessage  time.Time
	MessageCount int
}

// Harvest reads conversation handles from the Messages database and returns
// one contact draft per distinct email address or phone number.
//
// The database is opened read-only. Handles that are neither an email address
// nor a phone number with at least seven digits (short codes, chat bots) are
// skipped.
func Harvest(ctx context.Context, input HarvestInput) ([]contacts.Draft, error) {
	handles, err := ListHandles(ctx, input)
	if err != nil {
		return nil, err
	}
	return draftsFromHandles(handles, input.MinMessages), nil
}

// ListHandles returns the most recently active handles in the Messages
// database.
func ListHandles(ctx context.Context, input HarvestInput) ([]Handle, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHarvestLimit
	}

	path := strings.TrimSpace(input.Path)
	if path == "" {
		var err error
		if path, err = messagesDBPath(); err != nil {
			return nil, err
		}
	}

	db, err := openMessagesDB(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
WITH handle_stats AS (
	SELECT handle_id, MAX(date) AS last_date, COUNT(ROWID) AS message_count
	FROM message
	WHERE handle_id > 0
	GROUP BY handle_id
), solo_chat_names AS (
	SELECT chj.handle_id AS handle_id, MAX(COALESCE(c.display_name, '')) AS display_name
	FROM chat c
	JOIN chat_handle_join chj ON chj.chat_id = c.ROWID
	WHERE (SELECT COUNT(*) FROM chat_handle_join x WHERE x.chat_id = c.ROWID) = 1
	GROUP BY chj.handle_id
)
SELECT
	COALESCE(h.id, ''),
	COALESCE(h.service, ''),
	COALESCE(n.display_name, ''),
	COALESCE(s.last_date, 0),
	COALESCE(s.message_count, 0)
FROM handle h
LEFT JOIN handle_stats s ON s.handle_id = h.ROWID
LEFT JOIN solo_chat_names n ON n.handle_id = h.ROWID
ORDER BY COALESCE(s.last_date, 0) DESC, h.ROWID
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("messages: sqlite query failed: %w", err)
	}
	defer rows.Close()

	handles := make([]Handle, 0, 64)
	for rows.Next() {
		var (
			handle  Handle
			lastRaw int64
		)
		if err := rows.Scan(&handle.ID, &handle.Service, &handle.Name, &lastRaw, &handle.MessageCount); err != nil {
			return nil, fmt.Errorf("messages: scanning sqlite row failed: %w", err)
		}
		handle.LastMessage = appleNanoToTime(lastRaw)
		handles = append(handles, handle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messages: iterating sqlite rows failed: %w", err)
	}
	return handles, nil
}

// draftsFromHandles folds handles into drafts. The same person reached over
// iMessage and SMS shares one handle id, so drafts are keyed by the
// normalized email or phone digits.
func draftsFromHandles(handles []Handle, minMessages int) []contacts.Draft {
	seen := map[string]int{}
	drafts := make([]contacts.Draft, 0, len(handles))

	for _, handle := range handles {
		if handle.MessageCount < minMessages {
			continue
		}
		id := normalizeHandle(handle.ID)

		var draft contacts.Draft
		var key string
		switch {
		case looksLikeEmail(id):
			key = "email:" + contacts.NormalizeEmail(id)
			draft.Emails = []contacts.Email{{Label: HandleLabel, Value: id, Primary: true}}
		case len(contacts.NormalizePhone(id)) >= minPhoneDigits:
			key = "phone:" + contacts.NormalizePhone(id)
			draft.Phones = []contacts.Phone{{Label: HandleLabel, Value: id, Primary: true}}
		default:
			continue
		}

		name := strings.TrimSpace(handle.Name)
		if i, ok := seen[key]; ok {
			if len(drafts[i].Names) == 0 && name != "" {
				drafts[i].Names = []contacts.Name{{DisplayName: name, Primary: true}}
			}
			continue
		}
		if name != "" {
			draft.Names = []contacts.Name{{DisplayName: name, Primary: true}}
		}
		seen[key] = len(drafts)
		drafts = append(drafts, draft)
	}
	return drafts
}

func openMessagesDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", strings.ReplaceAll(dbPath, " ", "%20"))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("messages: opening sqlite database failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("messages: connecting to sqlite database failed: %w", err)
	}
	return db, nil
}

func messagesDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("messages: unable to resolve home directory: %w", err)
	}
	path := filepath.Join(home, messagesDBRelativePath)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("messages: chat database unavailable at %s: %w", path, err)
	}
	return path, nil
}

// appleNanoToTime converts a Messages date, nanoseconds since 2001-01-01 UTC.
func appleNanoToTime(nanos int64) time.Time {
	if nanos <= 0 {
		return time.Time{}
	}
	sec := nanos / int64(time.Second)
	nsec := nanos % int64(time.Second)
	return time.Unix(appleReferenceUnix+sec, nsec).UTC()
}

// normalizeHandle strips the service suffix Messages appends to some handles,
// as in "+12105551212(smsft)".
func normalizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	if i := strings.Index(handle, "("); i > 0 && strings.HasSuffix(handle, ")") {
		handle = strings.TrimSpace(handle[:i])
	}
	return handle
}

func looksLikeEmail(value string) bool {
	at := strings.Index(value, "@")
	return at > 0 && at < len(value)-1
}
