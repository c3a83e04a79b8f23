// Package sqlite implements contacts.Directory on top of a local SQLite file.
//
// Each contact is a row in the contacts table; its field groups are rows in
// contact_fields keyed by (resource_id, kind, position). Structured parts of
// names, addresses and organizations are stored as a small JSON document in
// the data column.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spachava753/contacttidy/contacts"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	resource_id TEXT NOT NULL UNIQUE,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS contact_fields (
	resource_id TEXT NOT NULL,
	kind        TEXT NOT NULL,
	position    INTEGER NOT NULL,
	label       TEXT NOT NULL DEFAULT '',
	value       TEXT NOT NULL DEFAULT '',
	data        TEXT NOT NULL DEFAULT '',
	is_primary  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (resource_id, kind, position)
);
`

type fieldKind string

const (
	kindName         fieldKind = "name"
	kindEmail        fieldKind = "email"
	kindPhone        fieldKind = "phone"
	kindAddress      fieldKind = "address"
	kindOrganization fieldKind = "organization"
)

// Directory is a SQLite-backed contacts.Directory.
type Directory struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

var _ contacts.Directory = (*Directory)(nil)

// Option configures a Directory.
type Option func(*Directory)

// WithNow overrides the clock, useful for tests.
func WithNow(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

// WithIDGenerator overrides resource id generation, useful for tests.
func WithIDGenerator(newID func() string) Option {
	return func(d *Directory) { d.newID = newID }
}

// Open opens (creating if needed) the directory database at path. Use
// ":memory:" for a throwaway directory.
func Open(ctx context.Context, path string, opts ...Option) (*Directory, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite: database path is required")
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", strings.ReplaceAll(path, " ", "%20"))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database failed: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: connecting to database failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: creating schema failed: %w", err)
	}

	d := &Directory{
		db:    db,
		now:   time.Now,
		newID: newResourceID,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Close releases the database handle.
func (d *Directory) Close() error {
	return d.db.Close()
}

func newResourceID() string {
	return "people/c" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// List returns up to limit contacts in creation order. limit <= 0 returns
// every contact.
func (d *Directory) List(ctx context.Context, limit int) ([]contacts.Contact, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT c.resource_id, c.updated_at, f.kind, f.position, f.label, f.value, f.data, f.is_primary
		FROM (SELECT id, resource_id, updated_at FROM contacts ORDER BY id LIMIT ?) AS c
		LEFT JOIN contact_fields f ON f.resource_id = c.resource_id
		ORDER BY c.id, f.kind, f.position`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing contacts failed: %w", err)
	}
	defer rows.Close()

	return scanContacts(rows)
}

// Get returns one contact or a not_found error.
func (d *Directory) Get(ctx context.Context, resourceID string) (contacts.Contact, error) {
	return getContact(ctx, d.db, resourceID)
}

// Create stores a new contact and returns it with its resource id.
func (d *Directory) Create(ctx context.Context, draft contacts.Draft) (contacts.Contact, error) {
	if len(draft.Names) == 0 && len(draft.Emails) == 0 && len(draft.Phones) == 0 {
		return contacts.Contact{}, contacts.Invalid("a contact needs a name, email or phone")
	}

	id := d.newID()
	now := d.timestamp()
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contacts (resource_id, created_at, updated_at) VALUES (?, ?, ?)`, id, now, now); err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				return &contacts.Error{Code: contacts.ErrorCodeConflict, Message: fmt.Sprintf("contact %q already exists", id)}
			}
			return fmt.Errorf("sqlite: inserting contact failed: %w", err)
		}
		update := contacts.FieldUpdate{
			Names:         &draft.Names,
			Emails:        &draft.Emails,
			Phones:        &draft.Phones,
			Addresses:     &draft.Addresses,
			Organizations: &draft.Organizations,
		}
		return replaceFields(ctx, tx, id, update)
	})
	if err != nil {
		return contacts.Contact{}, err
	}
	return d.Get(ctx, id)
}

// Update replaces the field groups set in update and returns the stored
// contact.
func (d *Directory) Update(ctx context.Context, resourceID string, update contacts.FieldUpdate) (contacts.Contact, error) {
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE contacts SET updated_at = ? WHERE resource_id = ?`, d.timestamp(), resourceID)
		if err != nil {
			return fmt.Errorf("sqlite: updating contact failed: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return contacts.NotFound(resourceID)
		}
		return replaceFields(ctx, tx, resourceID, update)
	})
	if err != nil {
		return contacts.Contact{}, err
	}
	return d.Get(ctx, resourceID)
}

// Delete removes a contact and its fields.
func (d *Directory) Delete(ctx context.Context, resourceID string) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM contacts WHERE resource_id = ?`, resourceID)
		if err != nil {
			return fmt.Errorf("sqlite: deleting contact failed: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return contacts.NotFound(resourceID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM contact_fields WHERE resource_id = ?`, resourceID); err != nil {
			return fmt.Errorf("sqlite: deleting contact fields failed: %w", err)
		}
		return nil
	})
}

func (d *Directory) timestamp() string {
	return d.now().UTC().Format(time.RFC3339Nano)
}

func (d *Directory) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: starting transaction failed: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction failed: %w", err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func getContact(ctx context.Context, q queryer, resourceID string) (contacts.Contact, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.resource_id, c.updated_at, f.kind, f.position, f.label, f.value, f.data, f.is_primary
		FROM contacts c
		LEFT JOIN contact_fields f ON f.resource_id = c.resource_id
		WHERE c.resource_id = ?
		ORDER BY f.kind, f.position`, resourceID)
	if err != nil {
		return contacts.Contact{}, fmt.Errorf("sqlite: reading contact failed: %w", err)
	}
	defer rows.Close()

	list, err := scanContacts(rows)
	if err != nil {
		return contacts.Contact{}, err
	}
	if len(list) == 0 {
		return contacts.Contact{}, contacts.NotFound(resourceID)
	}
	return list[0], nil
}

// scanContacts folds joined contact/field rows into contacts. Rows must be
// grouped by contact and ordered by position within a kind.
func scanContacts(rows *sql.Rows) ([]contacts.Contact, error) {
	out := []contacts.Contact{}
	for rows.Next() {
		var (
			resourceID, updatedAt string
			kind, label, value    sql.NullString
			data                  sql.NullString
			position, primary     sql.NullInt64
		)
		if err := rows.Scan(&resourceID, &updatedAt, &kind, &position, &label, &value, &data, &primary); err != nil {
			return nil, fmt.Errorf("sqlite: scanning contact row failed: %w", err)
		}

		if len(out) == 0 || out[len(out)-1].ResourceID != resourceID {
			c := contacts.Contact{ResourceID: resourceID}
			if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
				c.UpdatedAt = ts
			}
			out = append(out, c)
		}
		if !kind.Valid {
			continue
		}
		if err := appendField(&out[len(out)-1], fieldKind(kind.String), label.String, value.String, data.String, primary.Int64 != 0); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating contact rows failed: %w", err)
	}
	return out, nil
}
