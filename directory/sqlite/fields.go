package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/spachava753/contacttidy/contacts"
)

// fieldRow is the storage form of one entry of a field group.
type fieldRow struct {
	label   string
	value   string
	data    string
	primary bool
}

type nameData struct {
	GivenName  string `json:"given,omitempty"`
	FamilyName string `json:"family,omitempty"`
	MiddleName string `json:"middle,omitempty"`
}

type addressData struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type organizationData struct {
	Title string `json:"title,omitempty"`
}

func encodeData(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding field data failed: %w", err)
	}
	if string(raw) == "{}" {
		return "", nil
	}
	return string(raw), nil
}

func decodeData(raw string, v any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("sqlite: decoding field data failed: %w", err)
	}
	return nil
}

// replaceFields rewrites every group set in update. Groups left nil keep
// their stored rows.
func replaceFields(ctx context.Context, tx *sql.Tx, resourceID string, update contacts.FieldUpdate) error {
	groups := map[fieldKind][]fieldRow{}

	if update.Names != nil {
		rows := make([]fieldRow, 0, len(*update.Names))
		for _, n := range *update.Names {
			data, err := encodeData(nameData{GivenName: n.GivenName, FamilyName: n.FamilyName, MiddleName: n.MiddleName})
			if err != nil {
				return err
			}
			rows = append(rows, fieldRow{value: n.DisplayName, data: data, primary: n.Primary})
		}
		groups[kindName] = rows
	}
	if update.Emails != nil {
		rows := make([]fieldRow, 0, len(*update.Emails))
		for _, e := range *update.Emails {
			rows = append(rows, fieldRow{label: e.Label, value: e.Value, primary: e.Primary})
		}
		groups[kindEmail] = rows
	}
	if update.Phones != nil {
		rows := make([]fieldRow, 0, len(*update.Phones))
		for _, p := range *update.Phones {
			rows = append(rows, fieldRow{label: p.Label, value: p.Value, primary: p.Primary})
		}
		groups[kindPhone] = rows
	}
	if update.Addresses != nil {
		rows := make([]fieldRow, 0, len(*update.Addresses))
		for _, a := range *update.Addresses {
			data, err := encodeData(addressData{
				Street:     a.Street,
				City:       a.City,
				Region:     a.Region,
				PostalCode: a.PostalCode,
				Country:    a.Country,
			})
			if err != nil {
				return err
			}
			rows = append(rows, fieldRow{label: a.Label, value: a.Formatted, data: data, primary: a.Primary})
		}
		groups[kindAddress] = rows
	}
	if update.Organizations != nil {
		rows := make([]fieldRow, 0, len(*update.Organizations))
		for _, o := range *update.Organizations {
			data, err := encodeData(organizationData{Title: o.Title})
			if err != nil {
				return err
			}
			rows = append(rows, fieldRow{value: o.Name, data: data, primary: o.Primary})
		}
		groups[kindOrganization] = rows
	}

	for kind, rows := range groups {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM contact_fields WHERE resource_id = ? AND kind = ?`, resourceID, string(kind)); err != nil {
			return fmt.Errorf("sqlite: clearing %s fields failed: %w", kind, err)
		}
		for i, row := range rows {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO contact_fields (resource_id, kind, position, label, value, data, is_primary)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				resourceID, string(kind), i, row.label, row.value, row.data, row.primary); err != nil {
				return fmt.Errorf("sqlite: writing %s field failed: %w", kind, err)
			}
		}
	}
	return nil
}

// appendField adds one stored row to the matching group of c.
func appendField(c *contacts.Contact, kind fieldKind, label, value, data string, primary bool) error {
	switch kind {
	case kindName:
		var parts nameData
		if err := decodeData(data, &parts); err != nil {
			return err
		}
		c.Names = append(c.Names, contacts.Name{
			DisplayName: value,
			GivenName:   parts.GivenName,
			FamilyName:  parts.FamilyName,
			MiddleName:  parts.MiddleName,
			Primary:     primary,
		})
	case kindEmail:
		c.Emails = append(c.Emails, contacts.Email{Label: label, Value: value, Primary: primary})
	case kindPhone:
		c.Phones = append(c.Phones, contacts.Phone{Label: label, Value: value, Primary: primary})
	case kindAddress:
		var parts addressData
		if err := decodeData(data, &parts); err != nil {
			return err
		}
		c.Addresses = append(c.Addresses, contacts.Address{
			Label:      label,
			Formatted:  value,
			Street:     parts.Street,
			City:       parts.City,
			Region:     parts.Region,
			PostalCode: parts.PostalCode,
			Country:    parts.Country,
			Primary:    primary,
		})
	case kindOrganization:
		var parts organizationData
		if err := decodeData(data, &parts); err != nil {
			return err
		}
		c.Organizations = append(c.Organizations, contacts.Organization{Name: value, Title: parts.Title, Primary: primary})
	default:
		return fmt.Errorf("sqlite: unknown field kind %q", kind)
	}
	return nil
}
