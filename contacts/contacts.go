package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode classifies directory errors.
type ErrorCode string

const (
	// ErrorCodeNotFound indicates a referenced contact does not exist.
	ErrorCodeNotFound ErrorCode = "not_found"
	// ErrorCodeConflict indicates write conflicts or duplicate state.
	ErrorCodeConflict ErrorCode = "conflict"
	// ErrorCodeValidation indicates invalid input.
	ErrorCodeValidation ErrorCode = "validation"
	// ErrorCodeStore indicates a storage/backend failure.
	ErrorCodeStore ErrorCode = "store"
	// ErrorCodeUnknown indicates an unmapped error.
	ErrorCodeUnknown ErrorCode = "unknown"
)

// Error is a typed package error for directory operations.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error returns the formatted error message.
func (e *Error) Error() string {
	if e == nil {
		return "contacts: <nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("contacts: %s", e.Code)
	}
	return fmt.Sprintf("contacts: %s: %s", e.Code, e.Message)
}

// NotFound returns a not_found error for a resource id.
func NotFound(resourceID string) *Error {
	return &Error{Code: ErrorCodeNotFound, Message: fmt.Sprintf("contact %q does not exist", resourceID)}
}

// Invalid returns a validation error with a formatted message.
func Invalid(format string, args ...any) *Error {
	return &Error{Code: ErrorCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// CodeOf reports the ErrorCode carried by err, or ErrorCodeUnknown.
func CodeOf(err error) ErrorCode {
	var typed *Error
	if errors.As(err, &typed) && typed != nil {
		return typed.Code
	}
	return ErrorCodeUnknown
}

// IsNotFound reports whether err is a not_found directory error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrorCodeNotFound
}

// Name is one entry of a contact's name list.
type Name struct {
	DisplayName string
	GivenName   string
	FamilyName  string
	MiddleName  string
	Primary     bool
}

// Display returns DisplayName, falling back to given and family name.
func (n Name) Display() string {
	if display := strings.TrimSpace(n.DisplayName); display != "" {
		return display
	}
	return strings.TrimSpace(strings.Join(nonEmpty(n.GivenName, n.MiddleName, n.FamilyName), " "))
}

// Email is one labeled email address.
type Email struct {
	Label   string
	Value   string
	Primary bool
}

// Phone is one labeled phone number.
type Phone struct {
	Label   string
	Value   string
	Primary bool
}

// Address is one labeled postal address.
//
// Formatted is the single-line form used for comparisons. When it is empty,
// the structured parts are joined to build it.
type Address struct {
	Label      string
	Formatted  string
	Street     string
	City       string
	Region     string
	PostalCode string
	Country    string
	Primary    bool
}

// Line returns the single-line form of the address.
func (a Address) Line() string {
	if formatted := strings.TrimSpace(a.Formatted); formatted != "" {
		return formatted
	}
	return strings.Join(nonEmpty(a.Street, a.City, a.Region, a.PostalCode, a.Country), ", ")
}

// Organization is one employer/organization entry.
type Organization struct {
	Name    string
	Title   string
	Primary bool
}

// Contact is the hydrated contact model.
//
// Only the first element of each list is treated as primary for comparisons.
type Contact struct {
	ResourceID    string
	Names         []Name
	Emails        []Email
	Phones        []Phone
	Addresses     []Address
	Organizations []Organization
	UpdatedAt     time.Time
}

// DisplayName returns the primary name's display form.
func (c Contact) DisplayName() string {
	if len(c.Names) == 0 {
		return ""
	}
	return c.Names[0].Display()
}

// PrimaryEmail returns the first email value, if any.
func (c Contact) PrimaryEmail() string {
	if len(c.Emails) == 0 {
		return ""
	}
	return c.Emails[0].Value
}

// PrimaryPhone returns the first phone value, if any.
func (c Contact) PrimaryPhone() string {
	if len(c.Phones) == 0 {
		return ""
	}
	return c.Phones[0].Value
}

// Label renders a short human label: name, else primary email, else id.
func (c Contact) Label() string {
	for _, candidate := range []string{c.DisplayName(), c.PrimaryEmail(), c.PrimaryPhone()} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return c.ResourceID
}

// Draft is the create model for Directory.Create.
type Draft struct {
	Names         []Name
	Emails        []Email
	Phones        []Phone
	Addresses     []Address
	Organizations []Organization
}

// FieldUpdate is a full-replace patch of contact field groups.
//
// Nil pointer fields mean "no change". A non-nil pointer replaces the whole
// group, including clearing it with an empty slice.
type FieldUpdate struct {
	Names         *[]Name
	Emails        *[]Email
	Phones        *[]Phone
	Addresses     *[]Address
	Organizations *[]Organization
}

// Empty reports whether the update changes nothing.
func (u FieldUpdate) Empty() bool {
	return u.Names == nil && u.Emails == nil && u.Phones == nil && u.Addresses == nil && u.Organizations == nil
}

// Apply returns a copy of c with the update applied.
func (u FieldUpdate) Apply(c Contact) Contact {
	if u.Names != nil {
		c.Names = append([]Name(nil), (*u.Names)...)
	}
	if u.Emails != nil {
		c.Emails = append([]Email(nil), (*u.Emails)...)
	}
	if u.Phones != nil {
		c.Phones = append([]Phone(nil), (*u.Phones)...)
	}
	if u.Addresses != nil {
		c.Addresses = append([]Address(nil), (*u.Addresses)...)
	}
	if u.Organizations != nil {
		c.Organizations = append([]Organization(nil), (*u.Organizations)...)
	}
	return c
}

// WriteResult reports per-item write status for bulk operations.
type WriteResult struct {
	ResourceID string
	Succeeded  bool
	Err        error
}

// Directory is the contact store the dedupe engine reads and writes.
//
// Implementations own pagination, retries and rate limits of the backing
// service. List returns at most limit contacts; limit <= 0 means no cap.
type Directory interface {
	List(ctx context.Context, limit int) ([]Contact, error)
	Get(ctx context.Context, resourceID string) (Contact, error)
	Create(ctx context.Context, draft Draft) (Contact, error)
	Update(ctx context.Context, resourceID string, update FieldUpdate) (Contact, error)
	Delete(ctx context.Context, resourceID string) error
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}
