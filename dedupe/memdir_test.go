package dedupe

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spachava753/contacttidy/contacts"
)

// memDirectory is an in-memory contacts.Directory that records calls and can
// be told to fail specific ids.
type memDirectory struct {
	mu         sync.Mutex
	order      []string
	items      map[string]contacts.Contact
	failUpdate map[string]error
	failDelete map[string]error
	failList   error
	updates    []string
	deletes    []string
	nextID     int
}

func newMemDirectory(list ...contacts.Contact) *memDirectory {
	d := &memDirectory{
		items:      map[string]contacts.Contact{},
		failUpdate: map[string]error{},
		failDelete: map[string]error{},
	}
	for _, c := range list {
		d.order = append(d.order, c.ResourceID)
		d.items[c.ResourceID] = c
	}
	return d
}

func (d *memDirectory) List(_ context.Context, limit int) ([]contacts.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failList != nil {
		return nil, d.failList
	}
	out := []contacts.Contact{}
	for _, id := range d.order {
		c, ok := d.items[id]
		if !ok {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, c)
	}
	return out, nil
}

func (d *memDirectory) Get(_ context.Context, id string) (contacts.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.items[id]
	if !ok {
		return contacts.Contact{}, contacts.NotFound(id)
	}
	return c, nil
}

func (d *memDirectory) Create(_ context.Context, draft contacts.Draft) (contacts.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(draft.Names) == 0 && len(draft.Emails) == 0 && len(draft.Phones) == 0 {
		return contacts.Contact{}, contacts.Invalid("empty draft")
	}
	d.nextID++
	c := contacts.Contact{
		ResourceID:    fmt.Sprintf("people/new%d", d.nextID),
		Names:         draft.Names,
		Emails:        draft.Emails,
		Phones:        draft.Phones,
		Addresses:     draft.Addresses,
		Organizations: draft.Organizations,
	}
	d.order = append(d.order, c.ResourceID)
	d.items[c.ResourceID] = c
	return c, nil
}

func (d *memDirectory) Update(_ context.Context, id string, update contacts.FieldUpdate) (contacts.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, id)
	if err := d.failUpdate[id]; err != nil {
		return contacts.Contact{}, err
	}
	c, ok := d.items[id]
	if !ok {
		return contacts.Contact{}, contacts.NotFound(id)
	}
	c = update.Apply(c)
	d.items[id] = c
	return c, nil
}

func (d *memDirectory) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deletes = append(d.deletes, id)
	if err := d.failDelete[id]; err != nil {
		return err
	}
	if _, ok := d.items[id]; !ok {
		return contacts.NotFound(id)
	}
	delete(d.items, id)
	return nil
}

func (d *memDirectory) calls() (updates, deletes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.updates), len(d.deletes)
}

var errBackend = errors.New("backend unavailable")

func person(id, name, email, phone string) contacts.Contact {
	c := contacts.Contact{ResourceID: id}
	if name != "" {
		c.Names = []contacts.Name{{DisplayName: name, Primary: true}}
	}
	if email != "" {
		c.Emails = []contacts.Email{{Value: email, Primary: true}}
	}
	if phone != "" {
		c.Phones = []contacts.Phone{{Value: phone, Primary: true}}
	}
	return c
}

// noPacing keeps batch tests fast.
var noPacing = BatchOptions{Pacing: -1}
