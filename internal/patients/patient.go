// Package patients is the directory of known patients keyed by normalized name and date of birth.
package patients

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Patient is one directory entry.
type Patient struct {
	Name      string    `json:"name"`
	DOB       string    `json:"dob"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Contact is the stored contact detail for a known patient.
type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Empty reports whether neither field is set.
func (c Contact) Empty() bool {
	return c.Email == "" && c.Phone == ""
}

// Directory looks up and records patients.
type Directory interface {
	// Lookup reports whether a patient with this name and dob exists.
	Lookup(ctx context.Context, name, dob string) (bool, error)
	// FetchContact returns the stored contact, or a zero Contact when the patient is unknown.
	FetchContact(ctx context.Context, name, dob string) (Contact, error)
	// UpsertIfAbsent stores p unless the key already exists. The first write wins.
	UpsertIfAbsent(ctx context.Context, p Patient) (bool, error)
}

// Key is the case- and surrounding-whitespace-insensitive identity of a patient.
// The dob is compared as a string; differently formatted dates are different keys.
type Key struct {
	Name string
	DOB  string
}

// KeyFor normalizes name and dob into a directory key.
func KeyFor(name, dob string) Key {
	return Key{Name: strings.ToLower(strings.TrimSpace(name)), DOB: strings.TrimSpace(dob)}
}

// MemoryDirectory is an in-process Directory.
type MemoryDirectory struct {
	mu       sync.RWMutex
	patients map[Key]Patient
	now      func() time.Time
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{patients: make(map[Key]Patient), now: time.Now}
}

var _ Directory = (*MemoryDirectory)(nil)

func (d *MemoryDirectory) Lookup(_ context.Context, name, dob string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.patients[KeyFor(name, dob)]
	return ok, nil
}

func (d *MemoryDirectory) FetchContact(_ context.Context, name, dob string) (Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.patients[KeyFor(name, dob)]
	if !ok {
		return Contact{}, nil
	}
	return Contact{Email: p.Email, Phone: p.Phone}, nil
}

func (d *MemoryDirectory) UpsertIfAbsent(_ context.Context, p Patient) (bool, error) {
	key := KeyFor(p.Name, p.DOB)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.patients[key]; exists {
		return false, nil
	}
	p.Name = strings.TrimSpace(p.Name)
	p.DOB = key.DOB
	if p.CreatedAt.IsZero() {
		p.CreatedAt = d.now().UTC()
	}
	d.patients[key] = p
	return true, nil
}

// Seed adds patients without first-write checks. Later entries replace earlier ones.
func (d *MemoryDirectory) Seed(list ...Patient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range list {
		d.patients[KeyFor(p.Name, p.DOB)] = p
	}
}
