// Package directory maintains picker profiles and cohort membership.
package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/avesk/pickboard/internal/domain/model"
)

// Directory resolves picker profiles. Lookups match case-insensitively.
type Directory interface {
	// Lookup returns the profile for a picker id, or false when unknown.
	Lookup(ctx context.Context, pickerID string) (model.PickerProfile, bool)

	// Register records a picker first seen in an item export. Existing
	// profiles are left untouched.
	Register(ctx context.Context, pickerID string, joinedAt time.Time)

	// Assign sets or updates a picker's cohort, creating the profile if
	// needed.
	Assign(ctx context.Context, pickerID string, cohort int, joinedAt time.Time)

	// Count returns the number of known profiles.
	Count(ctx context.Context) int
}

// InMemoryDirectory implements Directory with a mutex-guarded map keyed by
// case-folded picker id.
type InMemoryDirectory struct {
	mu       sync.RWMutex
	profiles map[string]model.PickerProfile
}

// NewInMemoryDirectory creates an empty directory.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{profiles: make(map[string]model.PickerProfile)}
}

func fold(pickerID string) string {
	return strings.ToLower(strings.TrimSpace(pickerID))
}

// Lookup returns the profile for a picker id.
func (d *InMemoryDirectory) Lookup(_ context.Context, pickerID string) (model.PickerProfile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.profiles[fold(pickerID)]
	return p, ok
}

// Register adds a cohort-less profile unless one already exists.
func (d *InMemoryDirectory) Register(_ context.Context, pickerID string, joinedAt time.Time) {
	key := fold(pickerID)
	if key == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.profiles[key]; ok {
		return
	}
	d.profiles[key] = model.PickerProfile{PickerID: pickerID, JoinedAt: joinedAt}
}

// Assign sets a picker's cohort, creating the profile when absent. An
// existing join date is preserved.
func (d *InMemoryDirectory) Assign(_ context.Context, pickerID string, cohort int, joinedAt time.Time) {
	key := fold(pickerID)
	if key == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.profiles[key]
	if !ok {
		p = model.PickerProfile{PickerID: pickerID, JoinedAt: joinedAt}
	}
	p.Cohort = cohort
	d.profiles[key] = p
}

// Count returns the number of known profiles.
func (d *InMemoryDirectory) Count(_ context.Context) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.profiles)
}
