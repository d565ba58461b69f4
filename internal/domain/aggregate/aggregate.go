// Package aggregate reduces item events into per-picker performance records.
package aggregate

import (
	"context"
	"strings"

	"github.com/avesk/pickboard/internal/domain/model"
	"github.com/avesk/pickboard/internal/domain/window"
)

// Record is one picker's reduced activity within a window. Records are
// ephemeral: recomputed per request and never persisted.
type Record struct {
	PickerID        string // first-seen spelling, kept for display
	UniquePicklists int
	ItemsPicked     int
	ItemsLost       int
	Score           int
}

// CohortScope selects which pickers participate in an aggregation.
// The zero value admits every picker.
type CohortScope int

// AllCohorts admits every picker regardless of cohort assignment.
const AllCohorts CohortScope = 0

func (s CohortScope) admits(cohort int) bool {
	return s == AllCohorts || int(s) == cohort
}

// Directory is the picker-profile collaborator used to resolve cohorts.
type Directory interface {
	Lookup(ctx context.Context, pickerID string) (model.PickerProfile, bool)
}

// Result holds the aggregate map keyed by case-folded picker id.
type Result struct {
	records map[string]*Record
}

// Get returns the record for a picker, matching case-insensitively.
func (r *Result) Get(pickerID string) (*Record, bool) {
	rec, ok := r.records[Fold(pickerID)]
	return rec, ok
}

// Pickers returns the number of distinct pickers with at least one event.
func (r *Result) Pickers() int {
	return len(r.records)
}

// Records returns the aggregate map. Callers must not mutate it.
func (r *Result) Records() map[string]*Record {
	return r.records
}

// Fold normalizes a picker id for identity comparison. Exports use
// inconsistent casing for the same LDAP id.
func Fold(pickerID string) string {
	return strings.ToLower(strings.TrimSpace(pickerID))
}

// Reduce scans events once and produces one record per picker seen in the
// range. The pass is order-independent: only commutative counters and sets
// are maintained. Pickers with zero events never appear in the result.
//
// When scope names a cohort, events from pickers whose profile is absent or
// assigned elsewhere are skipped, not errored.
func Reduce(ctx context.Context, events []model.ItemEvent, rng window.Range, scope CohortScope, dir Directory) *Result {
	records := make(map[string]*Record)
	picklists := make(map[string]map[string]struct{})

	for i := range events {
		ev := &events[i]
		if !rng.Contains(ev.UpdatedAt) {
			continue
		}
		key := Fold(ev.PickerID)
		if key == "" {
			continue
		}
		if scope != AllCohorts {
			profile, ok := dir.Lookup(ctx, key)
			if !ok || !scope.admits(profile.Cohort) {
				continue
			}
		}

		rec, ok := records[key]
		if !ok {
			rec = &Record{PickerID: ev.PickerID}
			records[key] = rec
			picklists[key] = make(map[string]struct{})
		}

		// Picklist distinctness is status-agnostic: cancelled rows still
		// mark the picklist as visited.
		if ev.PicklistID != "" {
			picklists[key][ev.PicklistID] = struct{}{}
		}

		switch {
		case ev.Status.Picked():
			rec.ItemsPicked++
		case ev.Status.Lost():
			rec.ItemsLost++
		}
	}

	for key, rec := range records {
		rec.UniquePicklists = len(picklists[key])
		rec.Score = rec.ItemsPicked
	}
	return &Result{records: records}
}
