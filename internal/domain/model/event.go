// Package model contains domain models passed between layers.
package model

import "time"

// ItemStatus is the terminal status of a picked item as reported by the
// warehouse export.
type ItemStatus string

// Statuses observed in item CSV exports.
const (
	StatusCompleted    ItemStatus = "COMPLETED"
	StatusItemNotFound ItemStatus = "ITEM_NOT_FOUND"
	StatusCancelled    ItemStatus = "CANCELLED"
	StatusItemReplaced ItemStatus = "ITEM_REPLACED"
)

// Picked reports whether the status counts as a successful pick.
func (s ItemStatus) Picked() bool {
	return s == StatusCompleted || s == StatusItemReplaced
}

// Lost reports whether the status counts as a lost item.
func (s ItemStatus) Lost() bool {
	return s == StatusItemNotFound
}

// ItemEvent is one immutable per-item record from a warehouse CSV export.
// A logical pick is identified by (PicklistID, BinID); when duplicates occur
// the row with the latest UpdatedAt is authoritative.
type ItemEvent struct {
	PickerID   string    // picker_ldap column
	Warehouse  string    // source_warehouse
	Status     ItemStatus
	PicklistID string    // external_picklist_id
	BinID      string    // location_bin_id
	Sequence   string    // location_sequence
	DispatchBy string    // dispatch_by_date, kept verbatim
	UpdatedAt  time.Time
	SourceFile string    // originating CSV file
}

// PickerProfile is directory data about a picker. All fields except PickerID
// are optional; absent values render as placeholders downstream.
type PickerProfile struct {
	PickerID string
	Name     string
	Cohort   int       // 0 means no cohort assignment
	JoinedAt time.Time // zero means unknown
}
