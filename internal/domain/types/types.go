// Package types contains common view types used across the application.
package types

import "time"

// Entry represents a leaderboard row.
type Entry struct {
	Rank            int    `json:"rank"`
	PickerID        string `json:"picker_id"`
	Name            string `json:"name"`
	UniquePicklists int    `json:"unique_picklists"`
	ItemsPicked     int    `json:"items_picked"`
	ItemsLost       int    `json:"items_lost"`
	Score           int    `json:"score"`
	StatusColor     string `json:"status_color"`
	Cohort          string `json:"cohort"`
	AgeInDays       *int   `json:"age_in_days"` // null when the join date is unknown
	IsCurrentUser   bool   `json:"is_current_user,omitempty"`
}

// PickerStats is the picker-facing dashboard payload.
type PickerStats struct {
	ItemsPicked         int     `json:"items_picked"`
	ItemsLost           int     `json:"items_lost"`
	UniquePicklists     int     `json:"unique_picklists"`
	Score               int     `json:"score"`
	Rank                int     `json:"rank"` // 0 means not ranked
	TotalPickers        int     `json:"total_pickers"`
	ItemsToNextRank     int     `json:"items_to_next_rank"`
	DifferenceFromFirst int     `json:"difference_from_first"`
	DailyAvg            float64 `json:"daily_avg"`
	StatusColor         string  `json:"status_color"`
	Cohort              string  `json:"cohort"`
	Leaderboard         []Entry `json:"leaderboard"`
	CurrentUserEntry    *Entry  `json:"current_user_entry,omitempty"`
}

// RankingsView is the supervisor-facing rankings payload.
type RankingsView struct {
	Rankings     []Entry `json:"rankings"`
	DailyAvg     float64 `json:"daily_avg"`
	TotalPickers int     `json:"total_pickers"`
	Cohort       string  `json:"cohort"`
}

// DetailRow is one raw item event in a picker detail view.
type DetailRow struct {
	PicklistID string    `json:"external_picklist_id"`
	BinID      string    `json:"location_bin_id"`
	Status     string    `json:"item_status"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PickerDetail is the per-picker drill-down payload, newest events first.
type PickerDetail struct {
	PickerID  string      `json:"picker_id"`
	Name      string      `json:"name"`
	Cohort    string      `json:"cohort"`
	AgeInDays *int        `json:"age_in_days"`
	Details   []DetailRow `json:"details"`
}
