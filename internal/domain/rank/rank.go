// Package rank orders aggregate records into a total order with dense ranks.
package rank

import (
	"sort"

	"github.com/avesk/pickboard/internal/domain/aggregate"
)

// Rank is a leaderboard position. Positions start at 1; the zero value is
// the explicit "not ranked" state, never a valid position.
type Rank int

// Unranked marks a picker with no events in the window.
const Unranked Rank = 0

// Ranked reports whether r is a real position.
func (r Rank) Ranked() bool {
	return r > 0
}

// Entry is an aggregate record with its assigned rank.
type Entry struct {
	aggregate.Record
	Rank Rank
}

// Order sorts records by score desc, unique picklists desc, then case-folded
// picker id asc, and assigns dense ranks: equal scores share a rank and the
// next distinct score resumes at the previous rank plus one.
//
// The tie-breaks guarantee a total order, so identical inputs always produce
// identical output.
func Order(res *aggregate.Result) []Entry {
	records := make([]*aggregate.Record, 0, res.Pickers())
	for _, rec := range res.Records() {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.UniquePicklists != b.UniquePicklists {
			return a.UniquePicklists > b.UniquePicklists
		}
		return aggregate.Fold(a.PickerID) < aggregate.Fold(b.PickerID)
	})

	entries := make([]Entry, len(records))
	current := Rank(0)
	for i, rec := range records {
		if i == 0 || rec.Score != records[i-1].Score {
			current++
		}
		entries[i] = Entry{Record: *rec, Rank: current}
	}
	return entries
}
