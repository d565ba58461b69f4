// Package leaderboard builds display-ready views from ranked entries.
package leaderboard

import (
	"context"
	"strconv"
	"time"

	"github.com/avesk/pickboard/internal/domain/aggregate"
	"github.com/avesk/pickboard/internal/domain/rank"
	"github.com/avesk/pickboard/internal/domain/scoring"
	"github.com/avesk/pickboard/internal/domain/types"
)

// DefaultTopN is the visible leaderboard slice for picker dashboards.
const DefaultTopN = 15

// missingField is the placeholder for absent profile data.
const missingField = "-"

// Builder turns ranked entries into view payloads, enriching them with
// directory data. It holds no per-request state.
type Builder struct {
	dir aggregate.Directory
}

// NewBuilder creates a view builder backed by the given profile directory.
func NewBuilder(dir aggregate.Directory) *Builder {
	return &Builder{dir: dir}
}

// Rankings builds the supervisor-facing view. limit <= 0 returns the full
// ranked list.
func (b *Builder) Rankings(ctx context.Context, entries []rank.Entry, cls scoring.Classifier, dailyAvg float64, limit int, now time.Time) types.RankingsView {
	rows := make([]types.Entry, 0, len(entries))
	for i := range entries {
		if limit > 0 && len(rows) >= limit {
			break
		}
		rows = append(rows, b.entryView(ctx, &entries[i], cls, now))
	}
	return types.RankingsView{
		Rankings:     rows,
		DailyAvg:     dailyAvg,
		TotalPickers: len(entries),
	}
}

// PickerStats builds the picker-facing view for requesterID. topN bounds the
// visible board; non-positive values fall back to DefaultTopN. The requester
// always receives an explicit record: when they have no events in the window
// the record is zero-valued and unranked, never absent.
func (b *Builder) PickerStats(ctx context.Context, entries []rank.Entry, cls scoring.Classifier, dailyAvg float64, requesterID string, topN int, now time.Time) types.PickerStats {
	if topN <= 0 {
		topN = DefaultTopN
	}
	self := b.selfEntry(ctx, entries, cls, requesterID, now)

	board := make([]types.Entry, 0, topN)
	selfVisible := false
	for i := range entries {
		if len(board) >= topN {
			break
		}
		row := b.entryView(ctx, &entries[i], cls, now)
		if aggregate.Fold(row.PickerID) == aggregate.Fold(requesterID) {
			row.IsCurrentUser = true
			selfVisible = true
		}
		board = append(board, row)
	}

	stats := types.PickerStats{
		ItemsPicked:     self.ItemsPicked,
		ItemsLost:       self.ItemsLost,
		UniquePicklists: self.UniquePicklists,
		Score:           self.Score,
		Rank:            self.Rank,
		TotalPickers:    len(entries),
		DailyAvg:        dailyAvg,
		StatusColor:     self.StatusColor,
		Cohort:          self.Cohort,
		Leaderboard:     board,
	}
	stats.ItemsToNextRank = itemsToNextRank(entries, self)
	stats.DifferenceFromFirst = differenceFromFirst(entries, self)
	if !selfVisible {
		pinned := self
		stats.CurrentUserEntry = &pinned
	}
	return stats
}

// selfEntry locates the requester's ranked entry or synthesizes the explicit
// zero record for an unranked requester.
func (b *Builder) selfEntry(ctx context.Context, entries []rank.Entry, cls scoring.Classifier, requesterID string, now time.Time) types.Entry {
	key := aggregate.Fold(requesterID)
	for i := range entries {
		if aggregate.Fold(entries[i].PickerID) == key {
			row := b.entryView(ctx, &entries[i], cls, now)
			row.IsCurrentUser = true
			return row
		}
	}
	zero := rank.Entry{Record: aggregate.Record{PickerID: requesterID}, Rank: rank.Unranked}
	row := b.entryView(ctx, &zero, cls, now)
	row.IsCurrentUser = true
	return row
}

func (b *Builder) entryView(ctx context.Context, e *rank.Entry, cls scoring.Classifier, now time.Time) types.Entry {
	row := types.Entry{
		Rank:            int(e.Rank),
		PickerID:        e.PickerID,
		Name:            missingField,
		UniquePicklists: e.UniquePicklists,
		ItemsPicked:     e.ItemsPicked,
		ItemsLost:       e.ItemsLost,
		Score:           e.Score,
		StatusColor:     string(cls.Classify(e.Score)),
		Cohort:          missingField,
	}
	profile, ok := b.dir.Lookup(ctx, e.PickerID)
	if !ok {
		return row
	}
	if profile.Name != "" {
		row.Name = profile.Name
	}
	if profile.Cohort > 0 {
		row.Cohort = strconv.Itoa(profile.Cohort)
	}
	if !profile.JoinedAt.IsZero() {
		age := int(now.Sub(profile.JoinedAt).Hours() / 24)
		if age < 0 {
			age = 0
		}
		row.AgeInDays = &age
	}
	return row
}

// itemsToNextRank is the score gap to overtake the next better tier, plus
// one. Rank 1 and unranked pickers have no next rank.
func itemsToNextRank(entries []rank.Entry, self types.Entry) int {
	if self.Rank < 2 {
		return 0
	}
	target := rank.Rank(self.Rank - 1)
	for i := range entries {
		if entries[i].Rank == target {
			return entries[i].Score - self.Score + 1
		}
	}
	return 0
}

// differenceFromFirst is the gap to the top score. For an unranked requester
// it is the full top score.
func differenceFromFirst(entries []rank.Entry, self types.Entry) int {
	if len(entries) == 0 {
		return 0
	}
	return entries[0].Score - self.Score
}
