// Package scoring derives population statistics and performance tiers from
// aggregate records.
package scoring

import (
	"math"

	"github.com/avesk/pickboard/internal/domain/aggregate"
	"github.com/avesk/pickboard/internal/domain/window"
)

// Color is a three-level performance tier relative to the population average.
type Color string

// Tier labels, best to worst.
const (
	Green  Color = "green"
	Yellow Color = "yellow"
	Red    Color = "red"
)

// yellowFraction is the share of the daily average below which a picker
// drops from yellow to red.
const yellowFraction = 0.5

// DailyAverage returns the mean score over all pickers with at least one
// event, rounded to one decimal. An empty population averages to zero.
func DailyAverage(res *aggregate.Result) float64 {
	n := res.Pickers()
	if n == 0 {
		return 0
	}
	var sum int
	for _, rec := range res.Records() {
		sum += rec.Score
	}
	avg := float64(sum) / float64(n)
	return math.Round(avg*10) / 10
}

// Classifier assigns status colors for one resolved window. The comparison
// is only meaningful for the today filter; other windows have no same-day
// baseline and classify everything green.
type Classifier struct {
	filter   window.Filter
	dailyAvg float64
}

// NewClassifier builds a classifier from the window filter and the
// population's daily average.
func NewClassifier(filter window.Filter, dailyAvg float64) Classifier {
	return Classifier{filter: filter, dailyAvg: dailyAvg}
}

// Classify maps a score to its tier. A zero score against a zero average is
// green: nobody has done better, so no one is penalized on empty days.
func (c Classifier) Classify(score int) Color {
	if c.filter != window.Today {
		return Green
	}
	s := float64(score)
	switch {
	case s >= c.dailyAvg:
		return Green
	case s >= c.dailyAvg*yellowFraction:
		return Yellow
	default:
		return Red
	}
}
