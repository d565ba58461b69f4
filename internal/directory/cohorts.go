package directory

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ImportSummary reports the outcome of a cohort CSV import.
type ImportSummary struct {
	Pickers  int         // distinct pickers assigned
	Created  int         // profiles created by the import
	Updated  int         // existing profiles whose cohort changed
	Cohorts  int         // cohort columns recognized in the header
	PerQuota map[int]int // cohort -> member count after import
}

// ImportCohortCSV loads the column-per-cohort roster layout: the header row
// holds labels like "Cohort 1", "Cohort 2", ... and each data row lists one
// picker id per cohort column. Empty cells are skipped; a picker appearing
// in several columns ends up in the last one read.
func (d *InMemoryDirectory) ImportCohortCSV(ctx context.Context, r io.Reader, now time.Time) (ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return ImportSummary{}, fmt.Errorf("read cohort header: %w", err)
	}

	cohortByColumn := make(map[int]int)
	for idx, label := range header {
		label = strings.TrimSpace(label)
		if !strings.HasPrefix(strings.ToLower(label), "cohort") {
			continue
		}
		parts := strings.Fields(label)
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			continue
		}
		cohortByColumn[idx] = n
	}

	assignments := make(map[string]int)
	display := make(map[string]string)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ImportSummary{}, fmt.Errorf("read cohort row: %w", err)
		}
		for idx, cohort := range cohortByColumn {
			if idx >= len(row) {
				continue
			}
			pickerID := strings.TrimSpace(row[idx])
			if pickerID == "" {
				continue
			}
			assignments[fold(pickerID)] = cohort
			display[fold(pickerID)] = pickerID
		}
	}

	summary := ImportSummary{
		Pickers:  len(assignments),
		Cohorts:  len(cohortByColumn),
		PerQuota: make(map[int]int),
	}
	for key, cohort := range assignments {
		_, existed := d.Lookup(ctx, key)
		d.Assign(ctx, display[key], cohort, now)
		if existed {
			summary.Updated++
		} else {
			summary.Created++
		}
	}

	d.mu.RLock()
	for _, p := range d.profiles {
		if p.Cohort > 0 {
			summary.PerQuota[p.Cohort]++
		}
	}
	d.mu.RUnlock()
	return summary, nil
}
