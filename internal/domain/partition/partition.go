// Package partition names the hot and year-sharded cold partitions of a
// collection and routes date-bounded queries across them.
package partition

import (
	"strconv"
	"time"
)

// Scheme describes the physical layout of one collection.
type Scheme struct {
	Hot        string
	ColdPrefix string
}

// ColdFor returns the cold partition holding documents created in year.
func (s Scheme) ColdFor(year int) string {
	return s.ColdPrefix + strconv.Itoa(year)
}

// ColdPattern returns the wildcard covering every cold partition.
func (s Scheme) ColdPattern() string {
	return s.ColdPrefix + "*"
}

// Archived reports whether the scheme has cold partitions at all.
func (s Scheme) Archived() bool {
	return s.ColdPrefix != ""
}

// Cutoff is the retention boundary: documents created before it belong in cold storage.
// It is always in UTC, the zone years are bucketed in.
func Cutoff(now time.Time, retentionYears int) time.Time {
	return now.UTC().AddDate(-retentionYears, 0, 0)
}

// YearWindow returns the half-open UTC window [start, end) of year, truncated at cutoff.
func YearWindow(year int, cutoff time.Time) (start, end time.Time) {
	start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	if cutoff.Before(end) {
		end = cutoff
	}
	return start, end
}
