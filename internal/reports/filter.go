package reports

import (
	"fmt"
	"time"

	"github.com/asad/sasfetch/internal/apperr"
)

// DateLayout is the format of every date given on the command line.
const DateLayout = "2006-01-02"

// Mode selects how a Filter compares a record's date.
type Mode int

const (
	// ModeAll matches every record, dated or not.
	ModeAll Mode = iota
	// ModeSince matches dates on or after Start.
	ModeSince
	// ModeExact matches dates equal to Start.
	ModeExact
	// ModeRange matches dates between Start and End inclusive.
	ModeRange
)

// String returns the mode name used in logs.
func (m Mode) String() string {
	switch m {
	case ModeSince:
		return "since"
	case ModeExact:
		return "exact"
	case ModeRange:
		return "range"
	default:
		return "all"
	}
}

// maxDate stands in for an open upper bound.
var maxDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Filter is a date predicate over blob records. Start and End are UTC
// midnights and both bounds are inclusive.
type Filter struct {
	Mode  Mode
	Start time.Time
	End   time.Time
}

// ParseDate parses a YYYY-MM-DD argument into a UTC calendar date.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, apperr.New(apperr.KindValidation, "", "invalid date %q: expected YYYY-MM-DD", value)
	}
	return d, nil
}

// AllFilter matches every record, including those without a date.
func AllFilter() Filter {
	return Filter{Mode: ModeAll}
}

// SinceFilter matches dates on or after since.
func SinceFilter(since string) (Filter, error) {
	start, err := ParseDate(since)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Mode: ModeSince, Start: start, End: maxDate}, nil
}

// ExactFilter matches dates equal to target.
func ExactFilter(target string) (Filter, error) {
	d, err := ParseDate(target)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Mode: ModeExact, Start: d, End: d}, nil
}

// RangeFilter matches dates within [start, end].
func RangeFilter(start, end string) (Filter, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Filter{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Filter{}, err
	}
	if e.Before(s) {
		return Filter{}, apperr.New(apperr.KindValidation, "", "end date %s must be the same as or after start date %s", end, start)
	}
	return Filter{Mode: ModeRange, Start: s, End: e}, nil
}

// Match reports whether a calendar date satisfies the filter.
func (f Filter) Match(d time.Time) bool {
	if f.Mode == ModeAll {
		return true
	}
	d = truncateDay(d)
	return !d.Before(f.Start) && !d.After(f.End)
}

// Label describes the filter for progress output. ModeAll has no label.
func (f Filter) Label() string {
	switch f.Mode {
	case ModeSince:
		return fmt.Sprintf("modified since %s", f.Start.Format(DateLayout))
	case ModeExact:
		return fmt.Sprintf("modified on %s", f.Start.Format(DateLayout))
	case ModeRange:
		return fmt.Sprintf("from %s to %s", f.Start.Format(DateLayout), f.End.Format(DateLayout))
	default:
		return ""
	}
}

// Select returns the records matching f, in input order. Records whose date
// cannot be resolved only survive ModeAll.
func Select(records []BlobRecord, f Filter, resolver DateResolver) []BlobRecord {
	out := make([]BlobRecord, 0, len(records))
	for _, rec := range records {
		if f.Mode == ModeAll {
			out = append(out, rec)
			continue
		}
		d, ok := resolver.Date(rec)
		if ok && f.Match(d) {
			out = append(out, rec)
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
