package eligibility

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"

	"metargb/transfusion-service/pkg/jalali"
)

// holidaySet is keyed by canonical Jalali dates (YYYY/MM/DD). A published
// set is never mutated.
type holidaySet map[string]struct{}

// Calendar answers whether treatment may be scheduled on a date. Reads use
// an atomically swapped snapshot, so IsEligible never blocks on Load.
type Calendar struct {
	restDay  time.Weekday
	holidays atomic.Pointer[holidaySet]
	loaded   atomic.Bool
	mu       sync.Mutex // serializes Load
}

// New creates an empty calendar that only honors the weekly rest day.
func New(restDay time.Weekday) *Calendar {
	c := &Calendar{restDay: restDay}
	empty := holidaySet{}
	c.holidays.Store(&empty)
	return c
}

// RestDay returns the weekly rest day.
func (c *Calendar) RestDay() time.Weekday {
	return c.restDay
}

// IsEligible reports whether d is neither the rest day nor an official holiday.
func (c *Calendar) IsEligible(d civil.Date) bool {
	if d.Weekday() == c.restDay {
		return false
	}

	jd, err := jalali.ToJalali(d)
	if err != nil {
		// No feed can list a date outside the supported range.
		return true
	}

	_, holiday := (*c.holidays.Load())[jd.String()]
	return !holiday
}

// Load merges holiday collections into the calendar and returns how many new
// dates were added. Records that do not parse to a valid Jalali date are
// skipped. Repeated loads only ever add dates.
func (c *Calendar) Load(collections ...[]Record) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := *c.holidays.Load()
	next := make(holidaySet, len(current))
	for k := range current {
		next[k] = struct{}{}
	}

	added := 0
	for _, records := range collections {
		for _, rec := range records {
			d, err := jalali.Parse(rec.Date)
			if err != nil {
				continue
			}
			if err := d.Validate(); err != nil {
				continue
			}
			key := d.String()
			if _, ok := next[key]; ok {
				continue
			}
			next[key] = struct{}{}
			added++
		}
	}

	c.holidays.Store(&next)
	c.loaded.Store(true)
	return added
}

// Loaded reports whether any Load has happened.
func (c *Calendar) Loaded() bool {
	return c.loaded.Load()
}

// Len returns the number of official holidays currently known.
func (c *Calendar) Len() int {
	return len(*c.holidays.Load())
}

// Holidays returns the known holidays in chronological order.
func (c *Calendar) Holidays() []string {
	set := *c.holidays.Load()
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	// Zero-padded keys sort chronologically.
	sort.Strings(out)
	return out
}
