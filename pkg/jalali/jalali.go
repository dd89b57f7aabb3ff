package jalali

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var (
	// ErrParse is returned when a date string is not three numeric Y/M/D parts.
	ErrParse = errors.New("invalid jalali date format: expected Y/m/d")
	// ErrInvalidDate is returned for well-formed dates that do not exist in the calendar.
	ErrInvalidDate = errors.New("invalid jalali date")
	// ErrOutOfRange is returned for civil dates outside MinYear..MaxYear.
	ErrOutOfRange = errors.New("date outside supported jalali range")
)

// MinYear is the first supported Jalali year. 1300/01/01 is the conversion anchor.
const MinYear = 1300

// MaxYear is the last supported Jalali year. Schedules starting in the
// last years of the holiday feeds must still land past them, so the bound
// sits well beyond 1406 while keeping every conversion a short loop.
const MaxYear = 1500

// anchor is Jalali 1300/01/01.
var anchor = civil.Date{Year: 1921, Month: time.March, Day: 21}

// end is the civil day after MaxYear/12/last.
var end = func() civil.Date {
	days := 0
	for y := MinYear; y <= MaxYear; y++ {
		days += DaysInYear(y)
	}
	return anchor.AddDays(days)
}()

// MaxCivil returns the civil date of the last supported Jalali day.
func MaxCivil() civil.Date {
	return end.AddDays(-1)
}

// leapResidues is the 33-year cycle rule used by the protocol: a year is
// leap when year mod 33 falls in this set.
var leapResidues = map[int]struct{}{
	1: {}, 5: {}, 9: {}, 13: {}, 17: {}, 21: {}, 26: {}, 30: {},
}

// IsLeap reports whether Esfand of the given year has 30 days.
func IsLeap(year int) bool {
	r := year % 33
	if r < 0 {
		r += 33
	}
	_, ok := leapResidues[r]
	return ok
}

// DaysInMonth returns the length of a Jalali month, or 0 for a month outside 1..12.
func DaysInMonth(year, month int) int {
	switch {
	case month >= 1 && month <= 6:
		return 31
	case month >= 7 && month <= 11:
		return 30
	case month == 12:
		if IsLeap(year) {
			return 30
		}
		return 29
	default:
		return 0
	}
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	if IsLeap(year) {
		return 366
	}
	return 365
}

// Date is a Jalali calendar date.
type Date struct {
	Year  int
	Month int
	Day   int
}

// String renders the date as zero-padded YYYY/MM/DD with Latin digits.
// Holiday feeds are keyed by this form.
func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// MarshalText implements encoding.TextMarshaler using the canonical form.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using Parse.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks that the date exists in the supported calendar range.
func (d Date) Validate() error {
	if d.Year < MinYear {
		return fmt.Errorf("%w: year %d is before %d", ErrInvalidDate, d.Year, MinYear)
	}
	if d.Year > MaxYear {
		return fmt.Errorf("%w: year %d is after %d", ErrInvalidDate, d.Year, MaxYear)
	}
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, d.Month)
	}
	if d.Day < 1 || d.Day > DaysInMonth(d.Year, d.Month) {
		return fmt.Errorf("%w: day %d of %04d/%02d", ErrInvalidDate, d.Day, d.Year, d.Month)
	}
	return nil
}

// Before reports whether d is chronologically before o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// dayOfYear returns the zero-based offset of d within its year.
func (d Date) dayOfYear() int {
	days := d.Day - 1
	for m := 1; m < d.Month; m++ {
		days += DaysInMonth(d.Year, m)
	}
	return days
}

// ToCivil converts a Jalali date to its Gregorian civil date.
func ToCivil(d Date) (civil.Date, error) {
	if err := d.Validate(); err != nil {
		return civil.Date{}, err
	}

	days := d.dayOfYear()
	for y := MinYear; y < d.Year; y++ {
		days += DaysInYear(y)
	}

	return anchor.AddDays(days), nil
}

// ToJalali converts a Gregorian civil date to a Jalali date.
func ToJalali(c civil.Date) (Date, error) {
	if !c.IsValid() {
		return Date{}, fmt.Errorf("%w: %v", ErrInvalidDate, c)
	}

	offset := c.DaysSince(anchor)
	if offset < 0 || !c.Before(end) {
		return Date{}, fmt.Errorf("%w: %s", ErrOutOfRange, c)
	}

	year := MinYear
	for n := DaysInYear(year); offset >= n; n = DaysInYear(year) {
		offset -= n
		year++
	}

	month := 1
	for n := DaysInMonth(year, month); offset >= n; n = DaysInMonth(year, month) {
		offset -= n
		month++
	}

	return Date{Year: year, Month: month, Day: offset + 1}, nil
}

// Parse parses a Y/M/D string written with Latin, Persian or Arabic-Indic
// digits. It does not check that the date exists; ToCivil does.
func Parse(text string) (Date, error) {
	parts := strings.Split(NormalizeDigits(strings.TrimSpace(text)), "/")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrParse, text)
	}

	var fields [3]int
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if !isDigits(part) {
			return Date{}, fmt.Errorf("%w: %q", ErrParse, text)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q: %v", ErrParse, text, err)
		}
		fields[i] = n
	}

	return Date{Year: fields[0], Month: fields[1], Day: fields[2]}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(text string) Date {
	d, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return d
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
