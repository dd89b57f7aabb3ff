package jalali

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	ptime "github.com/yaa110/go-persian-calendar"
)

// LongForm renders a civil date as "<weekday> <day> <month name> <year>"
// using Persian weekday and month names. The day triple comes from ToJalali
// so the rendering always agrees with the scheduling calendar.
func LongForm(c civil.Date) (string, error) {
	d, err := ToJalali(c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %d %s %d",
		persianWeekday(c.Weekday()).String(),
		d.Day,
		ptime.Month(d.Month).String(),
		d.Year,
	), nil
}

// Today returns the current Jalali date in Iran local time.
func Today(now time.Time) (Date, error) {
	return ToJalali(civil.DateOf(now.In(ptime.Iran())))
}

// persianWeekday maps a Gregorian weekday to the Persian week, which starts on Saturday.
func persianWeekday(wd time.Weekday) ptime.Weekday {
	return ptime.Weekday((int(wd) + 1) % 7)
}
