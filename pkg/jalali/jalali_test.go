package jalali

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ptime "github.com/yaa110/go-persian-calendar"
)

func TestIsLeap(t *testing.T) {
	leapResidueList := []int{1, 5, 9, 13, 17, 21, 26, 30}
	for r := 0; r < 33; r++ {
		expected := false
		for _, lr := range leapResidueList {
			if r == lr {
				expected = true
			}
		}
		// 1287 is a multiple of 33, so 1287+r has residue r.
		assert.Equal(t, expected, IsLeap(1287+r), "residue %d", r)
		assert.Equal(t, expected, IsLeap(1386+r), "residue %d", r)
	}

	// 1300 mod 33 = 13, 1303 mod 33 = 16.
	assert.True(t, IsLeap(1300))
	assert.False(t, IsLeap(1303))
	assert.True(t, IsLeap(1399))
	assert.True(t, IsLeap(1403))
	assert.False(t, IsLeap(1404))
}

func TestDaysInMonth(t *testing.T) {
	for m := 1; m <= 6; m++ {
		assert.Equal(t, 31, DaysInMonth(1404, m))
	}
	for m := 7; m <= 11; m++ {
		assert.Equal(t, 30, DaysInMonth(1404, m))
	}
	assert.Equal(t, 29, DaysInMonth(1404, 12))
	assert.Equal(t, 30, DaysInMonth(1403, 12))
	assert.Equal(t, 0, DaysInMonth(1404, 0))
	assert.Equal(t, 0, DaysInMonth(1404, 13))
}

func TestToCivil_KnownDates(t *testing.T) {
	tests := []struct {
		jalali string
		civil  civil.Date
	}{
		{"1300/01/01", civil.Date{Year: 1921, Month: time.March, Day: 21}},
		{"1357/11/22", civil.Date{Year: 1979, Month: time.February, Day: 11}},
		{"1400/01/01", civil.Date{Year: 2021, Month: time.March, Day: 21}},
		{"1403/12/30", civil.Date{Year: 2025, Month: time.March, Day: 20}},
		{"1404/01/01", civil.Date{Year: 2025, Month: time.March, Day: 21}},
		{"1404/01/13", civil.Date{Year: 2025, Month: time.April, Day: 2}},
		{"1405/01/01", civil.Date{Year: 2026, Month: time.March, Day: 21}},
	}

	for _, tt := range tests {
		t.Run(tt.jalali, func(t *testing.T) {
			got, err := ToCivil(MustParse(tt.jalali))
			require.NoError(t, err)
			assert.Equal(t, tt.civil, got)

			back, err := ToJalali(tt.civil)
			require.NoError(t, err)
			assert.Equal(t, tt.jalali, back.String())
		})
	}
}

func TestToCivil_InvalidDate(t *testing.T) {
	tests := []struct {
		name string
		date Date
	}{
		{"month zero", Date{1404, 0, 1}},
		{"month thirteen", Date{1404, 13, 1}},
		{"day zero", Date{1404, 1, 0}},
		{"day 32 in first half", Date{1404, 6, 32}},
		{"day 31 in second half", Date{1404, 7, 31}},
		{"esfand 30 in common year", Date{1404, 12, 30}},
		{"before anchor", Date{1299, 12, 29}},
		{"after last year", Date{MaxYear + 1, 1, 1}},
		{"far future", Date{9000000000, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToCivil(tt.date)
			assert.ErrorIs(t, err, ErrInvalidDate)
		})
	}

	_, err := ToCivil(Date{1403, 12, 30})
	assert.NoError(t, err)
}

func TestRoundTrip(t *testing.T) {
	var prev civil.Date
	first := true

	for y := MinYear; y <= 1406; y++ {
		for m := 1; m <= 12; m++ {
			for d := 1; d <= DaysInMonth(y, m); d++ {
				date := Date{Year: y, Month: m, Day: d}

				c, err := ToCivil(date)
				require.NoError(t, err, date.String())

				back, err := ToJalali(c)
				require.NoError(t, err, date.String())
				require.Equal(t, date, back)

				if !first {
					require.Equal(t, 1, c.DaysSince(prev), "dates must be consecutive at %s", date)
				}
				prev = c
				first = false
			}
		}
	}
}

func TestMonotonicity(t *testing.T) {
	a := Date{1350, 6, 31}
	b := Date{1350, 7, 1}
	require.True(t, a.Before(b))

	ca, err := ToCivil(a)
	require.NoError(t, err)
	cb, err := ToCivil(b)
	require.NoError(t, err)
	assert.True(t, ca.Before(cb))
}

func TestToJalali_BeforeAnchor(t *testing.T) {
	_, err := ToJalali(civil.Date{Year: 1921, Month: time.March, Day: 20})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestToJalali_UpperBound(t *testing.T) {
	last := Date{MaxYear, 12, DaysInMonth(MaxYear, 12)}

	c, err := ToCivil(last)
	require.NoError(t, err)
	assert.Equal(t, MaxCivil(), c)

	got, err := ToJalali(MaxCivil())
	require.NoError(t, err)
	assert.Equal(t, last, got)

	_, err = ToJalali(MaxCivil().AddDays(1))
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = ToJalali(civil.Date{Year: 9999, Month: time.December, Day: 31})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestToCivil_HugeYearFailsFast(t *testing.T) {
	d, err := Parse("9000000000/01/01")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := ToCivil(d)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrInvalidDate)
	case <-time.After(time.Second):
		t.Fatal("ToCivil did not return for an out-of-range year")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{"latin digits", "1404/03/15", Date{1404, 3, 15}, false},
		{"no padding", "1404/3/5", Date{1404, 3, 5}, false},
		{"persian digits", "۱۴۰۴/۰۳/۱۵", Date{1404, 3, 15}, false},
		{"arabic-indic digits", "١٤٠٤/٠٣/١٥", Date{1404, 3, 15}, false},
		{"surrounding spaces", " 1404/01/01 ", Date{1404, 1, 1}, false},
		{"two parts", "1404/03", Date{}, true},
		{"four parts", "1404/03/15/1", Date{}, true},
		{"dash separator", "1404-03-15", Date{}, true},
		{"letters", "1404/aa/15", Date{}, true},
		{"empty part", "1404//15", Date{}, true},
		{"signed part", "1404/+3/15", Date{}, true},
		{"empty", "", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_DoesNotCheckCalendar(t *testing.T) {
	d, err := Parse("1404/12/30")
	require.NoError(t, err)

	_, err = ToCivil(d)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestNormalizeDigits(t *testing.T) {
	assert.Equal(t, "1404/01/01", NormalizeDigits("۱۴۰۴/۰۱/۰۱"))
	assert.Equal(t, "0123456789", NormalizeDigits("٠١٢٣٤٥٦٧٨٩"))
	assert.Equal(t, "abc-12", NormalizeDigits("abc-۱2"))
}

func TestLongForm(t *testing.T) {
	// 2025-03-21 is a Friday.
	got, err := LongForm(civil.Date{Year: 2025, Month: time.March, Day: 21})
	require.NoError(t, err)
	assert.Equal(t, ptime.Jomeh.String()+" 1 "+ptime.Farvardin.String()+" 1404", got)

	_, err = LongForm(civil.Date{Year: 1900, Month: time.January, Day: 1})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestToday(t *testing.T) {
	// 21:00 UTC on 2025-03-20 is already 1404/01/01 in Tehran.
	now := time.Date(2025, time.March, 20, 21, 0, 0, 0, time.UTC)
	d, err := Today(now)
	require.NoError(t, err)
	assert.Equal(t, "1404/01/01", d.String())
}

func TestDate_Text(t *testing.T) {
	b, err := Date{1404, 1, 1}.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1404/01/01", string(b))

	var d Date
	require.NoError(t, d.UnmarshalText([]byte("۱۴۰۴/۰۱/۱۳")))
	assert.Equal(t, Date{1404, 1, 13}, d)

	assert.ErrorIs(t, d.UnmarshalText([]byte("1404-01-13")), ErrParse)
}
