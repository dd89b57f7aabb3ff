package eligibility

import (
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestCalendar_RestDay(t *testing.T) {
	cal := New(time.Friday)

	assert.False(t, cal.Loaded())
	assert.False(t, cal.IsEligible(date(2025, time.March, 21)), "2025-03-21 is a Friday")
	assert.True(t, cal.IsEligible(date(2025, time.March, 22)))
	assert.True(t, cal.IsEligible(date(2025, time.April, 2)))
}

func TestCalendar_Load(t *testing.T) {
	cal := New(time.Friday)

	added := cal.Load([]Record{
		{Date: "1404/01/13"},
		{Date: "۱۴۰۴/۰۱/۱۲"},
		{Date: "1404/1/2"},
		{Date: "garbage"},
		{Date: "1404/12/30"},
		{Date: ""},
	})

	assert.Equal(t, 3, added)
	assert.True(t, cal.Loaded())
	assert.Equal(t, []string{"1404/01/02", "1404/01/12", "1404/01/13"}, cal.Holidays())

	assert.False(t, cal.IsEligible(date(2025, time.April, 2)), "1404/01/13")
	assert.False(t, cal.IsEligible(date(2025, time.April, 1)), "1404/01/12")
	assert.False(t, cal.IsEligible(date(2025, time.March, 22)), "1404/01/02")
	assert.True(t, cal.IsEligible(date(2025, time.April, 3)), "1404/01/14")
}

func TestCalendar_LoadIsIdempotent(t *testing.T) {
	records := []Record{{Date: "1404/01/13"}, {Date: "1404/03/14"}, {Date: "1404/03/15"}}

	once := New(time.Friday)
	once.Load(records)

	twice := New(time.Friday)
	twice.Load(records)
	assert.Equal(t, 0, twice.Load(records))

	start := date(2025, time.March, 21)
	for i := 0; i < 120; i++ {
		d := start.AddDays(i)
		assert.Equal(t, once.IsEligible(d), twice.IsEligible(d), d.String())
	}
	assert.Equal(t, once.Len(), twice.Len())
}

func TestCalendar_LoadMergesCollections(t *testing.T) {
	cal := New(time.Friday)

	added := cal.Load(
		[]Record{{Date: "1404/01/13"}},
		nil,
		[]Record{{Date: "1405/01/13"}, {Date: "1404/01/13"}},
	)

	assert.Equal(t, 2, added)
	assert.Equal(t, 2, cal.Len())
}

func TestCalendar_BeforeAnchor(t *testing.T) {
	cal := New(time.Friday)
	cal.Load([]Record{{Date: "1300/01/01"}})

	// 1900-01-01 was a Monday and predates the Jalali anchor.
	assert.True(t, cal.IsEligible(date(1900, time.January, 1)))
}

func TestCalendar_ConcurrentLoadAndRead(t *testing.T) {
	cal := New(time.Friday)
	start := date(2025, time.March, 21)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				cal.IsEligible(start.AddDays(j))
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cal.Load([]Record{{Date: "1404/01/13"}, {Date: "1404/02/0" + string(rune('1'+i))}})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, cal.Len())
}

func TestDecodeRecords_Array(t *testing.T) {
	payload := []byte(`["1404/01/01", {"date": "1404/01/02", "description": "Nowruz"}, 5, {"name": "no date"}, ["x"]]`)

	records, err := DecodeRecords(payload)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "1404/01/01", records[0].Date)
	assert.Equal(t, "1404/01/02", records[1].Date)
	assert.Empty(t, records[2].Date)
	assert.Empty(t, records[3].Date)
	assert.Empty(t, records[4].Date)

	cal := New(time.Friday)
	assert.Equal(t, 2, cal.Load(records))
}

func TestDecodeRecords_Object(t *testing.T) {
	payload := []byte(`{"b": {"date": "1404/01/02"}, "a": {"date": "1404/01/01"}, "c": {"title": "none"}}`)

	records, err := DecodeRecords(payload)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "1404/01/01", records[0].Date)
	assert.Equal(t, "1404/01/02", records[1].Date)
	assert.Empty(t, records[2].Date)
}

func TestDecodeRecords_Errors(t *testing.T) {
	_, err := DecodeRecords([]byte("  "))
	assert.ErrorIs(t, err, ErrPayload)

	_, err = DecodeRecords([]byte(`"1404/01/01"`))
	assert.ErrorIs(t, err, ErrPayload)

	_, err = DecodeRecords([]byte(`[1,`))
	assert.Error(t, err)
}

func TestEncodeRecords_RoundTrip(t *testing.T) {
	records := []Record{{Date: "1404/01/01"}, {Date: "1404/01/13"}}

	payload, err := EncodeRecords(records)
	require.NoError(t, err)

	decoded, err := DecodeRecords(payload)
	require.NoError(t, err)
	assert.Equal(t, records, decoded)
}
