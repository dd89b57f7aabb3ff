package eligibility

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
)

// ErrPayload is returned for holiday payloads that are neither a JSON array
// nor a JSON object.
var ErrPayload = errors.New("unsupported holiday payload")

// Record is one entry of a holiday feed. On the wire it is either a bare
// "YYYY/MM/DD" string or an object with a "date" field.
type Record struct {
	Date string `json:"date"`
}

// UnmarshalJSON accepts both record shapes. Any other shape decodes to an
// empty record, which Calendar.Load skips.
func (r *Record) UnmarshalJSON(b []byte) error {
	var date string
	if err := json.Unmarshal(b, &date); err == nil {
		r.Date = date
		return nil
	}

	var obj struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		r.Date = obj.Date
		return nil
	}

	r.Date = ""
	return nil
}

// DecodeRecords decodes a holiday feed: a JSON array of records, or a JSON
// object whose values are records.
func DecodeRecords(payload []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrPayload)
	}

	switch trimmed[0] {
	case '[':
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode holiday array: %w", err)
		}
		return records, nil

	case '{':
		var byKey map[string]Record
		if err := json.Unmarshal(trimmed, &byKey); err != nil {
			return nil, fmt.Errorf("decode holiday object: %w", err)
		}
		keys := make([]string, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		records := make([]Record, 0, len(keys))
		for _, k := range keys {
			records = append(records, byKey[k])
		}
		return records, nil

	default:
		return nil, fmt.Errorf("%w: starts with %q", ErrPayload, trimmed[0])
	}
}

// EncodeRecords is the inverse of DecodeRecords for the array form.
func EncodeRecords(records []Record) ([]byte, error) {
	return json.Marshal(records)
}
