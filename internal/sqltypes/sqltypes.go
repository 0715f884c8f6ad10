package sqltypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// the format go-sqlite3 writes time.Time values in
const format = "2006-01-02 15:04:05.999999999-07:00"

var fallbackFormats = []string{
	format,
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(src interface{}) (time.Time, error) {
	switch src := src.(type) {
	case time.Time:
		return src, nil
	case []byte:
		return parseTime(string(src))
	case string:
		var firstErr error
		for _, f := range fallbackFormats {
			v, err := time.Parse(f, src)
			if err == nil {
				return v, nil
			}
			if firstErr == nil {
				firstErr = err
			}
		}

		return time.Time{}, fmt.Errorf("could not parse input value %q: %w", src, firstErr)
	default:
		return time.Time{}, fmt.Errorf("could not scan input type of %T", src)
	}
}

// TimeScanner reads a datetime column whether the driver hands it over as a
// time.Time or as text (which it does for view columns built from
// expressions).
type TimeScanner struct {
	Value *time.Time
}

func (t *TimeScanner) Scan(src interface{}) error {
	v, err := parseTime(src)
	if err != nil {
		return fmt.Errorf("sqltypes.TimeScanner: %w", err)
	}

	*t.Value = v

	return nil
}

type TimePointerScanner struct {
	Value **time.Time
}

func (t *TimePointerScanner) Scan(src interface{}) error {
	if src == nil {
		*t.Value = nil
		return nil
	}

	v, err := parseTime(src)
	if err != nil {
		return fmt.Errorf("sqltypes.TimePointerScanner: %w", err)
	}

	*t.Value = &v

	return nil
}

// JSONStringSlice is stored as a JSON array; nil and empty both store "[]".
type JSONStringSlice []string

func (s JSONStringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}

	d, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("sqltypes.JSONStringSlice: %w", err)
	}

	return string(d), nil
}

func (s *JSONStringSlice) Scan(src interface{}) error {
	switch src := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		if err := json.Unmarshal(src, s); err != nil {
			return fmt.Errorf("sqltypes.JSONStringSlice: could not decode input (%T) as JSON: %w", src, err)
		}
		return nil
	case string:
		if err := json.Unmarshal([]byte(src), s); err != nil {
			return fmt.Errorf("sqltypes.JSONStringSlice: could not decode input (%T) as JSON: %w", src, err)
		}
		return nil
	default:
		return fmt.Errorf("sqltypes.JSONStringSlice: could not scan input type of %T", src)
	}
}

// Last returns the most recent non-empty message, or "" if there is none.
func (s JSONStringSlice) Last() string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] != "" {
			return s[i]
		}
	}

	return ""
}
