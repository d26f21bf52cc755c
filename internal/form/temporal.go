package form

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	DateLayout = "2006-01-02"

	displayDate     = "02/01/2006"
	displayTime     = "15:04"
	displayDateTime = "02/01/2006, 15:04"
)

var (
	timeLayouts     = []string{"15:04:05", "15:04"}
	dateTimeLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
)

// ParseDate parses an ISO date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parse date %q", s)
	}
	return t, nil
}

// ParseTime parses a clock time and anchors it on 1970-01-01 UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(1970, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, errors.Newf("parse time %q: expected HH:MM or HH:MM:SS", s)
}

// ParseDateTime parses an RFC 3339 timestamp, or a zone-less ISO datetime
// taken as UTC.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf("parse datetime %q", s)
}

// WallClock returns t's local wall-clock reading as a UTC time, the frame
// zone-less submitted dates and datetimes are parsed in.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// ParseTemporal parses s according to the temporal field type t.
func ParseTemporal(t FieldType, s string) (time.Time, error) {
	switch t {
	case TypeDate:
		return ParseDate(s)
	case TypeTime:
		return ParseTime(s)
	case TypeDateTime:
		return ParseDateTime(s)
	}
	return time.Time{}, errors.Newf("field type %q is not temporal", t)
}

// Timestamp converts a temporal value (time.Time or string) to epoch seconds.
func Timestamp(t FieldType, v any) (int64, error) {
	switch x := v.(type) {
	case time.Time:
		if t == TypeTime {
			x = time.Date(1970, 1, 1, x.Hour(), x.Minute(), x.Second(), 0, time.UTC)
		}
		return x.Unix(), nil
	case string:
		parsed, err := ParseTemporal(t, x)
		if err != nil {
			return 0, err
		}
		return parsed.Unix(), nil
	case nil:
		return 0, errors.New("no value")
	}
	return 0, errors.Newf("cannot convert %T to a timestamp", v)
}
