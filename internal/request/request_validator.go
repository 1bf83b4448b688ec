package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	FieldDate     = "date"
	FieldDuration = "duration"
	FieldType     = "type"

	MsgDateInPast     = "The date cannot be in the past."
	MsgDurationTooLow = "Duration must be at least 1 day."
	MsgOverlap        = "You cannot submit overlapping requests."
	MsgTypeInvalid    = "Type must be TELEWORK_REQUEST or LEAVE_REQUEST."
	MsgDateFormat     = "Date must use the YYYY-MM-DD format."

	DateLayout = "2006-01-02"
)

// FieldErrors maps a field name to a human readable message. Empty means
// valid.
type FieldErrors map[string]string

func (f FieldErrors) OK() bool { return len(f) == 0 }

// Candidate is a request about to be submitted.
type Candidate struct {
	Type     Type
	Date     time.Time
	Duration int
}

// Interval is the closed day range [Start, End] a request occupies.
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start time.Time, duration int) Interval {
	start = DateOnly(start)
	days := duration - 1
	if days < 0 {
		days = 0
	}
	return Interval{Start: start, End: start.AddDate(0, 0, days)}
}

// Overlaps is the closed interval test a <= d && b >= c.
func (i Interval) Overlaps(o Interval) bool {
	return !i.Start.After(o.End) && !i.End.Before(o.Start)
}

// DateOnly drops the time of day, keeping the calendar date as UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}

// ParseCandidate decodes the submitted fields. A malformed type or date is
// reported together with a too-low duration; a well formed candidate is left
// to Validate, which checks duration with the remaining rules.
func ParseCandidate(in CreateRequestInput) (Candidate, FieldErrors) {
	errs := FieldErrors{}
	c := Candidate{Duration: int(in.Duration)}

	if t, ok := ParseType(in.Type); ok {
		c.Type = t
	} else {
		errs[FieldType] = MsgTypeInvalid
	}

	if date, err := ParseDate(in.Date); err == nil {
		c.Date = date
	} else {
		errs[FieldDate] = MsgDateFormat
	}

	if !errs.OK() && c.Duration < 1 {
		errs[FieldDuration] = MsgDurationTooLow
	}
	return c, errs
}

// Validate checks a candidate against the submitting user's existing
// requests. Every rule is evaluated; the overlap rule runs after the past
// date rule and wins on the shared date field. Overlap ignores request type.
func Validate(c Candidate, existing []Interval, today time.Time) FieldErrors {
	errs := FieldErrors{}

	if c.Type != "" {
		if _, ok := ParseType(string(c.Type)); !ok {
			errs[FieldType] = MsgTypeInvalid
		}
	}

	if DateOnly(c.Date).Before(DateOnly(today)) {
		errs[FieldDate] = MsgDateInPast
	}

	if c.Duration < 1 {
		errs[FieldDuration] = MsgDurationTooLow
	}

	candidate := NewInterval(c.Date, c.Duration)
	for _, iv := range existing {
		if candidate.Overlaps(iv) {
			errs[FieldDate] = MsgOverlap
			break
		}
	}

	return errs
}

// Days is a day count decoded from a JSON number or numeric string. Values
// are truncated toward zero the way a leading-integer parse would.
type Days int

func (d *Days) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*d = 0
		return nil
	}

	var (
		n   int
		err error
	)
	if len(b) > 0 && b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		n, err = parseLeadingInt(raw)
	} else {
		n, err = parseNumber(string(b))
	}
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*d = Days(n)
	return nil
}

// parseNumber accepts a bare JSON number only. Anything ParseFloat refuses,
// including magnitudes beyond float64, is an error.
func parseNumber(s string) (int, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%q is out of range", s)
		}
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return truncate(s, f)
}

func truncate(s string, f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return int(f), nil
}

func (d Days) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(d))), nil
}

func parseLeadingInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return truncate(s, f)
	}

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return strconv.Atoi(s[:end])
}
