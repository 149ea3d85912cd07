package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/campusflow/ums-api/pkg/errors"
)

// DayOfWeek names a weekday for recurring weekly time slots.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var validDays = map[DayOfWeek]struct{}{
	Monday: {}, Tuesday: {}, Wednesday: {}, Thursday: {}, Friday: {}, Saturday: {}, Sunday: {},
}

// ParseDayOfWeek normalises and validates a weekday name.
func ParseDayOfWeek(raw string) (DayOfWeek, error) {
	day := DayOfWeek(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := validDays[day]; !ok {
		return "", appErrors.Clone(appErrors.ErrInvalidArgs, fmt.Sprintf("unknown day of week %q", raw))
	}
	return day, nil
}

// ClockTime is a time of day stored as minutes since midnight. It marshals
// as "HH:MM" in JSON and maps onto the SQL TIME type.
type ClockTime int

// ParseClockTime parses "HH:MM" into a ClockTime.
func ParseClockTime(raw string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrInvalidArgs, fmt.Sprintf("invalid time %q, expected HH:MM", raw))
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

// String renders the canonical "HH:MM" form.
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON encodes the clock time as "HH:MM".
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes "HH:MM" strings.
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value serialises the clock time for a SQL TIME column.
func (t ClockTime) Value() (driver.Value, error) {
	return fmt.Sprintf("%s:00", t.String()), nil
}

// Scan reads SQL TIME values produced by the postgres driver.
func (t *ClockTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = 0
		return nil
	case time.Time:
		*t = ClockTime(v.Hour()*60 + v.Minute())
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("unsupported type %T for ClockTime", value)
	}
}

func (t *ClockTime) scanString(raw string) error {
	if len(raw) > 5 {
		raw = raw[:5]
	}
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeSlot is a recurring weekly occurrence: a weekday plus a start/end
// time pair. It is a pure value type with no identity.
type TimeSlot struct {
	Day   DayOfWeek `db:"day_of_week" json:"day"`
	Start ClockTime `db:"start_time" json:"start_time"`
	End   ClockTime `db:"end_time" json:"end_time"`
}

// NewTimeSlot validates and builds a time slot. The end must be strictly
// after the start.
func NewTimeSlot(day DayOfWeek, start, end ClockTime) (TimeSlot, error) {
	if _, ok := validDays[day]; !ok {
		return TimeSlot{}, appErrors.Clone(appErrors.ErrInvalidArgs, fmt.Sprintf("unknown day of week %q", day))
	}
	if end <= start {
		return TimeSlot{}, appErrors.Clone(appErrors.ErrInvalidArgs, "end time must be after start time")
	}
	return TimeSlot{Day: day, Start: start, End: end}, nil
}

// Overlaps reports whether two slots share a day and their time ranges
// intersect. Comparison is strict: slots that merely touch at a boundary do
// not overlap. The predicate is symmetric and side-effect free.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Day == other.Day && s.Start < other.End && other.Start < s.End
}

// Equal reports value equality of two slots.
func (s TimeSlot) Equal(other TimeSlot) bool {
	return s == other
}

// String renders e.g. "MONDAY 09:00-10:30".
func (s TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s", s.Day, s.Start, s.End)
}
