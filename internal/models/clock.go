package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day stored as minutes after midnight.
type ClockTime int

// NewClockTime builds a ClockTime from hours and minutes.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClockTime accepts "15:04" and "15:04:05".
func ParseClockTime(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return NewClockTime(t.Hour(), t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid clock time %q", raw)
}

// MustClockTime parses raw or panics; intended for fixtures and constants.
func MustClockTime(raw string) ClockTime {
	ct, err := ParseClockTime(raw)
	if err != nil {
		panic(err)
	}
	return ct
}

// Minutes returns the minute offset from midnight.
func (c ClockTime) Minutes() int { return int(c) }

// String renders HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalJSON renders the clock as "HH:MM".
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts "HH:MM", "HH:MM:SS" or a minute count.
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var minutes int
		if numErr := json.Unmarshal(data, &minutes); numErr != nil {
			return fmt.Errorf("clock time must be a string or minute count: %w", err)
		}
		*c = ClockTime(minutes)
		return nil
	}
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores the clock as a Postgres TIME literal.
func (c ClockTime) Value() (driver.Value, error) {
	return c.String() + ":00", nil
}

// Scan reads TIME columns returned as text or time.Time.
func (c *ClockTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*c = 0
		return nil
	case time.Time:
		*c = NewClockTime(v.Hour(), v.Minute())
		return nil
	case []byte:
		return c.scanString(string(v))
	case string:
		return c.scanString(v)
	case int64:
		*c = ClockTime(v)
		return nil
	default:
		return fmt.Errorf("unsupported type %T for ClockTime", value)
	}
}

func (c *ClockTime) scanString(raw string) error {
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Weekday enumerates teaching days.
type Weekday string

const (
	Monday    Weekday = "MON"
	Tuesday   Weekday = "TUE"
	Wednesday Weekday = "WED"
	Thursday  Weekday = "THU"
	Friday    Weekday = "FRI"
)

// TeachingDays is the default Monday-to-Friday week.
var TeachingDays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

var weekdayAliases = map[string]Weekday{
	"MON": Monday, "MONDAY": Monday, "1": Monday,
	"TUE": Tuesday, "TUESDAY": Tuesday, "2": Tuesday,
	"WED": Wednesday, "WEDNESDAY": Wednesday, "3": Wednesday,
	"THU": Thursday, "THURSDAY": Thursday, "4": Thursday,
	"FRI": Friday, "FRIDAY": Friday, "5": Friday,
}

// ParseWeekday normalises day names, abbreviations and 1-based indexes.
func ParseWeekday(raw string) (Weekday, bool) {
	day, ok := weekdayAliases[strings.ToUpper(strings.TrimSpace(raw))]
	return day, ok
}

// ParseWeekdays normalises a list, dropping unknown and duplicate values while keeping order.
func ParseWeekdays(raw []string) []Weekday {
	seen := make(map[Weekday]bool, len(raw))
	days := make([]Weekday, 0, len(raw))
	for _, item := range raw {
		day, ok := ParseWeekday(item)
		if !ok || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	return days
}

// Valid reports whether d is one of the teaching days.
func (d Weekday) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday:
		return true
	}
	return false
}

// UnmarshalJSON normalises incoming day representations.
func (d *Weekday) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var index int
		if numErr := json.Unmarshal(data, &index); numErr != nil {
			return fmt.Errorf("day must be a string or index: %w", err)
		}
		raw = strconv.Itoa(index)
	}
	if raw == "" {
		*d = ""
		return nil
	}
	day, ok := ParseWeekday(raw)
	if !ok {
		return fmt.Errorf("unknown day %q", raw)
	}
	*d = day
	return nil
}
