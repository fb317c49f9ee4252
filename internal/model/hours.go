package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OpenHoursMode selects how a place's operating hours are evaluated.
type OpenHoursMode string

const (
	HoursAlwaysOpen   OpenHoursMode = "always_open"
	HoursAlwaysClosed OpenHoursMode = "always_closed"
	HoursCustom       OpenHoursMode = "custom"
)

// OpenHours is the operating-hours schedule of a place. For HoursCustom the
// schedule maps three-letter weekday names ("Mon".."Sun") to "HH:MM-HH:MM"
// ranges, all interpreted in UTC.
type OpenHours struct {
	Mode     OpenHoursMode       `json:"mode"`
	Schedule map[string][]string `json:"schedule,omitempty"`
}

// Place is a location context tasks can be filtered by.
type Place struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Hours OpenHours `json:"hours"`
	// IncludedPlaces lists places contained in this one (one level, not
	// transitive): filtering by this place also matches tasks in them.
	IncludedPlaces []string `json:"includedPlaces"`
}

// ParseOpenHours deserializes and validates a raw hours document. Malformed
// data is rejected here, at the boundary, so the engine's passes never need
// to re-validate.
func ParseOpenHours(raw string) (OpenHours, error) {
	var h OpenHours
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return OpenHours{}, fmt.Errorf("parse open hours: %w", err)
	}
	if err := h.Validate(); err != nil {
		return OpenHours{}, err
	}
	return h, nil
}

// Validate checks the mode and, for custom schedules, every time range.
func (h OpenHours) Validate() error {
	switch h.Mode {
	case HoursAlwaysOpen, HoursAlwaysClosed:
		return nil
	case HoursCustom:
		for day, ranges := range h.Schedule {
			for _, r := range ranges {
				if _, _, err := parseTimeRange(r); err != nil {
					return fmt.Errorf("open hours for %s: %w", day, err)
				}
			}
		}
		return nil
	default:
		return fmt.Errorf("open hours: unknown mode %q", h.Mode)
	}
}

// OpenAt reports whether the place is open at the given Unix-millisecond
// instant. A custom schedule with no entry for the current UTC weekday, or
// whose ranges do not contain the current minute, is closed.
func (h OpenHours) OpenAt(nowMillis int64) bool {
	switch h.Mode {
	case HoursAlwaysOpen:
		return true
	case HoursAlwaysClosed:
		return false
	}

	t := time.UnixMilli(nowMillis).UTC()
	day := t.Weekday().String()[:3]
	minute := t.Hour()*60 + t.Minute()

	for _, r := range h.Schedule[day] {
		start, end, err := parseTimeRange(r)
		if err != nil {
			continue // validated at parse time; unreachable for stored data
		}
		if minute >= start && minute < end {
			return true
		}
	}
	return false
}

// String serializes the hours back to their stored JSON form.
func (h OpenHours) String() string {
	b, _ := json.Marshal(h)
	return string(b)
}

// parseTimeRange parses "HH:MM-HH:MM" into start/end minutes of day.
func parseTimeRange(r string) (int, int, error) {
	parts := strings.Split(r, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time range %q", r)
	}
	start, err := parseMinuteOfDay(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time range %q: %w", r, err)
	}
	end, err := parseMinuteOfDay(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time range %q: %w", r, err)
	}
	return start, end, nil
}

func parseMinuteOfDay(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return h*60 + m, nil
}
