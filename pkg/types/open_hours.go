package types

import (
	"fmt"
	"time"
)

// OpenHour is one weekday's opening window in the store's local timezone.
// Times use "15:04" formatting.
type OpenHour struct {
	Day   time.Weekday `json:"day"`
	Open  string       `json:"open"`
	Close string       `json:"close"`
}

// OpenHours is a store's weekly opening table.
type OpenHours []OpenHour

// IsOpenAt reports whether the table contains a window covering the
// given local time.
func (h OpenHours) IsOpenAt(local time.Time) (bool, error) {
	if len(h) == 0 {
		return false, nil
	}
	minutes := local.Hour()*60 + local.Minute()
	for _, window := range h {
		if window.Day != local.Weekday() {
			continue
		}
		open, err := parseClock(window.Open)
		if err != nil {
			return false, fmt.Errorf("open hour %q: %w", window.Open, err)
		}
		close, err := parseClock(window.Close)
		if err != nil {
			return false, fmt.Errorf("close hour %q: %w", window.Close, err)
		}
		if minutes >= open && minutes < close {
			return true, nil
		}
	}
	return false, nil
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
