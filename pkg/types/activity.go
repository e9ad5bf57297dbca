package types

import (
	"fmt"
	"time"
)

// Activity is one append-only entry in the order's activity log.
type Activity struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ActivityType string    `json:"activity_type"`
	Timestamp    time.Time `json:"timestamp"`
}

// ActivitiesLog is the activities_log jsonb column. Entries are only ever
// appended; existing entries never change.
type ActivitiesLog []Activity

// Validate checks structural integrity.
func (l ActivitiesLog) Validate() error {
	for i, entry := range l {
		if entry.Title == "" {
			return fmt.Errorf("activities_log[%d] missing title", i)
		}
		if entry.ActivityType == "" {
			return fmt.Errorf("activities_log[%d] missing activity_type", i)
		}
	}
	return nil
}

// Append adds an entry stamped with the given time and returns the log.
func (l ActivitiesLog) Append(title, description, activityType string, at time.Time) ActivitiesLog {
	return append(l, Activity{
		Title:        title,
		Description:  description,
		ActivityType: activityType,
		Timestamp:    at,
	})
}
