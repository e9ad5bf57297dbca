package instance

import "os"

// GetID returns the identifier of this process for log correlation.
// Heroku-style platforms set DYNO; container deploys set WORKER_ID.
func GetID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return "local"
}
