package model

import "time"

// BroadcastReport summarizes one broadcast run.
type BroadcastReport struct {
	RunID      string
	Text       string
	Recipients int
	Sent       int
	Failed     int
	Blocked    int
	Duration   time.Duration
}
