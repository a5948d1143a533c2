package domain

import "time"

// Invocation is the per-call fact sheet handed to the observability collaborator.
type Invocation struct {
	RequestID     string
	Operation     string
	Status        Status
	Model         string
	Latency       time.Duration
	InputSummary  string
	OutputSummary string
	Error         string
	At            time.Time
}
