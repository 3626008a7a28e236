// Package health reports whether the plan server can serve selections.
//
// A Manager runs registered Checkers concurrently under a timeout; a
// ProbeManager adds liveness, readiness and startup probes on top.
package health

import (
	"context"
	"time"
)

// Checker verifies one dependency of the server.
type Checker interface {
	// Name is a lowercase, hyphenated identifier such as "rules-table".
	Name() string

	// Check must respect ctx and return promptly.
	Check(ctx context.Context) *Result
}

// Status is a health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) String() string {
	return string(s)
}

// Result is the outcome of one check.
type Result struct {
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency_ns"`
}

// NewResult creates a result with the given status and message.
func NewResult(status Status, message string) *Result {
	return &Result{Status: status, Message: message, Details: make(map[string]any)}
}

// WithDetail adds a detail and returns the result for chaining.
func (r *Result) WithDetail(key string, value any) *Result {
	r.Details[key] = value
	return r
}

func Healthy(message string) *Result   { return NewResult(StatusHealthy, message) }
func Degraded(message string) *Result  { return NewResult(StatusDegraded, message) }
func Unhealthy(message string) *Result { return NewResult(StatusUnhealthy, message) }
