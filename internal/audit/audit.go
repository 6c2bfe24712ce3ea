// Package audit records who changed what in the admin back office.
package audit

import "time"

// Entry is a single audit trail record: one mutating admin request.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Method    string    `json:"method"`
	Route     string    `json:"route"`
	TargetID  string    `json:"targetId,omitempty"`
	Status    int       `json:"status"`
}

// Succeeded reports whether the request was accepted.
func (e Entry) Succeeded() bool { return e.Status < 400 }
