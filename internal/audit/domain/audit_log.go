package domain

import "time"

// AuditLog is one security-relevant event.
type AuditLog struct {
	ID         string
	IdentityID string // empty when the actor is unknown, e.g. a failed login
	Action     string
	IP         string
	Metadata   map[string]string
	CreatedAt  time.Time
}
