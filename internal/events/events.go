// Package events announces identity lifecycle changes to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"
)

const (
	TypeIdentityRegistered = "IdentityRegistered"
	TypeIdentityDeleted    = "IdentityDeleted"

	schemaVersion = 1
)

// IdentityRegistered is published once per newly created identity.
type IdentityRegistered struct {
	ID          string
	Email       string
	DisplayName string
	OccurredAt  time.Time
}

// IdentityDeleted is published once per deleted identity.
type IdentityDeleted struct {
	ID         string
	OccurredAt time.Time
}

// Publisher delivers events. Callers publish after the state change has
// committed and treat errors as log-only.
type Publisher interface {
	IdentityRegistered(ctx context.Context, e IdentityRegistered) error
	IdentityDeleted(ctx context.Context, e IdentityDeleted) error
	Close() error
}

type envelope struct {
	EventType   string `json:"eventType"`
	Version     int    `json:"version"`
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	OccurredAt  string `json:"occurredAt"`
}

func encodeRegistered(e IdentityRegistered) ([]byte, error) {
	return json.Marshal(envelope{
		EventType:   TypeIdentityRegistered,
		Version:     schemaVersion,
		ID:          e.ID,
		Email:       e.Email,
		DisplayName: e.DisplayName,
		OccurredAt:  e.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
}

func encodeDeleted(e IdentityDeleted) ([]byte, error) {
	return json.Marshal(envelope{
		EventType:  TypeIdentityDeleted,
		Version:    schemaVersion,
		ID:         e.ID,
		OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
}
