// Package notification defines the events the compliance core emits to the
// notification collaborator, and the publishers that carry them.
//
// Emission is fire-and-forget: a publisher failure is logged and swallowed,
// never surfaced as a lifecycle failure, and never rolls back the primary
// transaction. Events are emitted after commit.
package notification

import (
	"context"
	"time"

	id "fleetcomply/pkg/domain"
)

// Topic is the Kafka topic compliance events are produced to.
const Topic = "fleetcomply.compliance.events"

// EventKind names a notification event.
type EventKind string

const (
	// EventRecordCancelled is emitted when a compliance record is cancelled.
	EventRecordCancelled EventKind = "compliance_record_cancelled"

	// EventRecordExpired is emitted when the expiry sweep retires a record.
	EventRecordExpired EventKind = "compliance_record_expired"
)

// Event is the payload handed to the notification collaborator.
type Event struct {
	Kind EventKind `json:"kind"`

	TenantID   id.TenantID  `json:"tenant_id"`
	EntityKind string       `json:"entity_kind"`
	EntityRef  string       `json:"entity_ref"`
	VehicleID  id.VehicleID `json:"vehicle_id"`

	Reason string `json:"reason,omitempty"`
	Note   string `json:"note,omitempty"`

	ActorID    id.UserID `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events to the notification collaborator.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
