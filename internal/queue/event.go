// Package queue defines message payloads exchanged over the message broker.
package queue

// CheckinRecordedEvent is published when an attendee is successfully
// checked in.  It carries enough information for downstream consumers to
// build an audit trail or drive door-count dashboards without querying the
// primary database.
type CheckinRecordedEvent struct {
	AttendeeID    uint64 `json:"attendee_id"`
	AttendeeName  string `json:"attendee_name"`
	AttendeeEmail string `json:"attendee_email"`
	EventID       uint64 `json:"event_id"`
	CheckedInAt   string `json:"checked_in_at"`
}
