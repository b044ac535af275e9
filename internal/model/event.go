package model

import "time"

// Event mirrors the `events` table.  An event owns a collection of
// attendees; deleting an event removes its attendees in the same
// transaction.
//
// Fields:
//
//	ID          – primary key identifier.
//	Name        – display name of the event.
//	Description – optional free-text description.
//	Date        – when the event takes place.
//	Venue       – where the event takes place.
//	Capacity    – maximum number of attendees.
//	OrganizerID – user who created and owns the event.
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last update timestamp.
type Event struct {
	ID          uint64    // events.id
	Name        string    // events.name
	Description *string   // events.description (nullable)
	Date        time.Time // events.date
	Venue       string    // events.venue
	Capacity    uint32    // events.capacity
	OrganizerID uint64    // events.organizer_id
	CreatedAt   time.Time // events.created_at
	UpdatedAt   time.Time // events.updated_at
}
