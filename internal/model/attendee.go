package model

import "time"

// Attendee mirrors the `attendees` table.  The QRCode column stores the
// encrypted payload embedded in the attendee's QR code; it is generated
// once at registration and never mutated.  CheckedIn transitions false to
// true exactly once, and CheckedInAt is set in the same statement.
//
// Fields:
//
//	ID          – primary key identifier, generated at registration time.
//	Name        – attendee display name.
//	Email       – contact email.
//	EventID     – event this attendee belongs to.
//	QRCode      – opaque encrypted payload (hex ciphertext).
//	CheckedIn   – whether the attendee has been checked in.
//	CheckedInAt – when the check-in happened (null until then).
//	CreatedAt   – creation timestamp.
type Attendee struct {
	ID          uint64     `json:"id"`          // attendees.id
	Name        string     `json:"name"`        // attendees.name
	Email       string     `json:"email"`       // attendees.email
	EventID     uint64     `json:"eventId"`     // attendees.event_id
	QRCode      string     `json:"qrCode"`      // attendees.qr_code
	CheckedIn   bool       `json:"checkedIn"`   // attendees.checked_in
	CheckedInAt *time.Time `json:"checkedInAt"` // attendees.checked_in_at (nullable)
	CreatedAt   time.Time  `json:"createdAt"`   // attendees.created_at
}
