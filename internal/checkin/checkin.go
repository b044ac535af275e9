// Package checkin implements the check-in state transition: a decoded QR
// payload is resolved to an attendee and the attendee is atomically moved
// from not-checked-in to checked-in exactly once.
package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/event-checkin/internal/model"
	"github.com/iliyamo/event-checkin/internal/qrtoken"
	"github.com/iliyamo/event-checkin/internal/queue"
	"github.com/iliyamo/event-checkin/internal/repository"
)

// AttendeeStore is the slice of the attendee repository the service needs.
// The conditional CheckIn must be atomic: under concurrent duplicate scans
// exactly one call may return true.
type AttendeeStore interface {
	GetByEventAndID(ctx context.Context, eventID, attendeeID uint64) (model.Attendee, error)
	GetByID(ctx context.Context, id uint64) (model.Attendee, error)
	CheckIn(ctx context.Context, attendeeID uint64, at time.Time) (bool, error)
}

// Publisher emits the audit event for a successful check-in.
type Publisher func(ctx context.Context, ev queue.CheckinRecordedEvent) error

// Result is the transient outcome reported back to the scanning surface.
// It is never persisted.
type Result struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Attendee *model.Attendee `json:"attendee,omitempty"`
}

// Human-readable result messages.  The scanning UI shows these verbatim.
const (
	MsgInvalidCode      = "invalid code"
	MsgAttendeeNotFound = "attendee not found"
	MsgAlreadyCheckedIn = "already checked in"
	MsgStoreFailure     = "check-in failed, please retry"
)

// Service wires the payload codec, the attendee store and the audit
// publisher.  It holds no per-request state and is safe for concurrent use.
type Service struct {
	codec   *qrtoken.Codec
	store   AttendeeStore
	publish Publisher
	now     func() time.Time
}

// NewService builds a check-in service.  publish may be nil to disable the
// audit trail (tests, or deployments without a broker).
func NewService(codec *qrtoken.Codec, store AttendeeStore, publish Publisher) *Service {
	return &Service{codec: codec, store: store, publish: publish, now: time.Now}
}

// CheckIn decodes the payload, resolves the attendee and performs the
// idempotent state transition.  Every failure path yields a structured
// Result with a message; nothing here returns an error to the caller
// because a bad code is an expected operational outcome, not a fault.
//
// A second scan of an already-used code reports success=false with the
// attendee attached so staff can see who the code belongs to.
func (s *Service) CheckIn(ctx context.Context, payload string) Result {
	tok, err := s.codec.Decode(payload)
	if err != nil {
		return Result{Success: false, Message: MsgInvalidCode}
	}

	// The pair lookup is the forgery cross-check: a token naming a valid
	// attendee under the wrong event finds nothing.
	a, err := s.store.GetByEventAndID(ctx, tok.EventID, tok.AttendeeID)
	if errors.Is(err, repository.ErrNotFound) {
		return Result{Success: false, Message: MsgAttendeeNotFound}
	}
	if err != nil {
		return Result{Success: false, Message: MsgStoreFailure}
	}
	if a.CheckedIn {
		return Result{Success: false, Message: MsgAlreadyCheckedIn, Attendee: &a}
	}

	at := s.now().UTC()
	won, err := s.store.CheckIn(ctx, a.ID, at)
	if err != nil {
		return Result{Success: false, Message: MsgStoreFailure}
	}
	if !won {
		// Lost the race against a concurrent scan of the same code; report
		// the state the winner left behind.
		if cur, err := s.store.GetByID(ctx, a.ID); err == nil {
			a = cur
		}
		return Result{Success: false, Message: MsgAlreadyCheckedIn, Attendee: &a}
	}

	a.CheckedIn = true
	a.CheckedInAt = &at

	if s.publish != nil {
		ev := queue.CheckinRecordedEvent{
			AttendeeID:    a.ID,
			AttendeeName:  a.Name,
			AttendeeEmail: a.Email,
			EventID:       a.EventID,
			CheckedInAt:   at.Format(time.RFC3339),
		}
		// Audit publishing must not delay or fail the scan response.
		go func() {
			pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.publish(pctx, ev)
		}()
	}

	return Result{Success: true, Attendee: &a}
}
