package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-checkin/internal/model"
)

// AttendeeRepo provides CRUD operations for attendees plus the check-in
// state transition.  The transition is a single conditional UPDATE so that
// two staff devices scanning the same code at the same moment cannot both
// win; whichever statement matches the row flips checked_in, the other
// matches zero rows.
type AttendeeRepo struct{ DB *sql.DB }

func NewAttendeeRepo(db *sql.DB) *AttendeeRepo { return &AttendeeRepo{DB: db} }

const attendeeColumns = "id,name,email,event_id,qr_code,checked_in,checked_in_at,created_at"

func scanAttendee(row interface{ Scan(...any) error }) (model.Attendee, error) {
	var (
		a         model.Attendee
		checkedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.EventID, &a.QRCode,
		&a.CheckedIn, &checkedAt, &a.CreatedAt)
	if err != nil {
		return model.Attendee{}, err
	}
	if checkedAt.Valid {
		t := checkedAt.Time
		a.CheckedInAt = &t
	}
	return a, nil
}

// Create inserts an attendee with an explicit id.  The id is generated
// before insertion so the encrypted QR payload can embed it.  A primary
// key collision surfaces as ErrIDExists so the caller can roll a new id.
func (r *AttendeeRepo) Create(ctx context.Context, a *model.Attendee) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO attendees (id, name, email, event_id, qr_code, checked_in) VALUES (?,?,?,?,?,0)",
		a.ID, a.Name, a.Email, a.EventID, a.QRCode)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrIDExists
		}
		return err
	}
	stored, err := r.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	*a = stored
	return nil
}

// GetByID fetches a single attendee.  Returns ErrNotFound when absent.
func (r *AttendeeRepo) GetByID(ctx context.Context, id uint64) (model.Attendee, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+attendeeColumns+" FROM attendees WHERE id=? LIMIT 1", id)
	a, err := scanAttendee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Attendee{}, ErrNotFound
	}
	return a, err
}

// GetByEventAndID fetches the attendee matching a decoded token pair.  The
// lookup keys on both columns, which is the cross-check rejecting forged or
// mismatched codes: a payload naming the wrong event finds nothing.
func (r *AttendeeRepo) GetByEventAndID(ctx context.Context, eventID, attendeeID uint64) (model.Attendee, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+attendeeColumns+" FROM attendees WHERE id=? AND event_id=? LIMIT 1",
		attendeeID, eventID)
	a, err := scanAttendee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Attendee{}, ErrNotFound
	}
	return a, err
}

// ListByEvent returns all attendees of an event in insertion order.
func (r *AttendeeRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Attendee, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+attendeeColumns+" FROM attendees WHERE event_id=? ORDER BY created_at", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Attendee
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes an attendee.  Returns ErrNotFound when no row matched.
func (r *AttendeeRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM attendees WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CheckIn atomically flips checked_in from false to true and stamps
// checked_in_at.  It returns true when this call performed the transition
// and false when the attendee was already checked in.  The WHERE clause is
// the sole synchronization point for concurrent duplicate scans.
func (r *AttendeeRepo) CheckIn(ctx context.Context, attendeeID uint64, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE attendees SET checked_in=1, checked_in_at=? WHERE id=? AND checked_in=0",
		at, attendeeID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
