package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-checkin/internal/model"
)

// EventRepo provides CRUD operations for events.  Events are owned by the
// organizer that created them; ownership checks for destructive operations
// live here so handlers only translate errors into HTTP responses.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

const eventColumns = "id,name,description,date,venue,capacity,organizer_id,created_at,updated_at"

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var (
		e    model.Event
		desc sql.NullString
	)
	err := row.Scan(&e.ID, &e.Name, &desc, &e.Date, &e.Venue, &e.Capacity,
		&e.OrganizerID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.Event{}, err
	}
	if desc.Valid {
		d := desc.String
		e.Description = &d
	}
	return e, nil
}

// Create inserts a new event and returns the stored row.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO events (name, description, date, venue, capacity, organizer_id) VALUES (?,?,?,?,?,?)",
		e.Name, e.Description, e.Date, e.Venue, e.Capacity, e.OrganizerID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	stored, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = stored
	return nil
}

// GetByID fetches a single event.  Returns ErrNotFound when no row matches.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id=? LIMIT 1", id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	return e, err
}

// ListByOrganizer returns the events created by one organizer, newest first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE organizer_id=? ORDER BY date DESC", organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListAll returns every event, newest first.  Staff see all events so they
// can operate any scanning station.
func (r *EventRepo) ListAll(ctx context.Context) ([]model.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events ORDER BY date DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]model.Event, error) {
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes an event and its attendees in a single transaction.
// Only the owning organizer may delete an event; other callers receive
// ErrForbidden.  Returns ErrNotFound when the event does not exist.
func (r *EventRepo) Delete(ctx context.Context, id, organizerID uint64) error {
	var owner uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT organizer_id FROM events WHERE id=? LIMIT 1", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != organizerID {
		return ErrForbidden
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM attendees WHERE event_id=?", id); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id=?", id); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
