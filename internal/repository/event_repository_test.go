package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newEventMock(t *testing.T) (*EventRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewEventRepo(db), mock
}

const eventSelect = "SELECT id,name,description,date,venue,capacity,organizer_id,created_at,updated_at FROM events WHERE id=? LIMIT 1"

func TestEventRepo_GetByID_NullDescription(t *testing.T) {
	repo, mock := newEventMock(t)

	rows := sqlmock.NewRows([]string{
		"id", "name", "description", "date", "venue", "capacity", "organizer_id", "created_at", "updated_at",
	}).AddRow(3, "Meetup", nil, time.Now(), "Oslo", 50, 1, time.Now(), time.Now())
	mock.ExpectQuery(eventSelect).WithArgs(uint64(3)).WillReturnRows(rows)

	e, err := repo.GetByID(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if e.Description != nil {
		t.Errorf("Description = %v, want nil", *e.Description)
	}
}

func TestEventRepo_GetByID_NotFound(t *testing.T) {
	repo, mock := newEventMock(t)

	mock.ExpectQuery(eventSelect).WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "date", "venue", "capacity", "organizer_id", "created_at", "updated_at",
		}))

	if _, err := repo.GetByID(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID err = %v, want ErrNotFound", err)
	}
}

// Deleting an event removes its attendees in the same transaction.
func TestEventRepo_Delete_Cascades(t *testing.T) {
	repo, mock := newEventMock(t)

	mock.ExpectQuery("SELECT organizer_id FROM events WHERE id=? LIMIT 1").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"organizer_id"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendees WHERE event_id=?").
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 42))
	mock.ExpectExec("DELETE FROM events WHERE id=?").
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Delete(context.Background(), 3, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestEventRepo_Delete_Forbidden(t *testing.T) {
	repo, mock := newEventMock(t)

	mock.ExpectQuery("SELECT organizer_id FROM events WHERE id=? LIMIT 1").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"organizer_id"}).AddRow(1))

	if err := repo.Delete(context.Background(), 3, 2); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete err = %v, want ErrForbidden", err)
	}
}

func TestEventRepo_Delete_NotFound(t *testing.T) {
	repo, mock := newEventMock(t)

	mock.ExpectQuery("SELECT organizer_id FROM events WHERE id=? LIMIT 1").
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"organizer_id"}))

	if err := repo.Delete(context.Background(), 404, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
}

// A failed attendee sweep rolls the whole transaction back.
func TestEventRepo_Delete_RollsBackOnFailure(t *testing.T) {
	repo, mock := newEventMock(t)

	mock.ExpectQuery("SELECT organizer_id FROM events WHERE id=? LIMIT 1").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"organizer_id"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attendees WHERE event_id=?").
		WithArgs(uint64(3)).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	if err := repo.Delete(context.Background(), 3, 1); err == nil {
		t.Fatal("Delete succeeded past a failed attendee sweep")
	}
}

func TestEventRepo_ListByOrganizer(t *testing.T) {
	repo, mock := newEventMock(t)

	rows := sqlmock.NewRows([]string{
		"id", "name", "description", "date", "venue", "capacity", "organizer_id", "created_at", "updated_at",
	}).
		AddRow(2, "Later", nil, time.Now().Add(time.Hour), "A", 10, 1, time.Now(), time.Now()).
		AddRow(1, "Sooner", nil, time.Now(), "B", 10, 1, time.Now(), time.Now())

	mock.ExpectQuery("SELECT id,name,description,date,venue,capacity,organizer_id,created_at,updated_at FROM events WHERE organizer_id=? ORDER BY date DESC").
		WithArgs(uint64(1)).
		WillReturnRows(rows)

	out, err := repo.ListByOrganizer(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListByOrganizer: %v", err)
	}
	if len(out) != 2 || out[0].ID != 2 {
		t.Errorf("events = %+v", out)
	}
}
