package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTokenMock(t *testing.T) (*TokenRepo, sqlmock.Sqlmock) {
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
	return NewTokenRepo(db), mock
}

func TestTokenRepo_StoreRefresh(t *testing.T) {
	repo, mock := newTokenMock(t)
	exp := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)").
		WithArgs(uint64(9), "abcd1234", exp).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.StoreRefresh(context.Background(), 9, "abcd1234", exp); err != nil {
		t.Fatalf("StoreRefresh: %v", err)
	}
}

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	query := "SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1"
	cols := []string{"user_id", "expires_at", "revoked_at"}
	future := time.Now().UTC().Add(time.Hour)
	past := time.Now().UTC().Add(-time.Hour)

	cases := map[string]struct {
		rows    *sqlmock.Rows
		wantID  uint64
		wantErr bool
	}{
		"active":  {rows: sqlmock.NewRows(cols).AddRow(9, future, nil), wantID: 9},
		"revoked": {rows: sqlmock.NewRows(cols).AddRow(9, future, time.Now().UTC()), wantErr: true},
		"expired": {rows: sqlmock.NewRows(cols).AddRow(9, past, nil), wantErr: true},
		"unknown": {rows: sqlmock.NewRows(cols), wantErr: true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			repo, mock := newTokenMock(t)
			mock.ExpectQuery(query).WithArgs("abcd1234").WillReturnRows(tc.rows)

			id, err := repo.ValidateRefresh(context.Background(), "abcd1234")
			if tc.wantErr {
				if !errors.Is(err, sql.ErrNoRows) {
					t.Fatalf("ValidateRefresh err = %v, want sql.ErrNoRows", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateRefresh: %v", err)
			}
			if id != tc.wantID {
				t.Errorf("userID = %d, want %d", id, tc.wantID)
			}
		})
	}
}

func TestTokenRepo_RevokeByHash(t *testing.T) {
	repo, mock := newTokenMock(t)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL").
		WithArgs("abcd1234").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.RevokeByHash(context.Background(), "abcd1234"); err != nil {
		t.Fatalf("RevokeByHash: %v", err)
	}
}
