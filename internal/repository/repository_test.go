package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"eth-faucet/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRepo(db), mock
}

func TestRepo_RecordFailedEvent(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payout_events")).
		WithArgs("req-1", "0xabc", "1.2.3.4", "failed",
			sql.NullString{}, sql.NullString{String: "boom", Valid: true}, int64(1500), at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Record(context.Background(), model.PayoutEvent{
		RequestID:   "req-1",
		Destination: "0xabc",
		Requester:   "1.2.3.4",
		Status:      model.PayoutFailed,
		Error:       "boom",
		Duration:    1500 * time.Millisecond,
		At:          at,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepo_RecentFiltersByStatus(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"request_id", "destination", "requester", "status", "tx_hash", "error", "created_at"}).
		AddRow("req-2", "0xdef", "5.6.7.8", "completed", "0xhash", nil, at)
	mock.ExpectQuery(regexp.QuoteMeta("FROM payout_events WHERE status = $3")).
		WithArgs(10, 0, "completed").
		WillReturnRows(rows)

	got, err := repo.Recent(context.Background(), model.PayoutCompleted, 0, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].TxHash != "0xhash" || got[0].Error != "" || got[0].Status != model.PayoutCompleted {
		t.Fatalf("unexpected events: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepo_EnsureSchema(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS payout_events")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
}
