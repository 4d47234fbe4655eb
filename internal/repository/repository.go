package repository

import (
	"context"
	"database/sql"
	"eth-faucet/internal/model"
)

// Repo is an append-only audit log of finished payouts. It is never read back
// into the queue or the blocklist.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS payout_events (
	id          BIGSERIAL PRIMARY KEY,
	request_id  TEXT NOT NULL,
	destination TEXT NOT NULL,
	requester   TEXT NOT NULL,
	status      TEXT NOT NULL,
	tx_hash     TEXT,
	error       TEXT,
	duration_ms BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
)`

func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// Record implements queue.EventSink.
func (r *Repo) Record(ctx context.Context, ev model.PayoutEvent) error {
	q := `
		INSERT INTO payout_events (request_id, destination, requester, status, tx_hash, error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.DB.ExecContext(ctx, q,
		ev.RequestID, ev.Destination, ev.Requester, string(ev.Status),
		nullString(ev.TxHash), nullString(ev.Error), ev.Duration.Milliseconds(), ev.At.UTC())
	return err
}

// Recent lists the newest events first.
func (r *Repo) Recent(ctx context.Context, status model.PayoutStatus, offset, limit int) ([]model.PayoutEvent, error) {
	q := `SELECT request_id, destination, requester, status, tx_hash, error, created_at FROM payout_events`
	args := []any{limit, offset}
	if status != "" {
		q += ` WHERE status = $3`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := make([]model.PayoutEvent, 0, limit)
	for rows.Next() {
		var ev model.PayoutEvent
		var status string
		var txHash, errText sql.NullString
		if err := rows.Scan(&ev.RequestID, &ev.Destination, &ev.Requester, &status, &txHash, &errText, &ev.At); err != nil {
			return nil, err
		}
		ev.Status = model.PayoutStatus(status)
		ev.TxHash = txHash.String
		ev.Error = errText.String
		res = append(res, ev)
	}
	return res, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
