package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	appoutbox "rentals/internal/app/outbox"
	infraoutbox "rentals/internal/infra/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OutboxStore writes records inside the caller's transaction when one is
// attached to ctx, so events commit together with the rental row.
type OutboxStore struct {
	db *sqlx.DB
}

func NewOutboxStore(db *sqlx.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

func (s *OutboxStore) exec(ctx context.Context) sqlx.ExtContext {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return s.db
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	query, args, err := dialect.Insert(tableOutbox).Rows(goqu.Record{
		"id":              record.ID,
		"name":            record.Name,
		"kind":            record.Kind,
		"payload":         record.Payload,
		"occurred_at":     record.OccurredAt,
		"aggregate":       record.Aggregate,
		"headers":         headers,
		"state":           stateNew,
		"attempts":        0,
		"next_attempt_at": now,
		"created_at":      now,
	}).Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	_, err = s.exec(ctx).ExecContext(ctx, query, args...)
	return err
}

func (s *OutboxStore) Flush(context.Context) error {
	return nil
}

type outboxRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Kind       string    `db:"kind"`
	Payload    []byte    `db:"payload"`
	OccurredAt time.Time `db:"occurred_at"`
	Aggregate  string    `db:"aggregate"`
	Headers    []byte    `db:"headers"`
	Attempts   int       `db:"attempts"`
}

// claimSQL picks one due record and skips rows other relays are holding.
const claimSQL = `
UPDATE app_outbox SET state = $1, claimed_by = $2
WHERE id = (
	SELECT id FROM app_outbox
	WHERE state IN ($3, $4) AND next_attempt_at <= $5
	ORDER BY created_at
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING id, name, kind, payload, occurred_at, aggregate, headers, attempts`

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	var row outboxRow
	err := sqlx.GetContext(ctx, s.db, &row, claimSQL, stateClaimed, workerID, stateNew, stateFailed, time.Now().UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	headers := map[string]string{}
	if len(row.Headers) > 0 {
		if err := json.Unmarshal(row.Headers, &headers); err != nil {
			return nil, err
		}
	}
	return &infraoutbox.Message{
		ID:         row.ID,
		Name:       row.Name,
		Kind:       row.Kind,
		Payload:    row.Payload,
		OccurredAt: row.OccurredAt.UTC(),
		Aggregate:  row.Aggregate,
		Headers:    headers,
		Attempts:   row.Attempts,
	}, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	query, args, err := dialect.Update(tableOutbox).
		Set(goqu.Record{"state": stateSent}).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	query, args, err := dialect.Update(tableOutbox).
		Set(goqu.Record{
			"state":           stateFailed,
			"next_attempt_at": next,
			"last_error":      errMsg,
			"attempts":        goqu.L("attempts + 1"),
		}).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).ToSQL()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
