// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/pokdeng/internal/cache"
)

// schema is applied by Migrate. session_actions is an audit trail only;
// chip balances are never restored from it.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	instance_id TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	first_seen  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_seen   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_reason  TEXT
);

CREATE TABLE IF NOT EXISTS session_actions (
	instance_id    TEXT NOT NULL REFERENCES sessions(instance_id),
	action_index   INTEGER NOT NULL,
	actor_id       TEXT NOT NULL DEFAULT '',
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}',
	occurred_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (instance_id, action_index)
);

CREATE INDEX IF NOT EXISTS session_actions_by_session ON sessions (session_id);
`

// ActionStore persists ActionRecords for the historian.
type ActionStore struct {
	Pool *pgxpool.Pool
}

// Migrate creates the historian tables if they don't exist.
func (s *ActionStore) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InsertActions writes a batch of records in one transaction. Replayed
// records (same instance and index) are ignored.
func (s *ActionStore) InsertActions(ctx context.Context, records []cache.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return fmt.Errorf("marshal payload for %s#%d: %w", rec.InstanceID, rec.ActionIndex, err)
			}
			at := time.UnixMilli(rec.Timestamp)
			batch.Queue(`
				INSERT INTO sessions (instance_id, session_id, first_seen, last_seen)
				VALUES ($1, $2, $3, $3)
				ON CONFLICT (instance_id) DO UPDATE SET last_seen = GREATEST(sessions.last_seen, EXCLUDED.last_seen)
			`, rec.InstanceID, rec.SessionID, at)
			batch.Queue(`
				INSERT INTO session_actions (instance_id, action_index, actor_id, action_type, action_payload, occurred_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (instance_id, action_index) DO NOTHING
			`, rec.InstanceID, rec.ActionIndex, rec.ActorID, rec.ActionType, payload, at)
			if rec.ActionType == cache.ActionSessionEnd {
				reason, _ := rec.ActionPayload["reason"].(string)
				batch.Queue(`UPDATE sessions SET end_reason = $2 WHERE instance_id = $1`, rec.InstanceID, reason)
			}
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert actions: %w", err)
		}
		return nil
	})
}

// MarkAbandoned closes out a session instance that stopped producing records
// without ever sending session_end. Returns false if it was already closed.
func (s *ActionStore) MarkAbandoned(ctx context.Context, instanceID string) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE sessions SET end_reason = 'abandoned'
		WHERE instance_id = $1 AND end_reason IS NULL
	`, instanceID)
	if err != nil {
		return false, fmt.Errorf("mark abandoned %s: %w", instanceID, err)
	}
	return tag.RowsAffected() > 0, nil
}
