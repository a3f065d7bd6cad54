package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"home_gateway/internal/models"
)

// ErrNoState means no document has ever been persisted; callers fall back to
// the default schema.
var ErrNoState = errors.New("no persisted state")

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

// The state lives in a single row; every save overwrites the whole document.
const (
	stateRowID = 1

	upsertStateSQL = `
		INSERT INTO gateway_state (id, doc, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc=excluded.doc,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `SELECT doc FROM gateway_state WHERE id=?`
)

// Save serializes the full device state and overwrites the document row.
func (r *StateSQLite) Save(ctx context.Context, state models.DeviceState) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state document: %w", err)
	}
	_, err = r.db.ExecContext(ctx, upsertStateSQL, stateRowID, string(doc), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write state document: %w", err)
	}
	return nil
}

// Load deserializes the document row. Returns ErrNoState when the row does
// not exist; a corrupt document surfaces as an unmarshal error so the caller
// can decide to start from the default schema.
func (r *StateSQLite) Load(ctx context.Context) (models.DeviceState, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, selectStateSQL, stateRowID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DeviceState{}, ErrNoState
	}
	if err != nil {
		return models.DeviceState{}, fmt.Errorf("read state document: %w", err)
	}

	var state models.DeviceState
	if err := json.Unmarshal([]byte(doc), &state); err != nil {
		return models.DeviceState{}, fmt.Errorf("decode state document: %w", err)
	}
	return state, nil
}
