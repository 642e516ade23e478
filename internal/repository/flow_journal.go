package repository

import (
	"context"
	"database/sql"

	"github.com/excellence-awards/nomination-flow/internal/models"
)

// FlowJournal is the durable record of where each nomination sits in the
// payment flow. Transitions are guarded so a stale writer cannot move a
// nomination backwards.
type FlowJournal struct {
	db *sql.DB
}

func NewFlowJournal(db *sql.DB) *FlowJournal {
	return &FlowJournal{db: db}
}

func (r *FlowJournal) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS nomination_flow_states (
			nomination_id VARCHAR(255) PRIMARY KEY,
			state VARCHAR(50) NOT NULL,
			previous_state VARCHAR(50),
			decision VARCHAR(50),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nomination_flow_states_state ON nomination_flow_states(state)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *FlowJournal) InsertInitialState(ctx context.Context, nominationID string, state models.FlowState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO nomination_flow_states (nomination_id, state, previous_state)
		VALUES ($1, $2, $3)
		ON CONFLICT (nomination_id) DO NOTHING
	`, nominationID, state, "")
	return err
}

func (r *FlowJournal) TransitionState(ctx context.Context, nominationID string, from, to models.FlowState) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE nomination_flow_states
		SET state = $1, previous_state = $2, updated_at = NOW()
		WHERE nomination_id = $3 AND state = $4
	`, to, from, nominationID, from)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *FlowJournal) UpdateDecision(ctx context.Context, nominationID, decision string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE nomination_flow_states SET decision = $1 WHERE nomination_id = $2`, decision, nominationID)
	return err
}

func (r *FlowJournal) GetByNominationID(ctx context.Context, nominationID string) (*models.FlowStateInfo, error) {
	var info models.FlowStateInfo
	var decision sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT state, previous_state, decision, created_at, updated_at
		FROM nomination_flow_states WHERE nomination_id = $1
	`, nominationID).Scan(&info.State, &info.PreviousState, &decision, &info.CreatedAt, &info.UpdatedAt)
	if err != nil {
		return nil, err
	}
	info.Decision = decision.String
	return &info, nil
}
