package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store loads and saves the active workflow definition.
type Store interface {
	Active(ctx context.Context) (*Definition, error)
	Save(ctx context.Context, d *Definition) error
}

// PgStore keeps the definition as a JSON document in a single active
// row, so administrators can replace the graph without a deploy.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Active returns the stored definition, or the built-in default when
// none has been saved yet. The definition is validated on every load:
// a corrupt graph must never reach a transition decision.
func (s *PgStore) Active(ctx context.Context) (*Definition, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT definition
		FROM workflow_definitions
		WHERE active
		ORDER BY updated_at DESC
		LIMIT 1
	`).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Default(), nil
		}
		return nil, fmt.Errorf("load workflow definition: %w", err)
	}

	var d Definition
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode workflow definition: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("stored workflow definition is invalid: %w", err)
	}
	return &d, nil
}

// Save validates and persists a new definition, making it the active one.
func (s *PgStore) Save(ctx context.Context, d *Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode workflow definition: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE workflow_definitions SET active = false WHERE active`); err != nil {
		return fmt.Errorf("retire previous workflow definition: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO workflow_definitions (definition, active, created_at, updated_at)
		VALUES ($1, true, now(), now())
	`, raw); err != nil {
		return fmt.Errorf("insert workflow definition: %w", err)
	}

	return tx.Commit(ctx)
}
