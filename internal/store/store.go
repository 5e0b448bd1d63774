// Package store persists pushed period costs and change events in
// Postgres. It is one implementation of the realtime sync boundary.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-pnl/internal/aggregate"
	"github.com/meridian-erp/meridian-pnl/internal/realtime"
)

const uniqueViolation = "23505"

// Snapshot is the stored period-cost state of one module.
type Snapshot struct {
	Module      string            `json:"module"`
	Costs       aggregate.Buckets `json:"costs"`
	RecordCount int               `json:"recordCount"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Store wraps the Postgres pool.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// PushPeriodCosts upserts the module's cost snapshot, keyed by module.
func (s *Store) PushPeriodCosts(ctx context.Context, push realtime.CostPush) error {
	if s == nil || s.pool == nil {
		return nil
	}
	costs, err := json.Marshal(push.Costs)
	if err != nil {
		return fmt.Errorf("store: marshal costs: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pnl_module_costs (module, costs, record_count, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (module) DO UPDATE
		SET costs = EXCLUDED.costs,
		    record_count = EXCLUDED.record_count,
		    updated_at = EXCLUDED.updated_at`,
		push.Module, costs, push.RecordCount)
	if err != nil {
		return fmt.Errorf("store: upsert period costs for %s: %w", push.Module, err)
	}
	return nil
}

// PublishChange appends the event to the change log. A replayed event that
// trips the uniqueness constraint is treated as already recorded.
func (s *Store) PublishChange(ctx context.Context, event realtime.ChangeEvent) error {
	if s == nil || s.pool == nil {
		return nil
	}
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("store: marshal change payload: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pnl_change_log (id, module, action, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), event.Module, event.Action, payload, event.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil
		}
		return fmt.Errorf("store: record change for %s: %w", event.Module, err)
	}
	return nil
}

// Snapshots lists the stored cost state of every module.
func (s *Store) Snapshots(ctx context.Context) ([]Snapshot, error) {
	if s == nil || s.pool == nil {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT module, costs, record_count, updated_at
		FROM pnl_module_costs
		ORDER BY module`)
	if err != nil {
		return nil, fmt.Errorf("store: list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var costs []byte
		if err := rows.Scan(&snap.Module, &costs, &snap.RecordCount, &snap.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan snapshot: %w", err)
		}
		if err := json.Unmarshal(costs, &snap.Costs); err != nil {
			return nil, fmt.Errorf("store: decode costs for %s: %w", snap.Module, err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate snapshots: %w", err)
	}
	return out, nil
}
