package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/monmi-labs/pay-gateway/internal/cart"
)

// Carts implements cart.Store on Postgres for merchants who want carts to
// outlive the Redis session.
type Carts struct {
	Pool *pgxpool.Pool
}

func (s *Carts) Load(ctx context.Context, shopperID string) (cart.Snapshot, error) {
	var raw []byte
	err := s.Pool.QueryRow(ctx, `SELECT snapshot FROM carts WHERE shopper_id = $1`, shopperID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.Snapshot{}, nil
		}
		return cart.Snapshot{}, fmt.Errorf("load cart: %w", err)
	}
	var snap cart.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return cart.Snapshot{}, fmt.Errorf("decode cart: %w", err)
	}
	return snap, nil
}

func (s *Carts) Save(ctx context.Context, shopperID string, snap cart.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO carts (shopper_id, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (shopper_id) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`,
		shopperID, raw)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *Carts) Clear(ctx context.Context, shopperID string) error {
	if _, err := s.Pool.Exec(ctx, `DELETE FROM carts WHERE shopper_id = $1`, shopperID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
