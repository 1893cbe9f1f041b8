// Package store provides the Postgres-backed persistence for orders and
// carts, implementing the contracts declared by the domain packages.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/monmi-labs/pay-gateway/internal/order"
)

// Orders implements order.Store on a pgx pool. Metadata and notes are stored
// as jsonb; Save uses a version guard for optimistic concurrency.
type Orders struct {
	Pool *pgxpool.Pool
}

func (s *Orders) Create(ctx context.Context, o *order.Order) error {
	meta, notes, err := encodeOrder(o)
	if err != nil {
		return err
	}
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO orders (status, transaction_ref, meta, notes, version)
		VALUES ($1, $2, $3, $4, 1)
		RETURNING id, version, created_at, updated_at`,
		o.Status, o.TransactionRef, meta, notes)
	if err := row.Scan(&o.ID, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *Orders) LoadByID(ctx context.Context, id int64) (*order.Order, error) {
	return s.loadOne(ctx, `
		SELECT id, status, transaction_ref, meta, notes, version, created_at, updated_at
		FROM orders WHERE id = $1`, id)
}

func (s *Orders) LoadByMeta(ctx context.Context, key, value string) (*order.Order, error) {
	if value == "" {
		return nil, order.ErrNotFound
	}
	return s.loadOne(ctx, `
		SELECT id, status, transaction_ref, meta, notes, version, created_at, updated_at
		FROM orders WHERE meta->>$1 = $2 ORDER BY id LIMIT 1`, key, value)
}

func (s *Orders) Save(ctx context.Context, o *order.Order) error {
	meta, notes, err := encodeOrder(o)
	if err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE orders
		SET status = $2, transaction_ref = $3, meta = $4, notes = $5,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $6`,
		o.ID, o.Status, o.TransactionRef, meta, notes, o.Version)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !exists {
			return order.ErrNotFound
		}
		return order.ErrVersionConflict
	}
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Orders) PendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]order.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, status, transaction_ref, meta, notes, version, created_at, updated_at
		FROM orders
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3`, order.StatusPending, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (s *Orders) loadOne(ctx context.Context, query string, args ...any) (*order.Order, error) {
	o, err := scanOrder(s.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o     order.Order
		meta  []byte
		notes []byte
	)
	if err := row.Scan(&o.ID, &o.Status, &o.TransactionRef, &meta, &notes, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &o.Meta); err != nil {
			return nil, fmt.Errorf("decode order meta: %w", err)
		}
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &o.Notes); err != nil {
			return nil, fmt.Errorf("decode order notes: %w", err)
		}
	}
	return &o, nil
}

func encodeOrder(o *order.Order) (meta, notes []byte, err error) {
	m := o.Meta
	if m == nil {
		m = map[string]string{}
	}
	meta, err = json.Marshal(m)
	if err != nil {
		return nil, nil, fmt.Errorf("encode order meta: %w", err)
	}
	n := o.Notes
	if n == nil {
		n = []order.Note{}
	}
	notes, err = json.Marshal(n)
	if err != nil {
		return nil, nil, fmt.Errorf("encode order notes: %w", err)
	}
	return meta, notes, nil
}
