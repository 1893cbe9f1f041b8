// Package cart models the shopper's cart as seen by payment session creation
// and checkout finalization. Amounts are integer minor units throughout;
// formatting to the provider's fixed-point strings happens at the edge.
package cart

import (
	"context"
	"fmt"
)

// Line is a single cart entry. UnitMinor is the per-unit price in minor
// currency units (cents).
type Line struct {
	Name      string `json:"name"`
	UnitMinor int64  `json:"unit_minor"`
	Qty       int    `json:"qty"`
}

// Snapshot is the cart state captured for a payment session.
type Snapshot struct {
	Lines         []Line `json:"lines"`
	DiscountMinor int64  `json:"discount_minor"`
}

// Empty reports whether the cart holds no purchasable lines.
func (s Snapshot) Empty() bool { return len(s.Lines) == 0 }

// Reader is the view needed to build a payment session payload.
type Reader interface {
	Load(ctx context.Context, shopperID string) (Snapshot, error)
}

// Store adds mutation, used by checkout finalization to empty the cart.
type Store interface {
	Reader
	Save(ctx context.Context, shopperID string, snap Snapshot) error
	Clear(ctx context.Context, shopperID string) error
}

// FormatMinor renders minor units as the provider's 2-decimal fixed-point
// string, e.g. 437 -> "4.37". Negative amounts keep the sign ahead of the
// integer part.
func FormatMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
