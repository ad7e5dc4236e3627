package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Ledger puerto del libro de stock que consumen despacho, compras y el coordinador de lotes.
type Ledger interface {
	Apply(ctx context.Context, direction Direction, entries []LedgerEntry) (*ApplyResult, error)
	Revert(ctx context.Context, movement *entity.StockMovement) error
}

var _ Ledger = (*LedgerWriter)(nil)
