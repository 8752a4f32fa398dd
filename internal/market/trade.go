package market

import (
	"github.com/shopspring/decimal"

	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
)

// Trade is an immutable record of a settled exchange. Trades are
// append-only: created at settlement, never modified or removed.
type Trade struct {
	Supplier  string          `json:"supplier"`
	Buyer     string          `json:"buyer"`
	Good      goods.Kind      `json:"-"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Note      string          `json:"note,omitempty"`
	Direction Direction       `json:"direction"`
	Round     int             `json:"round"`
}

// Item returns the canonical good name.
func (t Trade) Item() string {
	return t.Good.String()
}

// TradeRecorder receives settled trades for durable storage. Recording
// is fire-and-forget from the ledger's perspective: failures are logged
// by the implementation and never roll back a settlement.
type TradeRecorder interface {
	RecordTrade(t Trade) error
}
