package market

import (
	"github.com/shopspring/decimal"

	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
)

// Direction is the side of an offer.
type Direction string

const (
	Sell Direction = "sell"
	Buy  Direction = "buy"
)

// OfferDraft is the immutable description of an offer before admission.
// A sell offer reserves Quantity units of Good from the supplier at
// creation; a buy offer reserves Price cash from its creator. Price is
// the total for the whole quantity, not per unit.
type OfferDraft struct {
	Supplier  string          `json:"supplier"`
	Good      goods.Kind      `json:"-"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Note      string          `json:"note,omitempty"`
	Direction Direction       `json:"direction"`
}

// TrackedOffer is an admitted offer with its ledger identity.
type TrackedOffer struct {
	OfferDraft
	ID int64 `json:"id"`
}

// Item returns the canonical good name, for rendering and persistence.
func (o OfferDraft) Item() string {
	return o.Good.String()
}
