// Package policy defines the decision-making contract between the round
// scheduler and whatever chooses an agent's trade actions. The scheduler
// treats the policy as an opaque oracle: it hands over a turn context and
// applies whatever intents come back through the ledger's validated
// operations.
package policy

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/caio-almeid4/marketplace-simulation/internal/agents"
	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
	"github.com/caio-almeid4/marketplace-simulation/internal/market"
)

// IntentKind enumerates the actions a policy may request. Each kind maps
// 1:1 to a ledger operation; Wait is the explicit no-op.
type IntentKind uint8

const (
	Wait IntentKind = iota
	CreateSell
	CreateBuy
	AcceptSell
	AcceptBuy
	Cancel
)

// String returns the wire name of the intent kind.
func (k IntentKind) String() string {
	switch k {
	case CreateSell:
		return "create_sell_offer"
	case CreateBuy:
		return "create_buy_offer"
	case AcceptSell:
		return "accept_sell_offer"
	case AcceptBuy:
		return "accept_buy_offer"
	case Cancel:
		return "cancel_offer"
	default:
		return "wait"
	}
}

// Intent is one requested action. Good/Quantity/Price/Note apply to the
// create kinds; OfferID applies to accept and cancel.
type Intent struct {
	Kind     IntentKind
	Good     goods.Kind
	Quantity int
	Price    decimal.Decimal
	Note     string
	OfferID  int64
}

// TurnContext is everything a policy sees when deciding one turn.
type TurnContext struct {
	Round       int
	TotalRounds int

	Name        string
	Persona     string
	Temperature float64

	Inventory agents.Inventory
	Energy    int
	Upkeep    decimal.Decimal

	Inbox    []agents.Message
	Warnings []string

	Board market.Snapshot
}

// Decider chooses zero or more intents for one agent's turn. A returned
// error is treated as a no-op turn, never a round abort.
type Decider interface {
	DecideTurn(ctx context.Context, tc TurnContext) ([]Intent, error)
}

// Idle is a Decider that always waits. Used when no LLM backend is
// configured.
type Idle struct{}

func (Idle) DecideTurn(context.Context, TurnContext) ([]Intent, error) {
	return nil, nil
}
