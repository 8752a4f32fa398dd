package render_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/caio-almeid4/marketplace-simulation/internal/agents"
	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
	"github.com/caio-almeid4/marketplace-simulation/internal/market"
	"github.com/caio-almeid4/marketplace-simulation/internal/render"
)

func TestBoard(t *testing.T) {
	snap := market.Snapshot{
		Offers: []market.TrackedOffer{
			{
				OfferDraft: market.OfferDraft{
					Supplier:  "alice",
					Good:      goods.Apple,
					Quantity:  4,
					Price:     decimal.NewFromInt(1250),
					Note:      "fresh",
					Direction: market.Sell,
				},
				ID: 7,
			},
		},
		Trades: []market.Trade{
			{Supplier: "alice", Buyer: "bob", Good: goods.Gold, Quantity: 1, Price: decimal.NewFromInt(45), Round: 2},
		},
	}

	out := render.Board(snap)
	for _, want := range []string{"#7", "SELL", "apple", "x4", "1,250", "alice", "fresh", "round 2", "bob bought 1 gold"} {
		if !strings.Contains(out, want) {
			t.Errorf("board missing %q:\n%s", want, out)
		}
	}
}

func TestBoardEmpty(t *testing.T) {
	out := render.Board(market.Snapshot{})
	if !strings.Contains(out, "no open offers") || !strings.Contains(out, "none yet") {
		t.Errorf("empty board placeholders missing:\n%s", out)
	}
}

func TestInventory(t *testing.T) {
	inv := agents.NewInventory(decimal.NewFromFloat(99.5), map[goods.Kind]int{goods.Chip: 2})
	out := render.Inventory(inv, 7)
	for _, want := range []string{"cash: 99.5", "energy: 7", "chip: 2", "apple: 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("inventory missing %q: %s", want, out)
		}
	}
}
