// Package render turns market snapshots and inventories into the text
// handed to the decision policy. Pure formatting — nothing here mutates
// simulation state.
package render

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/caio-almeid4/marketplace-simulation/internal/agents"
	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
	"github.com/caio-almeid4/marketplace-simulation/internal/market"
)

// Board renders the open offers and recent trades.
func Board(snap market.Snapshot) string {
	var b strings.Builder

	b.WriteString("MARKET BOARD\n")
	if len(snap.Offers) == 0 {
		b.WriteString("  (no open offers)\n")
	}
	for _, o := range snap.Offers {
		fmt.Fprintf(&b, "  #%d %s %s x%d for %s cash — %s",
			o.ID, strings.ToUpper(string(o.Direction)), o.Item(), o.Quantity,
			money(o.Price), o.Supplier)
		if o.Note != "" {
			fmt.Fprintf(&b, " (%q)", o.Note)
		}
		b.WriteByte('\n')
	}

	b.WriteString("RECENT TRADES\n")
	if len(snap.Trades) == 0 {
		b.WriteString("  (none yet)\n")
	}
	for _, t := range snap.Trades {
		fmt.Fprintf(&b, "  round %d: %s bought %d %s from %s for %s cash\n",
			t.Round, t.Buyer, t.Quantity, t.Item(), t.Supplier, money(t.Price))
	}

	return b.String()
}

// Inventory renders an agent's own holdings for the policy prompt.
func Inventory(inv agents.Inventory, energy int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cash: %s, energy: %d", money(inv.Cash), energy)
	for _, k := range goods.Kinds() {
		fmt.Fprintf(&b, ", %s: %d", k, inv.Count(k))
	}
	return b.String()
}

func money(v decimal.Decimal) string {
	f, _ := v.Float64()
	return humanize.CommafWithDigits(f, 2)
}
