package agents_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/caio-almeid4/marketplace-simulation/internal/agents"
	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestPayUpkeep(t *testing.T) {
	cases := []struct {
		name     string
		cash     float64
		upkeep   float64
		wantOK   bool
		wantCash float64
	}{
		{"covers cost", 100, 10, true, 90},
		{"exact cost", 10, 10, true, 0},
		{"cannot cover", 5, 10, false, 0},
		{"zero cash", 0, 10, false, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &agents.Agent{
				Name:      "tester",
				Inventory: agents.NewInventory(d(tc.cash), nil),
				Upkeep:    d(tc.upkeep),
			}
			ok := a.PayUpkeep()
			if ok != tc.wantOK {
				t.Errorf("PayUpkeep() = %v, want %v", ok, tc.wantOK)
			}
			if !a.Inventory.Cash.Equal(d(tc.wantCash)) {
				t.Errorf("cash = %s, want %v", a.Inventory.Cash, tc.wantCash)
			}
		})
	}
}

func TestInventoryRemoveGoods(t *testing.T) {
	inv := agents.NewInventory(d(0), map[goods.Kind]int{goods.Apple: 3})

	if ok := inv.RemoveGoods(goods.Apple, 4); ok {
		t.Error("removing more than held should fail")
	}
	if inv.Count(goods.Apple) != 3 {
		t.Errorf("failed removal mutated inventory: %d", inv.Count(goods.Apple))
	}
	if ok := inv.RemoveGoods(goods.Apple, 3); !ok {
		t.Error("removing exact held amount should succeed")
	}
	if inv.Count(goods.Apple) != 0 {
		t.Errorf("apples = %d, want 0", inv.Count(goods.Apple))
	}
}

func TestInventoryDebit(t *testing.T) {
	inv := agents.NewInventory(d(10), nil)

	if ok := inv.Debit(d(10.01)); ok {
		t.Error("debit above balance should fail")
	}
	if !inv.Cash.Equal(d(10)) {
		t.Errorf("failed debit mutated cash: %s", inv.Cash)
	}
	if ok := inv.Debit(d(10)); !ok {
		t.Error("debit of full balance should succeed")
	}
	if !inv.Cash.IsZero() {
		t.Errorf("cash = %s, want 0", inv.Cash)
	}
}

func TestTerminalStatusIsIrreversible(t *testing.T) {
	a := &agents.Agent{Name: "tester"}
	a.MarkDead()
	a.MarkBankrupt()
	if a.Status != agents.StatusDead {
		t.Errorf("status = %v, want dead to stick", a.Status)
	}

	b := &agents.Agent{Name: "tester2"}
	b.MarkBankrupt()
	b.MarkDead()
	if b.Status != agents.StatusBankrupt {
		t.Errorf("status = %v, want bankrupt to stick", b.Status)
	}
}
