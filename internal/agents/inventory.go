package agents

import (
	"github.com/shopspring/decimal"

	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
)

// Inventory holds an agent's cash and good counts. Every field stays
// non-negative: callers validate before calling any mutating method, and
// the methods themselves refuse mutations that would go below zero.
// All money is decimal — never float64.
type Inventory struct {
	Cash  decimal.Decimal     `json:"cash"`
	Goods [goods.NumKinds]int `json:"goods"`
}

// NewInventory creates an inventory with the given starting cash and goods.
func NewInventory(cash decimal.Decimal, counts map[goods.Kind]int) Inventory {
	inv := Inventory{Cash: cash}
	for k, qty := range counts {
		inv.Goods[k] = qty
	}
	return inv
}

// Count returns the held quantity of a good.
func (inv *Inventory) Count(k goods.Kind) int {
	return inv.Goods[k]
}

// AddGoods credits qty units of a good.
func (inv *Inventory) AddGoods(k goods.Kind, qty int) {
	inv.Goods[k] += qty
}

// RemoveGoods debits qty units of a good. Returns false without mutating
// when the held quantity is insufficient.
func (inv *Inventory) RemoveGoods(k goods.Kind, qty int) bool {
	if inv.Goods[k] < qty {
		return false
	}
	inv.Goods[k] -= qty
	return true
}

// Credit adds cash.
func (inv *Inventory) Credit(amount decimal.Decimal) {
	inv.Cash = inv.Cash.Add(amount)
}

// Debit removes cash. Returns false without mutating when cash is
// insufficient.
func (inv *Inventory) Debit(amount decimal.Decimal) bool {
	if inv.Cash.LessThan(amount) {
		return false
	}
	inv.Cash = inv.Cash.Sub(amount)
	return true
}

// GoodsMap returns the good counts keyed by canonical name. Used by the
// observation API and the persistence layer.
func (inv *Inventory) GoodsMap() map[string]int {
	m := make(map[string]int, goods.NumKinds)
	for _, k := range goods.Kinds() {
		m[k.String()] = inv.Goods[k]
	}
	return m
}
