package market_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/caio-almeid4/marketplace-simulation/internal/agents"
	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
	"github.com/caio-almeid4/marketplace-simulation/internal/market"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// newTestLedger builds a ledger with two registered agents.
func newTestLedger(t *testing.T) (*market.Ledger, *agents.Agent, *agents.Agent) {
	t.Helper()
	l := market.NewLedger(market.NewSerialID(1), nil)
	supplier := &agents.Agent{
		Name:      "alice",
		Inventory: agents.NewInventory(d(50), map[goods.Kind]int{goods.Apple: 10, goods.Chip: 2}),
	}
	buyer := &agents.Agent{
		Name:      "bob",
		Inventory: agents.NewInventory(d(100), map[goods.Kind]int{goods.Gold: 5}),
	}
	l.Register(supplier)
	l.Register(buyer)
	return l, supplier, buyer
}

func sellDraft(supplier string, k goods.Kind, qty int, price float64) market.OfferDraft {
	return market.OfferDraft{Supplier: supplier, Good: k, Quantity: qty, Price: d(price)}
}

func TestSellOfferReservesGoods(t *testing.T) {
	l, alice, _ := newTestLedger(t)

	offer, err := l.CreateSellOffer(sellDraft("alice", goods.Apple, 4, 20))
	if err != nil {
		t.Fatalf("CreateSellOffer: %v", err)
	}
	if offer.ID != 1 {
		t.Errorf("offer ID = %d, want 1", offer.ID)
	}
	if got := alice.Inventory.Count(goods.Apple); got != 6 {
		t.Errorf("supplier apples after reservation = %d, want 6", got)
	}
	if l.ReservedGoods(goods.Apple) != 4 {
		t.Errorf("reserved apples = %d, want 4", l.ReservedGoods(goods.Apple))
	}
}

func TestSellOfferInsufficientGoods(t *testing.T) {
	l, alice, _ := newTestLedger(t)

	_, err := l.CreateSellOffer(sellDraft("alice", goods.Apple, 11, 20))
	if !errors.Is(err, market.ErrInsufficientGoods) {
		t.Fatalf("error = %v, want ErrInsufficientGoods", err)
	}
	if got := alice.Inventory.Count(goods.Apple); got != 10 {
		t.Errorf("failed offer mutated inventory: apples = %d", got)
	}
	if l.OpenOffers() != 0 {
		t.Errorf("failed offer was admitted")
	}
}

func TestBuyOfferReservesCash(t *testing.T) {
	l, _, bob := newTestLedger(t)

	_, err := l.CreateBuyOffer(sellDraft("bob", goods.Apple, 3, 30))
	if err != nil {
		t.Fatalf("CreateBuyOffer: %v", err)
	}
	if !bob.Inventory.Cash.Equal(d(70)) {
		t.Errorf("buyer cash after reservation = %s, want 70", bob.Inventory.Cash)
	}
	if !l.ReservedCash().Equal(d(30)) {
		t.Errorf("reserved cash = %s, want 30", l.ReservedCash())
	}
}

func TestBuyOfferInsufficientFunds(t *testing.T) {
	l, _, bob := newTestLedger(t)

	_, err := l.CreateBuyOffer(sellDraft("bob", goods.Apple, 3, 101))
	if !errors.Is(err, market.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}
	if !bob.Inventory.Cash.Equal(d(100)) {
		t.Errorf("failed offer mutated cash: %s", bob.Inventory.Cash)
	}
}

func TestInvalidOfferRejected(t *testing.T) {
	l, _, _ := newTestLedger(t)

	cases := []market.OfferDraft{
		sellDraft("alice", goods.Apple, 0, 20),
		sellDraft("alice", goods.Apple, -1, 20),
		sellDraft("alice", goods.Apple, 4, 0),
		sellDraft("alice", goods.Apple, 4, -5),
	}
	for _, draft := range cases {
		if _, err := l.CreateSellOffer(draft); !errors.Is(err, market.ErrInvalidOffer) {
			t.Errorf("CreateSellOffer(qty=%d price=%s) error = %v, want ErrInvalidOffer",
				draft.Quantity, draft.Price, err)
		}
		if _, err := l.CreateBuyOffer(draft); !errors.Is(err, market.ErrInvalidOffer) {
			t.Errorf("CreateBuyOffer(qty=%d price=%s) error = %v, want ErrInvalidOffer",
				draft.Quantity, draft.Price, err)
		}
	}
}

// The full settlement scenario from the design discussion: alice sells
// 4 of her 10 apples for 20, bob accepts with 100 cash.
func TestAcceptSellOfferSettlement(t *testing.T) {
	l, alice, bob := newTestLedger(t)

	offer, err := l.CreateSellOffer(sellDraft("alice", goods.Apple, 4, 20))
	if err != nil {
		t.Fatalf("CreateSellOffer: %v", err)
	}
	if got := alice.Inventory.Count(goods.Apple); got != 6 {
		t.Fatalf("apples after reservation = %d, want 6", got)
	}

	trade, err := l.AcceptSellOffer("bob", offer.ID, 1)
	if err != nil {
		t.Fatalf("AcceptSellOffer: %v", err)
	}

	if got := bob.Inventory.Count(goods.Apple); got != 4 {
		t.Errorf("buyer apples = %d, want 4", got)
	}
	if !bob.Inventory.Cash.Equal(d(80)) {
		t.Errorf("buyer cash = %s, want 80", bob.Inventory.Cash)
	}
	if !alice.Inventory.Cash.Equal(d(70)) {
		t.Errorf("supplier cash = %s, want 70", alice.Inventory.Cash)
	}
	if l.OpenOffers() != 0 {
		t.Errorf("offer not removed from book")
	}
	if len(l.Trades()) != 1 {
		t.Fatalf("trades = %d, want 1", len(l.Trades()))
	}
	if trade.Supplier != "alice" || trade.Buyer != "bob" || trade.Round != 1 {
		t.Errorf("trade record = %+v", trade)
	}
}

func TestAcceptBuyOfferSettlement(t *testing.T) {
	l, alice, bob := newTestLedger(t)

	// Bob wants 3 apples and reserves 30 cash for them.
	offer, err := l.CreateBuyOffer(sellDraft("bob", goods.Apple, 3, 30))
	if err != nil {
		t.Fatalf("CreateBuyOffer: %v", err)
	}

	trade, err := l.AcceptBuyOffer("alice", offer.ID, 2)
	if err != nil {
		t.Fatalf("AcceptBuyOffer: %v", err)
	}

	// Alice delivered the goods and received the reserved cash.
	if got := alice.Inventory.Count(goods.Apple); got != 7 {
		t.Errorf("seller apples = %d, want 7", got)
	}
	if !alice.Inventory.Cash.Equal(d(80)) {
		t.Errorf("seller cash = %s, want 80", alice.Inventory.Cash)
	}
	// Bob's cash was already reserved at creation — no second debit.
	if !bob.Inventory.Cash.Equal(d(70)) {
		t.Errorf("buyer cash = %s, want 70 (no re-debit)", bob.Inventory.Cash)
	}
	if got := bob.Inventory.Count(goods.Apple); got != 3 {
		t.Errorf("buyer apples = %d, want 3", got)
	}
	if trade.Supplier != "alice" || trade.Buyer != "bob" {
		t.Errorf("trade roles = %+v", trade)
	}
}

func TestAcceptMissingOffer(t *testing.T) {
	l, alice, bob := newTestLedger(t)

	if _, err := l.AcceptSellOffer("bob", 99, 1); !errors.Is(err, market.ErrOfferNotFound) {
		t.Errorf("AcceptSellOffer error = %v, want ErrOfferNotFound", err)
	}
	if _, err := l.AcceptBuyOffer("alice", 99, 1); !errors.Is(err, market.ErrOfferNotFound) {
		t.Errorf("AcceptBuyOffer error = %v, want ErrOfferNotFound", err)
	}
	if !bob.Inventory.Cash.Equal(d(100)) || !alice.Inventory.Cash.Equal(d(50)) {
		t.Error("failed accept mutated inventories")
	}
}

func TestSelfTradeRejected(t *testing.T) {
	l, _, _ := newTestLedger(t)

	sell, _ := l.CreateSellOffer(sellDraft("alice", goods.Apple, 2, 10))
	if _, err := l.AcceptSellOffer("alice", sell.ID, 1); !errors.Is(err, market.ErrSelfTrade) {
		t.Errorf("sell path error = %v, want ErrSelfTrade", err)
	}

	buy, _ := l.CreateBuyOffer(sellDraft("bob", goods.Apple, 2, 10))
	if _, err := l.AcceptBuyOffer("bob", buy.ID, 1); !errors.Is(err, market.ErrSelfTrade) {
		t.Errorf("buy path error = %v, want ErrSelfTrade", err)
	}
}

func TestWrongOfferDirection(t *testing.T) {
	l, _, _ := newTestLedger(t)

	sell, _ := l.CreateSellOffer(sellDraft("alice", goods.Apple, 2, 10))
	buy, _ := l.CreateBuyOffer(sellDraft("bob", goods.Apple, 2, 10))

	if _, err := l.AcceptBuyOffer("alice", sell.ID, 1); !errors.Is(err, market.ErrWrongOfferDirection) {
		t.Errorf("AcceptBuyOffer on sell offer error = %v, want ErrWrongOfferDirection", err)
	}
	if _, err := l.AcceptSellOffer("alice", buy.ID, 1); !errors.Is(err, market.ErrWrongOfferDirection) {
		t.Errorf("AcceptSellOffer on buy offer error = %v, want ErrWrongOfferDirection", err)
	}
}

func TestAcceptSellOfferInsufficientFunds(t *testing.T) {
	l, alice, bob := newTestLedger(t)

	offer, _ := l.CreateSellOffer(sellDraft("alice", goods.Apple, 4, 200))
	_, err := l.AcceptSellOffer("bob", offer.ID, 1)
	if !errors.Is(err, market.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}
	// No partial application: reservation intact, buyer untouched.
	if !bob.Inventory.Cash.Equal(d(100)) || bob.Inventory.Count(goods.Apple) != 0 {
		t.Error("failed accept mutated buyer")
	}
	if alice.Inventory.Count(goods.Apple) != 6 {
		t.Error("failed accept disturbed the reservation")
	}
	if l.OpenOffers() != 1 {
		t.Error("failed accept removed the offer")
	}
}

func TestAcceptBuyOfferInsufficientGoods(t *testing.T) {
	l, _, bob := newTestLedger(t)

	offer, _ := l.CreateBuyOffer(sellDraft("bob", goods.Chip, 5, 30))
	_, err := l.AcceptBuyOffer("alice", offer.ID, 1)
	if !errors.Is(err, market.ErrInsufficientGoods) {
		t.Fatalf("error = %v, want ErrInsufficientGoods", err)
	}
	if !bob.Inventory.Cash.Equal(d(70)) {
		t.Error("failed accept disturbed the cash reservation")
	}
}

func TestCancelSellOfferRoundTrip(t *testing.T) {
	l, alice, _ := newTestLedger(t)

	offer, _ := l.CreateSellOffer(sellDraft("alice", goods.Apple, 4, 20))
	if err := l.CancelOffer("alice", offer.ID); err != nil {
		t.Fatalf("CancelOffer: %v", err)
	}
	if got := alice.Inventory.Count(goods.Apple); got != 10 {
		t.Errorf("apples after cancel = %d, want 10 exactly", got)
	}
	if l.OpenOffers() != 0 {
		t.Error("cancelled offer still open")
	}
}

func TestCancelBuyOfferRoundTrip(t *testing.T) {
	l, _, bob := newTestLedger(t)

	offer, _ := l.CreateBuyOffer(sellDraft("bob", goods.Gold, 1, 45))
	if err := l.CancelOffer("bob", offer.ID); err != nil {
		t.Fatalf("CancelOffer: %v", err)
	}
	if !bob.Inventory.Cash.Equal(d(100)) {
		t.Errorf("cash after cancel = %s, want 100 exactly", bob.Inventory.Cash)
	}
}

func TestCancelOfferNotOwner(t *testing.T) {
	l, _, _ := newTestLedger(t)

	offer, _ := l.CreateSellOffer(sellDraft("alice", goods.Apple, 4, 20))
	if err := l.CancelOffer("bob", offer.ID); !errors.Is(err, market.ErrNotOwner) {
		t.Errorf("error = %v, want ErrNotOwner", err)
	}
	if l.OpenOffers() != 1 {
		t.Error("foreign cancel removed the offer")
	}
}

func TestPurgeAgentOffers(t *testing.T) {
	l, alice, bob := newTestLedger(t)

	l.CreateSellOffer(sellDraft("alice", goods.Apple, 4, 20))
	l.CreateSellOffer(sellDraft("alice", goods.Chip, 1, 15))
	l.CreateBuyOffer(sellDraft("alice", goods.Gold, 1, 10))
	keep, _ := l.CreateSellOffer(sellDraft("bob", goods.Gold, 2, 50))

	purged := l.PurgeAgentOffers("alice", true)
	if purged != 3 {
		t.Errorf("purged = %d, want 3", purged)
	}
	// Reservations returned exactly.
	if alice.Inventory.Count(goods.Apple) != 10 || alice.Inventory.Count(goods.Chip) != 2 {
		t.Errorf("goods not restored: apples=%d chips=%d",
			alice.Inventory.Count(goods.Apple), alice.Inventory.Count(goods.Chip))
	}
	if !alice.Inventory.Cash.Equal(d(50)) {
		t.Errorf("cash not restored: %s", alice.Inventory.Cash)
	}
	// Other agents' offers untouched.
	if l.OpenOffers() != 1 {
		t.Errorf("open offers = %d, want 1", l.OpenOffers())
	}
	if _, err := l.AcceptSellOffer("alice", keep.ID, 1); err != nil {
		t.Errorf("bob's offer should still be acceptable: %v", err)
	}
	if !bob.Inventory.Cash.Equal(d(150)) {
		t.Errorf("bob's cash after settlement = %s, want 150", bob.Inventory.Cash)
	}
}

func TestPurgeForfeitsWhenConfigured(t *testing.T) {
	l, alice, _ := newTestLedger(t)

	l.CreateSellOffer(sellDraft("alice", goods.Apple, 4, 20))
	l.PurgeAgentOffers("alice", false)

	if got := alice.Inventory.Count(goods.Apple); got != 6 {
		t.Errorf("forfeited purge returned assets: apples = %d, want 6", got)
	}
	if l.OpenOffers() != 0 {
		t.Error("purge left offers open")
	}
}

func TestSnapshotIdempotent(t *testing.T) {
	l, _, _ := newTestLedger(t)

	l.CreateSellOffer(sellDraft("alice", goods.Apple, 4, 20))
	l.CreateBuyOffer(sellDraft("bob", goods.Gold, 1, 10))

	a := l.Snapshot()
	b := l.Snapshot()
	if len(a.Offers) != len(b.Offers) || len(a.Trades) != len(b.Trades) {
		t.Fatal("consecutive snapshots differ")
	}
	for i := range a.Offers {
		if a.Offers[i] != b.Offers[i] {
			t.Errorf("offer %d differs between snapshots", i)
		}
	}
	// Mutating the snapshot must not leak into the ledger.
	a.Offers[0].Quantity = 999
	if l.Snapshot().Offers[0].Quantity == 999 {
		t.Error("snapshot aliases ledger state")
	}
}

// totalAssets sums held + reserved cash and goods across the whole market.
func totalAssets(l *market.Ledger, all []*agents.Agent) (decimal.Decimal, [goods.NumKinds]int) {
	cash := l.ReservedCash()
	var counts [goods.NumKinds]int
	for _, k := range goods.Kinds() {
		counts[k] = l.ReservedGoods(k)
	}
	for _, a := range all {
		cash = cash.Add(a.Inventory.Cash)
		for _, k := range goods.Kinds() {
			counts[k] += a.Inventory.Count(k)
		}
	}
	return cash, counts
}

// TestConservation drives a long random operation sequence and checks
// that no operation creates or destroys cash or goods.
func TestConservation(t *testing.T) {
	l := market.NewLedger(market.NewSerialID(1), nil)
	pool := []*agents.Agent{
		{Name: "a1", Inventory: agents.NewInventory(d(120), map[goods.Kind]int{goods.Apple: 8, goods.Chip: 3})},
		{Name: "a2", Inventory: agents.NewInventory(d(60), map[goods.Kind]int{goods.Gold: 6})},
		{Name: "a3", Inventory: agents.NewInventory(d(200), map[goods.Kind]int{goods.Apple: 2, goods.Chip: 5, goods.Gold: 1})},
	}
	for _, a := range pool {
		l.Register(a)
	}

	wantCash, wantGoods := totalAssets(l, pool)
	rng := rand.New(rand.NewSource(7))
	var openIDs []int64

	for i := 0; i < 2000; i++ {
		actor := pool[rng.Intn(len(pool))]
		draft := market.OfferDraft{
			Supplier: actor.Name,
			Good:     goods.Kinds()[rng.Intn(goods.NumKinds)],
			Quantity: rng.Intn(4) + 1,
			Price:    d(float64(rng.Intn(40) + 1)),
		}

		switch rng.Intn(5) {
		case 0:
			if offer, err := l.CreateSellOffer(draft); err == nil {
				openIDs = append(openIDs, offer.ID)
			}
		case 1:
			if offer, err := l.CreateBuyOffer(draft); err == nil {
				openIDs = append(openIDs, offer.ID)
			}
		case 2:
			if len(openIDs) > 0 {
				id := openIDs[rng.Intn(len(openIDs))]
				l.AcceptSellOffer(actor.Name, id, i)
			}
		case 3:
			if len(openIDs) > 0 {
				id := openIDs[rng.Intn(len(openIDs))]
				l.AcceptBuyOffer(actor.Name, id, i)
			}
		case 4:
			if len(openIDs) > 0 {
				id := openIDs[rng.Intn(len(openIDs))]
				l.CancelOffer(actor.Name, id)
			}
		}

		gotCash, gotGoods := totalAssets(l, pool)
		if !gotCash.Equal(wantCash) {
			t.Fatalf("op %d: cash leaked: have %s, want %s", i, gotCash, wantCash)
		}
		if gotGoods != wantGoods {
			t.Fatalf("op %d: goods leaked: have %v, want %v", i, gotGoods, wantGoods)
		}
	}
}

func TestSerialIDNeverRepeats(t *testing.T) {
	ids := market.NewSerialID(1)
	seen := make(map[int64]bool)
	prev := int64(0)
	for i := 0; i < 1000; i++ {
		id := ids.Next()
		if seen[id] {
			t.Fatalf("id %d repeated", id)
		}
		if id <= prev {
			t.Fatalf("id %d not strictly increasing after %d", id, prev)
		}
		seen[id] = true
		prev = id
	}
}

func TestSerialIDSeed(t *testing.T) {
	ids := market.NewSerialID(100)
	if got := ids.Next(); got != 100 {
		t.Errorf("first id = %d, want 100", got)
	}
}
