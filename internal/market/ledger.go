// Package market provides the authoritative order book and trade ledger.
//
// The ledger is strictly single-writer: the scheduler drives one
// operation at a time, so no locking is needed beyond the identifier
// generator. Every operation validates against live inventories first
// and only then mutates — an operation either fully succeeds or leaves
// no trace.
package market

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/caio-almeid4/marketplace-simulation/internal/agents"
	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
)

// historyLimit bounds how many recent trades a snapshot carries. The
// full history stays in the ledger for metrics and persistence.
const historyLimit = 20

// Ledger owns the open-offer repository and the append-only trade
// history. Assets backing an open offer are debited from their owner at
// creation (a reservation) and either returned on cancellation or
// consumed at settlement — never double-counted.
type Ledger struct {
	ids      *SerialID
	offers   map[int64]*TrackedOffer
	order    []int64 // insertion order, carries no matching priority
	trades   []Trade
	agents   map[string]*agents.Agent
	recorder TradeRecorder // optional
}

// NewLedger creates an empty ledger. The recorder may be nil.
func NewLedger(ids *SerialID, recorder TradeRecorder) *Ledger {
	return &Ledger{
		ids:      ids,
		offers:   make(map[int64]*TrackedOffer),
		agents:   make(map[string]*agents.Agent),
		recorder: recorder,
	}
}

// Register adds an agent to the ledger's registry. Offers and trades are
// validated against registered agents' inventories.
func (l *Ledger) Register(a *agents.Agent) {
	l.agents[a.Name] = a
}

func (l *Ledger) agent(name string) (*agents.Agent, error) {
	a, ok := l.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}
	return a, nil
}

// CreateSellOffer reserves quantity units of good from the supplier and
// admits the offer to the book. The inventory debit is visible
// immediately — a reservation, not a promise.
func (l *Ledger) CreateSellOffer(draft OfferDraft) (*TrackedOffer, error) {
	draft.Direction = Sell
	if draft.Quantity <= 0 || !draft.Price.IsPositive() {
		return nil, ErrInvalidOffer
	}
	supplier, err := l.agent(draft.Supplier)
	if err != nil {
		return nil, err
	}
	if supplier.Inventory.Count(draft.Good) < draft.Quantity {
		return nil, fmt.Errorf("%w: %s has %d %s, offer needs %d",
			ErrInsufficientGoods, draft.Supplier,
			supplier.Inventory.Count(draft.Good), draft.Good, draft.Quantity)
	}

	supplier.Inventory.RemoveGoods(draft.Good, draft.Quantity)
	return l.admit(draft), nil
}

// CreateBuyOffer reserves the full price in cash from the creator and
// admits the offer to the book.
func (l *Ledger) CreateBuyOffer(draft OfferDraft) (*TrackedOffer, error) {
	draft.Direction = Buy
	if draft.Quantity <= 0 || !draft.Price.IsPositive() {
		return nil, ErrInvalidOffer
	}
	buyer, err := l.agent(draft.Supplier)
	if err != nil {
		return nil, err
	}
	if buyer.Inventory.Cash.LessThan(draft.Price) {
		return nil, fmt.Errorf("%w: %s has %s cash, offer reserves %s",
			ErrInsufficientFunds, draft.Supplier,
			buyer.Inventory.Cash, draft.Price)
	}

	buyer.Inventory.Debit(draft.Price)
	return l.admit(draft), nil
}

func (l *Ledger) admit(draft OfferDraft) *TrackedOffer {
	tracked := &TrackedOffer{OfferDraft: draft, ID: l.ids.Next()}
	l.offers[tracked.ID] = tracked
	l.order = append(l.order, tracked.ID)
	slog.Debug("offer admitted",
		"id", tracked.ID,
		"direction", tracked.Direction,
		"supplier", tracked.Supplier,
		"item", tracked.Item(),
		"quantity", tracked.Quantity,
		"price", tracked.Price,
	)
	return tracked
}

// AcceptSellOffer settles a sell offer: the buyer pays the price and
// receives the goods reserved at creation; the supplier is credited the
// price. The goods were already debited from the supplier, so no
// further supplier-side debit happens here.
func (l *Ledger) AcceptSellOffer(buyerName string, offerID int64, round int) (Trade, error) {
	offer, ok := l.offers[offerID]
	if !ok {
		return Trade{}, fmt.Errorf("%w: id %d", ErrOfferNotFound, offerID)
	}
	if offer.Direction != Sell {
		return Trade{}, fmt.Errorf("%w: offer %d is a %s offer", ErrWrongOfferDirection, offerID, offer.Direction)
	}
	if buyerName == offer.Supplier {
		return Trade{}, fmt.Errorf("%w: offer %d", ErrSelfTrade, offerID)
	}
	buyer, err := l.agent(buyerName)
	if err != nil {
		return Trade{}, err
	}
	supplier, err := l.agent(offer.Supplier)
	if err != nil {
		return Trade{}, err
	}
	if buyer.Inventory.Cash.LessThan(offer.Price) {
		return Trade{}, fmt.Errorf("%w: %s has %s cash, offer costs %s",
			ErrInsufficientFunds, buyerName, buyer.Inventory.Cash, offer.Price)
	}

	buyer.Inventory.Debit(offer.Price)
	buyer.Inventory.AddGoods(offer.Good, offer.Quantity)
	supplier.Inventory.Credit(offer.Price)
	l.remove(offerID)

	return l.settle(Trade{
		Supplier:  offer.Supplier,
		Buyer:     buyerName,
		Good:      offer.Good,
		Quantity:  offer.Quantity,
		Price:     offer.Price,
		Note:      offer.Note,
		Direction: offer.Direction,
		Round:     round,
	}), nil
}

// AcceptBuyOffer settles a buy offer: the seller delivers the goods and
// is credited the cash that was reserved when the buy offer was created.
// That reserved cash settles the trade — it is never re-debited from the
// original buyer.
func (l *Ledger) AcceptBuyOffer(sellerName string, offerID int64, round int) (Trade, error) {
	offer, ok := l.offers[offerID]
	if !ok {
		return Trade{}, fmt.Errorf("%w: id %d", ErrOfferNotFound, offerID)
	}
	if offer.Direction != Buy {
		return Trade{}, fmt.Errorf("%w: offer %d is a %s offer", ErrWrongOfferDirection, offerID, offer.Direction)
	}
	if sellerName == offer.Supplier {
		return Trade{}, fmt.Errorf("%w: offer %d", ErrSelfTrade, offerID)
	}
	seller, err := l.agent(sellerName)
	if err != nil {
		return Trade{}, err
	}
	creator, err := l.agent(offer.Supplier)
	if err != nil {
		return Trade{}, err
	}
	if seller.Inventory.Count(offer.Good) < offer.Quantity {
		return Trade{}, fmt.Errorf("%w: %s has %d %s, offer needs %d",
			ErrInsufficientGoods, sellerName,
			seller.Inventory.Count(offer.Good), offer.Good, offer.Quantity)
	}

	seller.Inventory.RemoveGoods(offer.Good, offer.Quantity)
	seller.Inventory.Credit(offer.Price)
	creator.Inventory.AddGoods(offer.Good, offer.Quantity)
	l.remove(offerID)

	return l.settle(Trade{
		Supplier:  sellerName,
		Buyer:     offer.Supplier,
		Good:      offer.Good,
		Quantity:  offer.Quantity,
		Price:     offer.Price,
		Note:      offer.Note,
		Direction: offer.Direction,
		Round:     round,
	}), nil
}

func (l *Ledger) settle(t Trade) Trade {
	l.trades = append(l.trades, t)
	slog.Info("trade settled",
		"supplier", t.Supplier,
		"buyer", t.Buyer,
		"item", t.Item(),
		"quantity", t.Quantity,
		"price", t.Price,
		"round", t.Round,
	)
	if l.recorder != nil {
		if err := l.recorder.RecordTrade(t); err != nil {
			slog.Error("trade record failed", "error", err)
		}
	}
	return t
}

// CancelOffer removes an owner's open offer and returns the reserved
// asset: goods for a sell offer, cash for a buy offer.
func (l *Ledger) CancelOffer(ownerName string, offerID int64) error {
	offer, ok := l.offers[offerID]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrOfferNotFound, offerID)
	}
	if offer.Supplier != ownerName {
		return fmt.Errorf("%w: offer %d", ErrNotOwner, offerID)
	}
	owner, err := l.agent(ownerName)
	if err != nil {
		return err
	}

	l.release(offer, owner)
	l.remove(offerID)
	return nil
}

// PurgeAgentOffers removes every open offer owned by the agent. With
// returnAssets the reservations flow back to the agent's inventory;
// otherwise they are forfeited. Used on bankruptcy and death.
func (l *Ledger) PurgeAgentOffers(name string, returnAssets bool) int {
	owner := l.agents[name]
	purged := 0
	for _, id := range append([]int64(nil), l.order...) {
		offer, ok := l.offers[id]
		if !ok || offer.Supplier != name {
			continue
		}
		if returnAssets && owner != nil {
			l.release(offer, owner)
		}
		l.remove(id)
		purged++
	}
	if purged > 0 {
		slog.Info("offers purged", "agent", name, "count", purged, "assets_returned", returnAssets)
	}
	return purged
}

// release returns an offer's reservation to its owner.
func (l *Ledger) release(offer *TrackedOffer, owner *agents.Agent) {
	switch offer.Direction {
	case Sell:
		owner.Inventory.AddGoods(offer.Good, offer.Quantity)
	case Buy:
		owner.Inventory.Credit(offer.Price)
	}
}

func (l *Ledger) remove(id int64) {
	delete(l.offers, id)
	for i, oid := range l.order {
		if oid == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// OpenOffers returns the number of open offers.
func (l *Ledger) OpenOffers() int {
	return len(l.offers)
}

// Trades returns the full append-only trade history.
func (l *Ledger) Trades() []Trade {
	return l.trades
}

// TradesInRound returns the trades settled in the given round.
func (l *Ledger) TradesInRound(round int) []Trade {
	var out []Trade
	for _, t := range l.trades {
		if t.Round == round {
			out = append(out, t)
		}
	}
	return out
}

// ReservedGoods sums the units of a good currently reserved by open
// sell offers. Used by the conservation checks and the observation API.
func (l *Ledger) ReservedGoods(k goods.Kind) int {
	total := 0
	for _, offer := range l.offers {
		if offer.Direction == Sell && offer.Good == k {
			total += offer.Quantity
		}
	}
	return total
}

// ReservedCash sums the cash currently reserved by open buy offers.
func (l *Ledger) ReservedCash() decimal.Decimal {
	total := decimal.Zero
	for _, offer := range l.offers {
		if offer.Direction == Buy {
			total = total.Add(offer.Price)
		}
	}
	return total
}

// Snapshot produces a read-only view of the open offers (insertion
// order) and recent trade history. It never mutates ledger state.
func (l *Ledger) Snapshot() Snapshot {
	offers := make([]TrackedOffer, 0, len(l.order))
	for _, id := range l.order {
		if offer, ok := l.offers[id]; ok {
			offers = append(offers, *offer)
		}
	}

	start := 0
	if len(l.trades) > historyLimit {
		start = len(l.trades) - historyLimit
	}
	trades := append([]Trade(nil), l.trades[start:]...)

	return Snapshot{Offers: offers, Trades: trades}
}

// Snapshot is a point-in-time copy of the market's public state.
type Snapshot struct {
	Offers []TrackedOffer `json:"offers"`
	Trades []Trade        `json:"trades"`
}
