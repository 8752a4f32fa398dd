// Package engine drives the round-based simulation loop: turn order,
// policy invocation, upkeep collection, and the survival lifecycle.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caio-almeid4/marketplace-simulation/internal/agents"
	"github.com/caio-almeid4/marketplace-simulation/internal/broadcast"
	"github.com/caio-almeid4/marketplace-simulation/internal/config"
	"github.com/caio-almeid4/marketplace-simulation/internal/entropy"
	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
	"github.com/caio-almeid4/marketplace-simulation/internal/market"
	"github.com/caio-almeid4/marketplace-simulation/internal/metrics"
	"github.com/caio-almeid4/marketplace-simulation/internal/policy"
)

// SnapshotWriter persists per-round inventory snapshots. Failures are
// logged and never block the round.
type SnapshotWriter interface {
	WriteInventorySnapshots(round int, pool []*agents.Agent) error
}

// RoundStats aggregates the trades settled within one round.
type RoundStats struct {
	Round        int                            `json:"round"`
	Trades       int                            `json:"trades"`
	AvgUnitPrice map[goods.Kind]decimal.Decimal `json:"-"`
}

// Scheduler runs N rounds over the agent pool. Ledger mutations are
// strictly serialized: one turn at a time, one intent at a time. The
// mutex only guards against concurrent reads from the observation API.
type Scheduler struct {
	cfg       config.Sim
	ledger    *market.Ledger
	pool      []*agents.Agent
	decider   policy.Decider
	events    *broadcast.Service
	snapshots SnapshotWriter
	src       *entropy.Source

	mu       sync.Mutex
	round    int
	log      []Event
	stats    []RoundStats
	bankrupt []string
	dead     []string

	upkeepCollected decimal.Decimal
}

// NewScheduler wires the simulation together. events and snapshots may
// be nil.
func NewScheduler(cfg config.Sim, ledger *market.Ledger, pool []*agents.Agent,
	decider policy.Decider, events *broadcast.Service, snapshots SnapshotWriter,
	src *entropy.Source) *Scheduler {
	return &Scheduler{
		cfg:             cfg,
		ledger:          ledger,
		pool:            pool,
		decider:         decider,
		events:          events,
		snapshots:       snapshots,
		src:             src,
		upkeepCollected: decimal.Zero,
	}
}

// Run executes exactly cfg.Rounds rounds. The loop never terminates
// early: with an empty living pool the remaining rounds are no-ops.
func (s *Scheduler) Run(ctx context.Context) error {
	for r := 1; r <= s.cfg.Rounds; r++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("simulation interrupted at round %d: %w", r, err)
		}
		s.runRound(ctx, r)
	}
	slog.Info("simulation finished",
		"rounds", s.cfg.Rounds,
		"alive", len(s.living()),
		"bankrupt", len(s.bankrupt),
		"dead", len(s.dead),
		"trades", len(s.ledger.Trades()),
		"upkeep_collected", s.upkeepCollected,
	)
	return nil
}

func (s *Scheduler) runRound(ctx context.Context, round int) {
	s.mu.Lock()
	s.round = round
	metrics.CurrentRound.Set(float64(round))

	living := s.living()
	s.src.Shuffle(len(living), func(i, j int) {
		living[i], living[j] = living[j], living[i]
	})

	if event := s.events.Pick(s.src); event != nil {
		for _, a := range living {
			a.Deliver("market-news", fmt.Sprintf("%s: %s", event.Title, event.Content))
		}
		s.record(round, fmt.Sprintf("broadcast: %s", event.Title), "broadcast")
	}
	s.mu.Unlock()

	for _, a := range living {
		s.mu.Lock()
		alive := a.Alive()
		s.mu.Unlock()
		if !alive {
			continue
		}
		s.takeTurn(ctx, a, round)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range living {
		if a.Alive() {
			s.decayEnergy(a, round)
		}
	}

	s.aggregateRound(round)

	if s.snapshots != nil {
		if err := s.snapshots.WriteInventorySnapshots(round, s.pool); err != nil {
			slog.Error("inventory snapshot failed", "round", round, "error", err)
		}
	}

	metrics.AgentsAlive.Set(float64(len(s.living())))
	metrics.OpenOffers.Set(float64(s.ledger.OpenOffers()))
}

// takeTurn renders the market view, invokes the policy, applies the
// returned intents, and collects upkeep. The policy call happens outside
// the lock — it is the only long-latency operation in a round.
func (s *Scheduler) takeTurn(ctx context.Context, a *agents.Agent, round int) {
	s.mu.Lock()
	tc := policy.TurnContext{
		Round:       round,
		TotalRounds: s.cfg.Rounds,
		Name:        a.Name,
		Persona:     a.Persona,
		Temperature: a.Temperature,
		Inventory:   a.Inventory,
		Energy:      a.Energy,
		Upkeep:      a.Upkeep,
		Inbox:       append([]agents.Message(nil), a.Inbox...),
		Warnings:    s.warnings(a),
		Board:       s.ledger.Snapshot(),
	}
	s.mu.Unlock()

	start := time.Now()
	intents, err := s.decider.DecideTurn(ctx, tc)
	metrics.PolicyLatency.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	// The policy has seen the pending messages; anything appended from
	// here on is feedback for the next turn.
	a.ClearInbox()

	if err != nil {
		// A failed policy invocation is a no-op turn, never a crash.
		slog.Warn("policy invocation failed", "agent", a.Name, "round", round, "error", err)
		a.Deliver("market", fmt.Sprintf("your last turn was skipped: %v", err))
	}

	for _, intent := range intents {
		if err := s.apply(a, intent, round); err != nil {
			metrics.IntentFailures.WithLabelValues(intent.Kind.String()).Inc()
			a.Deliver("market", fmt.Sprintf("%s failed: %v", intent.Kind, err))
		}
	}

	if !a.PayUpkeep() {
		s.markBankrupt(a, round)
		return
	}
	s.upkeepCollected = s.upkeepCollected.Add(a.Upkeep)
}

// apply maps one intent to its ledger operation.
func (s *Scheduler) apply(a *agents.Agent, intent policy.Intent, round int) error {
	draft := market.OfferDraft{
		Supplier: a.Name,
		Good:     intent.Good,
		Quantity: intent.Quantity,
		Price:    intent.Price,
		Note:     intent.Note,
	}

	switch intent.Kind {
	case policy.Wait:
		return nil
	case policy.CreateSell:
		_, err := s.ledger.CreateSellOffer(draft)
		return err
	case policy.CreateBuy:
		_, err := s.ledger.CreateBuyOffer(draft)
		return err
	case policy.AcceptSell:
		trade, err := s.ledger.AcceptSellOffer(a.Name, intent.OfferID, round)
		if err != nil {
			return err
		}
		s.notifyCounterparty(trade.Supplier, fmt.Sprintf(
			"%s accepted your sell offer: %d %s for %s cash", a.Name, trade.Quantity, trade.Item(), trade.Price))
		s.record(round, fmt.Sprintf("%s bought %d %s from %s", a.Name, trade.Quantity, trade.Item(), trade.Supplier), "trade")
		return nil
	case policy.AcceptBuy:
		trade, err := s.ledger.AcceptBuyOffer(a.Name, intent.OfferID, round)
		if err != nil {
			return err
		}
		s.notifyCounterparty(trade.Buyer, fmt.Sprintf(
			"%s filled your buy offer: %d %s for %s cash", a.Name, trade.Quantity, trade.Item(), trade.Price))
		s.record(round, fmt.Sprintf("%s sold %d %s to %s", a.Name, trade.Quantity, trade.Item(), trade.Buyer), "trade")
		return nil
	case policy.Cancel:
		return s.ledger.CancelOffer(a.Name, intent.OfferID)
	default:
		return fmt.Errorf("unknown intent kind %d", intent.Kind)
	}
}

func (s *Scheduler) notifyCounterparty(name, body string) {
	for _, a := range s.pool {
		if a.Name == name && a.Alive() {
			a.Deliver("market", body)
			return
		}
	}
}

// warnings builds the survival and bankruptcy alerts for a turn context.
func (s *Scheduler) warnings(a *agents.Agent) []string {
	var out []string
	if a.Energy <= s.cfg.EnergyAlertAt {
		out = append(out, fmt.Sprintf(
			"energy critical: %d left, you die at 0 (apples restore %d)", a.Energy, s.cfg.AppleRestore))
	}
	upkeep := a.Upkeep
	if upkeep.IsPositive() {
		runway := decimal.NewFromInt(int64(s.cfg.RunwayAlertRounds))
		if a.Inventory.Cash.LessThan(upkeep.Mul(runway)) {
			out = append(out, fmt.Sprintf(
				"cash critical: %s left, upkeep is %s per round", a.Inventory.Cash, upkeep))
		}
	}
	return out
}

func (s *Scheduler) markBankrupt(a *agents.Agent, round int) {
	a.MarkBankrupt()
	s.ledger.PurgeAgentOffers(a.Name, !s.cfg.ForfeitOnExit)
	s.bankrupt = append(s.bankrupt, a.Name)
	s.record(round, fmt.Sprintf("%s went bankrupt", a.Name), "bankruptcy")
	metrics.Terminations.WithLabelValues("bankruptcy").Inc()
	slog.Info("agent bankrupt", "agent", a.Name, "round", round)
}

func (s *Scheduler) markDead(a *agents.Agent, round int) {
	a.MarkDead()
	s.ledger.PurgeAgentOffers(a.Name, !s.cfg.ForfeitOnExit)
	s.dead = append(s.dead, a.Name)
	s.record(round, fmt.Sprintf("%s starved", a.Name), "death")
	metrics.Terminations.WithLabelValues("death").Inc()
	slog.Info("agent died", "agent", a.Name, "round", round)
}

// decayEnergy runs the end-of-round survival pass for one agent: decay
// first, death check second, and only survivors get the apple
// conversion — an agent who just starved does not eat.
func (s *Scheduler) decayEnergy(a *agents.Agent, round int) {
	a.Energy--
	if a.Energy <= 0 {
		a.Energy = 0
		s.markDead(a, round)
		return
	}
	if a.Energy < s.cfg.AppleConsumeAt && a.Inventory.Count(goods.Apple) >= 1 {
		a.Inventory.RemoveGoods(goods.Apple, 1)
		a.Energy += s.cfg.AppleRestore
		s.record(round, fmt.Sprintf("%s ate an apple (energy %d)", a.Name, a.Energy), "survival")
	}
}

// aggregateRound computes average unit prices from the trades settled
// strictly within this round.
func (s *Scheduler) aggregateRound(round int) {
	trades := s.ledger.TradesInRound(round)
	stats := RoundStats{
		Round:        round,
		Trades:       len(trades),
		AvgUnitPrice: make(map[goods.Kind]decimal.Decimal),
	}

	sums := make(map[goods.Kind]decimal.Decimal)
	counts := make(map[goods.Kind]int)
	for _, t := range trades {
		unit := t.Price.Div(decimal.NewFromInt(int64(t.Quantity)))
		sums[t.Good] = sums[t.Good].Add(unit)
		counts[t.Good]++
		metrics.TradesTotal.WithLabelValues(t.Item()).Inc()
	}
	for k, sum := range sums {
		avg := sum.Div(decimal.NewFromInt(int64(counts[k])))
		stats.AvgUnitPrice[k] = avg
		f, _ := avg.Float64()
		metrics.AvgTradePrice.WithLabelValues(k.String()).Set(f)
	}

	s.stats = append(s.stats, stats)
	slog.Info("round complete",
		"round", round,
		"trades", stats.Trades,
		"alive", len(s.living()),
		"open_offers", s.ledger.OpenOffers(),
	)
}

func (s *Scheduler) record(round int, desc, category string) {
	s.log = append(s.log, Event{Round: round, Description: desc, Category: category})
	if len(s.log) > maxEvents {
		s.log = s.log[len(s.log)-maxEvents:]
	}
}

// living returns the agents still taking turns.
func (s *Scheduler) living() []*agents.Agent {
	var out []*agents.Agent
	for _, a := range s.pool {
		if a.Alive() {
			out = append(out, a)
		}
	}
	return out
}

// --- Read-side accessors for the observation API ---

// Round returns the round currently being processed.
func (s *Scheduler) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// MarketView returns a point-in-time market snapshot.
func (s *Scheduler) MarketView() market.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot()
}

// AgentView is the read-only agent representation served over HTTP.
type AgentView struct {
	Name   string          `json:"name"`
	Cash   decimal.Decimal `json:"cash"`
	Goods  map[string]int  `json:"goods"`
	Energy int             `json:"energy"`
	Status string          `json:"status"`
}

// Agents returns read-only views of every agent.
func (s *Scheduler) Agents() []AgentView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AgentView, 0, len(s.pool))
	for _, a := range s.pool {
		out = append(out, AgentView{
			Name:   a.Name,
			Cash:   a.Inventory.Cash,
			Goods:  a.Inventory.GoodsMap(),
			Energy: a.Energy,
			Status: a.Status.String(),
		})
	}
	return out
}

// Events returns the most recent events, newest last.
func (s *Scheduler) Events(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.log) {
		limit = len(s.log)
	}
	return append([]Event(nil), s.log[len(s.log)-limit:]...)
}

// Stats returns the per-round aggregates collected so far.
func (s *Scheduler) Stats() []RoundStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RoundStats(nil), s.stats...)
}

// Terminated returns the bankrupt and dead agent name lists.
func (s *Scheduler) Terminated() (bankrupt, dead []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bankrupt...), append([]string(nil), s.dead...)
}

// UpkeepCollected returns the total operational cost collected across
// all rounds — the only sanctioned cash sink.
func (s *Scheduler) UpkeepCollected() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upkeepCollected
}
