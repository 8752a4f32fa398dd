// Package agents provides the participant data model and lifecycle state.
package agents

import (
	"github.com/shopspring/decimal"
)

// Status is an agent's lifecycle state. Alive agents act each round;
// bankrupt and dead are terminal — once set they never change back.
type Status uint8

const (
	StatusAlive Status = iota
	StatusBankrupt
	StatusDead
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusBankrupt:
		return "bankrupt"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Message is one inbox entry delivered to the agent's next policy
// invocation: broadcast events, trade notifications, and error feedback
// from failed intents.
type Message struct {
	From string `json:"from"`
	Body string `json:"body"`
}

// Agent is one marketplace participant. The agent owns its Inventory;
// all cross-agent mutation goes through the ledger's validated
// operations, never direct field pokes from outside.
type Agent struct {
	Name        string  `json:"name"`
	Persona     string  `json:"persona,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	Inventory Inventory       `json:"inventory"`
	Energy    int             `json:"energy"`
	Upkeep    decimal.Decimal `json:"upkeep"`
	Status    Status          `json:"status"`

	Inbox []Message `json:"inbox,omitempty"`
}

// Alive reports whether the agent still takes turns.
func (a *Agent) Alive() bool {
	return a.Status == StatusAlive
}

// PayUpkeep collects the per-round operational cost. When cash cannot
// cover it, the remaining cash is zeroed and false is returned — the
// scheduler marks the agent bankrupt.
func (a *Agent) PayUpkeep() bool {
	if a.Inventory.Cash.LessThan(a.Upkeep) {
		a.Inventory.Cash = decimal.Zero
		return false
	}
	a.Inventory.Cash = a.Inventory.Cash.Sub(a.Upkeep)
	return true
}

// Deliver appends a message to the agent's inbox.
func (a *Agent) Deliver(from, body string) {
	a.Inbox = append(a.Inbox, Message{From: from, Body: body})
}

// ClearInbox drops all pending messages. Called once the messages have
// been handed to the decision policy.
func (a *Agent) ClearInbox() {
	a.Inbox = nil
}

// MarkBankrupt transitions the agent to the bankrupt terminal state.
// A no-op if the agent is already non-alive.
func (a *Agent) MarkBankrupt() {
	if a.Status == StatusAlive {
		a.Status = StatusBankrupt
	}
}

// MarkDead transitions the agent to the dead terminal state.
// A no-op if the agent is already non-alive.
func (a *Agent) MarkDead() {
	if a.Status == StatusAlive {
		a.Status = StatusDead
	}
}
