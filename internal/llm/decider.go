package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/caio-almeid4/marketplace-simulation/internal/goods"
	"github.com/caio-almeid4/marketplace-simulation/internal/policy"
	"github.com/caio-almeid4/marketplace-simulation/internal/render"
)

// Decider is the LLM-backed policy.Decider. One model call per turn;
// the model answers with a JSON array of actions that map 1:1 to ledger
// operations.
type Decider struct {
	client *Client
}

// NewDecider wraps a client. The client must be enabled.
func NewDecider(client *Client) *Decider {
	return &Decider{client: client}
}

// wireAction is the JSON shape the model responds with.
type wireAction struct {
	Action   string  `json:"action"`
	Item     string  `json:"item,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Note     string  `json:"note,omitempty"`
	OfferID  int64   `json:"offer_id,omitempty"`
}

// DecideTurn builds the turn prompt, calls the model once, and parses
// the returned actions. Errors (rate limit, timeout, bad JSON) make the
// turn a no-op — they never abort the round.
func (d *Decider) DecideTurn(ctx context.Context, tc policy.TurnContext) ([]policy.Intent, error) {
	response, err := d.client.Complete(ctx,
		buildSystemPrompt(tc), buildUserPrompt(tc), 600, tc.Temperature)
	if err != nil {
		return nil, fmt.Errorf("turn decision for %s: %w", tc.Name, err)
	}
	return ParseIntents(response)
}

func buildSystemPrompt(tc policy.TurnContext) string {
	return fmt.Sprintf(
		`You are %s, a trader in a closed marketplace with %d participants' goods: apple, chip, gold.
%s

Rules of the market:
- Prices are the TOTAL for the whole offered quantity, not per unit.
- Posting a sell offer reserves your goods immediately; a buy offer reserves the cash.
- Each round you pay %s cash upkeep. Running out of cash bankrupts you.
- Energy drops by 1 each round. At 0 you die. Eating an apple restores energy.
- You cannot accept your own offers.

Respond ONLY with a JSON array of 0-3 actions. Each action is an object with:
- "action": one of "create_sell_offer", "create_buy_offer", "accept_sell_offer", "accept_buy_offer", "cancel_offer", "wait"
- "item" (create only): "apple", "chip" or "gold"
- "quantity" (create only): positive integer
- "price" (create only): positive total price
- "note" (create only): short pitch shown on the board
- "offer_id" (accept/cancel only): the #id from the market board

An empty array means you sit this turn out.`,
		tc.Name, goods.NumKinds, tc.Persona, tc.Upkeep)
}

func buildUserPrompt(tc policy.TurnContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Round %d of %d.\n\n", tc.Round, tc.TotalRounds)
	fmt.Fprintf(&b, "Your holdings: %s\n\n", render.Inventory(tc.Inventory, tc.Energy))
	b.WriteString(render.Board(tc.Board))

	if len(tc.Warnings) > 0 {
		b.WriteString("\nWARNINGS:\n")
		for _, w := range tc.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if len(tc.Inbox) > 0 {
		b.WriteString("\nMessages since your last turn:\n")
		for _, m := range tc.Inbox {
			fmt.Fprintf(&b, "- [%s] %s\n", m.From, m.Body)
		}
	}

	b.WriteString("\nWhat do you do? Respond with a JSON array of actions.")
	return b.String()
}

// ParseIntents extracts the action array from a model response. The
// model may wrap the JSON in explanation text or markdown fences.
func ParseIntents(response string) ([]policy.Intent, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array in response: %q", truncate(response, 120))
	}

	var actions []wireAction
	if err := json.Unmarshal([]byte(response[start:end+1]), &actions); err != nil {
		return nil, fmt.Errorf("parse actions: %w", err)
	}

	intents := make([]policy.Intent, 0, len(actions))
	for _, a := range actions {
		intent, err := a.toIntent()
		if err != nil {
			return nil, err
		}
		if intent.Kind == policy.Wait {
			continue
		}
		intents = append(intents, intent)
	}
	return intents, nil
}

func (a wireAction) toIntent() (policy.Intent, error) {
	switch a.Action {
	case "wait", "":
		return policy.Intent{Kind: policy.Wait}, nil
	case "create_sell_offer", "create_buy_offer":
		kind := policy.CreateSell
		if a.Action == "create_buy_offer" {
			kind = policy.CreateBuy
		}
		good, err := goods.ParseKind(a.Item)
		if err != nil {
			return policy.Intent{}, err
		}
		return policy.Intent{
			Kind:     kind,
			Good:     good,
			Quantity: a.Quantity,
			Price:    decimal.NewFromFloat(a.Price),
			Note:     a.Note,
		}, nil
	case "accept_sell_offer":
		return policy.Intent{Kind: policy.AcceptSell, OfferID: a.OfferID}, nil
	case "accept_buy_offer":
		return policy.Intent{Kind: policy.AcceptBuy, OfferID: a.OfferID}, nil
	case "cancel_offer":
		return policy.Intent{Kind: policy.Cancel, OfferID: a.OfferID}, nil
	default:
		return policy.Intent{}, fmt.Errorf("unknown action %q", a.Action)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
