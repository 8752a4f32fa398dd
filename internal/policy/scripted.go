package policy

import "context"

// Scripted is a deterministic Decider that replays a fixed queue of
// intents per agent. It keeps the scheduler testable without any LLM in
// the loop: each turn pops that agent's next batch, and an exhausted
// script waits forever.
type Scripted struct {
	queues map[string][][]Intent
}

// NewScripted creates an empty scripted policy.
func NewScripted() *Scripted {
	return &Scripted{queues: make(map[string][][]Intent)}
}

// Enqueue appends one turn's worth of intents for an agent.
func (s *Scripted) Enqueue(agent string, intents ...Intent) {
	s.queues[agent] = append(s.queues[agent], intents)
}

func (s *Scripted) DecideTurn(_ context.Context, tc TurnContext) ([]Intent, error) {
	queue := s.queues[tc.Name]
	if len(queue) == 0 {
		return nil, nil
	}
	batch := queue[0]
	s.queues[tc.Name] = queue[1:]
	return batch, nil
}
