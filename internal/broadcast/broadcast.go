// Package broadcast supplies the optional per-round market event that is
// delivered identically to every living agent's inbox.
package broadcast

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/caio-almeid4/marketplace-simulation/internal/entropy"
)

// Event is one broadcastable market happening.
type Event struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	Content  string `yaml:"content" json:"content"`
	Category string `yaml:"category" json:"category"`
}

// Service holds the event pool loaded from a YAML file.
type Service struct {
	events []Event
}

type eventsFile struct {
	Events []Event `yaml:"events"`
}

// Load reads the event pool. Events without an ID get a generated one.
func Load(path string) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	var file eventsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse events file %s: %w", path, err)
	}
	for i := range file.Events {
		if file.Events[i].ID == "" {
			file.Events[i].ID = uuid.NewString()
		}
	}
	return &Service{events: file.Events}, nil
}

// Pick returns a random event from the pool, or nil when the pool is
// empty.
func (s *Service) Pick(src *entropy.Source) *Event {
	if s == nil || len(s.events) == 0 {
		return nil
	}
	e := s.events[src.Intn(len(s.events))]
	return &e
}

// Len returns the pool size.
func (s *Service) Len() int {
	if s == nil {
		return 0
	}
	return len(s.events)
}
