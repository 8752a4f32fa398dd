// Package config loads the simulation settings and agent personality
// files. Everything ends up in explicit structs handed to the scheduler
// and ledger at construction — there is no process-wide mutable state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sim holds the tunable parameters of one simulation run.
type Sim struct {
	Rounds int   `yaml:"rounds"`
	Seed   int64 `yaml:"seed"`

	StartingCash   float64        `yaml:"starting_cash"`
	StartingEnergy int            `yaml:"starting_energy"`
	StartingGoods  map[string]int `yaml:"starting_goods"`

	OperationalCost float64 `yaml:"operational_cost"`

	// Survival tuning, mirroring the original defaults.
	EnergyAlertAt     int `yaml:"energy_alert_at"`     // warn when energy <= this
	AppleConsumeAt    int `yaml:"apple_consume_at"`    // auto-eat below this
	AppleRestore      int `yaml:"apple_restore"`       // energy restored per apple
	RunwayAlertRounds int `yaml:"runway_alert_rounds"` // warn when cash covers fewer rounds

	// ForfeitOnExit drops reservations on bankruptcy/death instead of
	// returning them to the agent.
	ForfeitOnExit bool `yaml:"forfeit_on_exit"`
}

// Default returns the simulation settings used when no file is given.
func Default() Sim {
	return Sim{
		Rounds:            20,
		StartingCash:      100,
		StartingEnergy:    10,
		StartingGoods:     map[string]int{"apple": 5, "chip": 3, "gold": 1},
		OperationalCost:   5,
		EnergyAlertAt:     3,
		AppleConsumeAt:    5,
		AppleRestore:      3,
		RunwayAlertRounds: 3,
	}
}

// Load reads a Sim from a YAML file, filling unset fields from Default.
func Load(path string) (Sim, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Rounds <= 0 {
		return cfg, fmt.Errorf("config %s: rounds must be positive", path)
	}
	return cfg, nil
}

// AgentSpec is one agent personality file.
type AgentSpec struct {
	Name        string  `yaml:"name"`
	Persona     string  `yaml:"persona"`
	Temperature float64 `yaml:"temperature"`
}

// LoadAgents reads every *.yaml file in dir as one AgentSpec, sorted by
// filename for a stable starting order (the scheduler shuffles anyway).
func LoadAgents(dir string) ([]AgentSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read agents dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	specs := make([]AgentSpec, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read agent file %s: %w", name, err)
		}
		var spec AgentSpec
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("parse agent file %s: %w", name, err)
		}
		if spec.Name == "" {
			spec.Name = strings.TrimSuffix(name, ".yaml")
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no agent files in %s", dir)
	}
	return specs, nil
}
