package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caio-almeid4/marketplace-simulation/internal/config"
)

func TestLoadFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yaml")
	body := "rounds: 5\nstarting_cash: 250\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Rounds != 5 {
		t.Errorf("rounds = %d, want 5", cfg.Rounds)
	}
	if cfg.StartingCash != 250 {
		t.Errorf("starting cash = %v, want 250", cfg.StartingCash)
	}
	// Untouched fields keep the defaults.
	if cfg.EnergyAlertAt != 3 || cfg.AppleConsumeAt != 5 || cfg.AppleRestore != 3 {
		t.Errorf("survival defaults not preserved: %+v", cfg)
	}
}

func TestLoadRejectsNonPositiveRounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yaml")
	if err := os.WriteFile(path, []byte("rounds: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Error("expected error for rounds: 0")
	}
}

func TestLoadAgents(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"bea.yaml":  "name: bea\npersona: cautious hoarder\ntemperature: 0.2\n",
		"arlo.yaml": "persona: aggressive trader\ntemperature: 0.9\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	specs, err := config.LoadAgents(dir)
	if err != nil {
		t.Fatalf("LoadAgents: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(specs))
	}
	// Sorted by filename; missing name falls back to the filename.
	if specs[0].Name != "arlo" {
		t.Errorf("first spec = %q, want arlo (filename fallback)", specs[0].Name)
	}
	if specs[1].Name != "bea" || specs[1].Temperature != 0.2 {
		t.Errorf("second spec = %+v", specs[1])
	}
}

func TestLoadAgentsEmptyDir(t *testing.T) {
	if _, err := config.LoadAgents(t.TempDir()); err == nil {
		t.Error("expected error for empty agents dir")
	}
}
