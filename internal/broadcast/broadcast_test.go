package broadcast_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caio-almeid4/marketplace-simulation/internal/broadcast"
	"github.com/caio-almeid4/marketplace-simulation/internal/entropy"
)

const sampleEvents = `events:
  - id: harvest-01
    title: Bumper apple harvest
    content: Orchards report record yields. Apple supply may surge.
    category: supply
  - title: Chip shortage rumors
    content: Word spreads of a component shortage.
    category: supply
`

func TestLoadAndPick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	if err := os.WriteFile(path, []byte(sampleEvents), 0o644); err != nil {
		t.Fatal(err)
	}

	svc, err := broadcast.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if svc.Len() != 2 {
		t.Fatalf("events = %d, want 2", svc.Len())
	}

	src := entropy.New(1)
	for i := 0; i < 10; i++ {
		e := svc.Pick(src)
		if e == nil {
			t.Fatal("Pick returned nil with a non-empty pool")
		}
		if e.ID == "" {
			t.Error("event without an ID: generation did not fill it")
		}
	}
}

func TestPickEmptyPool(t *testing.T) {
	var svc *broadcast.Service
	if e := svc.Pick(entropy.New(1)); e != nil {
		t.Errorf("nil service should pick nothing, got %+v", e)
	}
}
