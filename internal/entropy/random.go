// Package entropy provides the simulation's randomness source. A fixed
// seed makes a run reproducible; seed 0 draws a fresh seed from
// crypto/rand.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mathrand "math/rand"
	"sync"
)

// Source wraps a seeded math/rand generator behind a mutex so the
// observation API can sample it while a round is running.
type Source struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

// New creates a Source. Seed 0 means "non-deterministic": the seed is
// drawn from crypto/rand and logged so the run can still be replayed.
func New(seed int64) *Source {
	if seed == 0 {
		seed = cryptoSeed()
		slog.Info("entropy seeded from crypto/rand", "seed", seed)
	}
	return &Source{rng: mathrand.New(mathrand.NewSource(seed))}
}

// Shuffle permutes n elements via the provided swap function. Uniform —
// no ordering guarantee beyond re-randomization per call.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(n, swap)
}

// Intn returns a random int in [0, n).
func (s *Source) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; a constant
		// seed at least keeps the process running.
		return 1
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
