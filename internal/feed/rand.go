// Feedrank - Personalized Feed Ranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package feed

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
)

// Rand is the random source used for score jitter and discovery injection.
type Rand interface {
	// Float64 returns a number in [0, 1).
	Float64() float64

	// Intn returns a number in [0, n). n must be positive.
	Intn(n int) int
}

// lockedRand is a math/rand source safe for concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRand returns a goroutine-safe Rand. A zero seed draws the seed from
// crypto/rand; any other seed gives a reproducible sequence.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = cryptoSeed()
	}
	//nolint:gosec // G404: ranking noise, not security sensitive
	return &lockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func cryptoSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 42
	}
	seed := int64(binary.LittleEndian.Uint64(b[:]) &^ (1 << 63))
	if seed == 0 {
		seed = 42
	}
	return seed
}
