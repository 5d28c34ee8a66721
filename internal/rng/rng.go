// Package rng provides the seedable randomness contract shared by the
// poker deck, the UNO deck, and the UNO "call UNO" button-position prompt.
// Production code seeds from crypto/rand; tests supply a fixed seed so
// shuffles and prompts are reproducible.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"time"
)

// Source is the minimal randomness contract the engines depend on. It is
// satisfied directly by *math/rand.Rand.
type Source interface {
	Shuffle(n int, swap func(i, j int))
	Intn(n int) int
}

// New returns a cryptographically seeded, non-deterministic source for
// production use.
func New() Source {
	var seedBytes [8]byte
	if _, err := rand.Read(seedBytes[:]); err != nil {
		// crypto/rand failing is practically unheard of; fall back to a
		// timestamp-derived seed rather than panic the engine.
		return mrand.New(mrand.NewSource(time.Now().UnixNano()))
	}
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return mrand.New(mrand.NewSource(seed))
}

// NewDeterministic returns a reproducible source for tests.
func NewDeterministic(seed int64) Source {
	return mrand.New(mrand.NewSource(seed))
}
