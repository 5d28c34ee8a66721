package rng

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDeterministic_SameSeedProducesSameSequence(t *testing.T) {
	a := NewDeterministic(42)
	b := NewDeterministic(42)

	for i := 0; i < 20; i++ {
		require.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestNewDeterministic_DifferentSeedsDiverge(t *testing.T) {
	a := NewDeterministic(1)
	b := NewDeterministic(2)

	diverged := false
	for i := 0; i < 20; i++ {
		if a.Intn(1_000_000) != b.Intn(1_000_000) {
			diverged = true
			break
		}
	}
	require.True(t, diverged)
}

func TestNewDeterministic_ShuffleIsReproducible(t *testing.T) {
	deck := func() []int {
		d := make([]int, 52)
		for i := range d {
			d[i] = i
		}
		return d
	}

	d1 := deck()
	NewDeterministic(7).Shuffle(len(d1), func(i, j int) { d1[i], d1[j] = d1[j], d1[i] })

	d2 := deck()
	NewDeterministic(7).Shuffle(len(d2), func(i, j int) { d2[i], d2[j] = d2[j], d2[i] })

	require.Equal(t, d1, d2)
}

func TestNew_ProducesAUsableSource(t *testing.T) {
	src := New()
	require.NotPanics(t, func() {
		src.Intn(100)
		src.Shuffle(10, func(i, j int) {})
	})
}
