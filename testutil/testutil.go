// Package testutil provides helpers for generating deterministic
// array test data.
//
// This package is intended for use in tests and benchmarks only.
//
//	rng := testutil.NewRNG(seed)
//	data := rng.Floats64(1024)
package testutil

import (
	"math/rand"
	"sync"
)

// RNG is a seeded pseudo-random source. It is safe for concurrent
// use.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Float32 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Floats64 returns n pseudo-random float64 values in [0.0,1.0).
func (r *RNG) Floats64(n int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		out[i] = r.rand.Float64()
	}
	return out
}

// Floats32 returns n pseudo-random float32 values in [0.0,1.0).
func (r *RNG) Floats32(n int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float32, n)
	for i := range out {
		out[i] = r.rand.Float32()
	}
	return out
}

// Ints64 returns n pseudo-random int64 values.
func (r *RNG) Ints64(n int) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int64, n)
	for i := range out {
		out[i] = int64(r.rand.Uint64())
	}
	return out
}

// Complex128s returns n pseudo-random complex128 values with
// component parts in [0.0,1.0).
func (r *RNG) Complex128s(n int) []complex128 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(r.rand.Float64(), r.rand.Float64())
	}
	return out
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, n)
	r.rand.Read(out)
	return out
}
