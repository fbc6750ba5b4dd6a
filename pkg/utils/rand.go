package utils

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// RandSource is a mutex-guarded random number generator. Samplers may be
// called from multiple workers, so every draw is access-serialized.
type RandSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed.
// A zero seed selects a time-based seed.
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// IntBetween returns a random int in [low, high] inclusive
func (r *RandSource) IntBetween(low, high int) int {
	if high <= low {
		return low
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return low + r.rng.Intn(high-low+1)
}

// UniformFloat64 returns a uniformly distributed random number in [low, high)
func (r *RandSource) UniformFloat64(low, high float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return low + r.rng.Float64()*(high-low)
}

// LogUniformFloat64 returns a log-uniformly distributed random number in
// [low, high). Both bounds must be positive.
func (r *RandSource) LogUniformFloat64(low, high float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	logLow := math.Log(low)
	logHigh := math.Log(high)
	return math.Exp(logLow + r.rng.Float64()*(logHigh-logLow))
}

// NormFloat64 returns a normally distributed random number with mean and stddev
func (r *RandSource) NormFloat64(mean, stddev float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.NormFloat64()*stddev + mean
}
