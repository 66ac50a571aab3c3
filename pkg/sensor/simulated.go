package sensor

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Simulated is a RangeSensor without hardware, for bench runs.
// It reports DistanceCm with uniform noise of +/- NoiseCm and fails
// with probability FailureRatio.
type Simulated struct {
	DistanceCm   float64
	NoiseCm      float64
	FailureRatio float64

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

var _ RangeSensor = &Simulated{}

// NewSimulated returns a Simulated sensor seeded with seed.
func NewSimulated(distanceCm, noiseCm, failureRatio float64, seed uint64) *Simulated {
	return &Simulated{
		DistanceCm:   distanceCm,
		NoiseCm:      noiseCm,
		FailureRatio: failureRatio,
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:          time.Now,
	}
}

func (s *Simulated) Sample() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now()
	if s.FailureRatio > 0 && s.rng.Float64() < s.FailureRatio {
		return Invalid(at)
	}

	d := s.DistanceCm
	if s.NoiseCm > 0 {
		d += (s.rng.Float64()*2 - 1) * s.NoiseCm
	}
	return Sample{DistanceCm: d, Valid: true, At: at}
}

func (s *Simulated) Close() error { return nil }
