package metrics

import (
	"math"
)

// Stability is the fraction of samples in which every coordinate of every
// bead is finite and within threshold nm of the origin.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(sample Sample) {
	s.samples++
	for _, pos := range sample.Positions {
		for _, p := range pos {
			if !p.IsValid() || math.Abs(p[0]) > s.threshold || math.Abs(p[1]) > s.threshold || math.Abs(p[2]) > s.threshold {
				s.violations++
				return
			}
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
