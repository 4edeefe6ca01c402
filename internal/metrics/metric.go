// Package metrics accumulates observables over the samples of a ring
// polymer run.
package metrics

import "github.com/san-kum/ringmd/internal/mm"

// Sample is every bead of a system at one instant. The outer index is the
// copy. A classical run is a sample with one copy.
type Sample struct {
	Time       float64
	Positions  [][]mm.Vec3
	Velocities [][]mm.Vec3
}

func (s Sample) NumCopies() int { return len(s.Positions) }

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Standard returns the metrics the experiment runner records for a system.
func Standard(sys *mm.System) []Metric {
	masses := make([]float64, sys.NumParticles())
	for i := range masses {
		masses[i] = sys.Mass(i)
	}
	return []Metric{
		NewKineticEnergy(masses),
		NewTemperature(masses, sys.DegreesOfFreedom()),
		NewBeadSpread(),
		NewStability(10),
	}
}
