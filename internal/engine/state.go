package engine

import (
	"maps"

	"github.com/san-kum/ringmd/internal/mm"
)

// DataType selects the fields a State snapshot carries.
type DataType uint

const (
	Positions DataType = 1 << iota
	Velocities
	Forces
	Energy
	Parameters
)

// State is an immutable snapshot of a context. Time is always present; the
// other fields only when requested.
type State struct {
	mask       DataType
	time       float64
	positions  []mm.Vec3
	velocities []mm.Vec3
	forces     []mm.Vec3
	kinetic    float64
	potential  float64
	params     map[string]float64
}

func (s State) Time() float64 { return s.time }

// Has reports whether every field in mask was requested.
func (s State) Has(mask DataType) bool { return s.mask&mask == mask }

func (s State) Positions() []mm.Vec3 {
	if !s.Has(Positions) {
		return nil
	}
	return mm.CloneVecs(s.positions)
}

func (s State) Velocities() []mm.Vec3 {
	if !s.Has(Velocities) {
		return nil
	}
	return mm.CloneVecs(s.velocities)
}

func (s State) Forces() []mm.Vec3 {
	if !s.Has(Forces) {
		return nil
	}
	return mm.CloneVecs(s.forces)
}

func (s State) KineticEnergy() float64   { return s.kinetic }
func (s State) PotentialEnergy() float64 { return s.potential }

func (s State) Parameters() map[string]float64 {
	if !s.Has(Parameters) {
		return nil
	}
	return maps.Clone(s.params)
}
