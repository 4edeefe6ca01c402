package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/san-kum/ringmd/internal/mm"
)

func TestKineticEnergy(t *testing.T) {
	m := NewKineticEnergy([]float64{2, 4})
	m.Observe(Sample{
		Positions:  make([][]mm.Vec3, 2),
		Velocities: [][]mm.Vec3{{{1, 0, 0}, {0, 1, 0}}, {{0, 0, 0}, {0, 0, 2}}},
	})
	// copy 0: 1 + 2, copy 1: 8
	assert.InDelta(t, 5.5, m.Value(), 1e-12)
	assert.Zero(t, m.StdErr())

	m.Observe(Sample{Positions: make([][]mm.Vec3, 1), Velocities: [][]mm.Vec3{{{0, 0, 0}, {0, 0, 0}}}})
	assert.InDelta(t, 2.75, m.Value(), 1e-12)
	assert.Greater(t, m.StdErr(), 0.0)
	assert.Equal(t, []float64{5.5, 0}, m.History())

	m.Reset()
	assert.Zero(t, m.Value())
}

func TestTemperature(t *testing.T) {
	masses := []float64{1}
	m := NewTemperature(masses, 3)
	assert.True(t, math.IsNaN(m.Value()))

	// one particle, 3 dof: KE = 3/2 kB T for a single copy
	v := math.Sqrt(3 * mm.Boltzmann * 300)
	m.Observe(Sample{Positions: make([][]mm.Vec3, 1), Velocities: [][]mm.Vec3{{{v, 0, 0}}}})
	assert.InDelta(t, 300, m.Value(), 1e-9)

	m.Reset()
	// two beads each carrying the energy of 2T read back as T
	v2 := math.Sqrt(3 * mm.Boltzmann * 600)
	m.Observe(Sample{Positions: make([][]mm.Vec3, 2), Velocities: [][]mm.Vec3{{{v2, 0, 0}}, {{0, v2, 0}}}})
	assert.InDelta(t, 300, m.Value(), 1e-9)
}

func TestBeadSpread(t *testing.T) {
	m := NewBeadSpread()
	m.Observe(Sample{Positions: [][]mm.Vec3{{{1, 0, 0}}, {{-1, 0, 0}}}})
	assert.InDelta(t, 1.0, m.Value(), 1e-12)

	m.Observe(Sample{Positions: [][]mm.Vec3{{{5, 5, 5}}}})
	assert.InDelta(t, 0.5, m.Value(), 1e-12)
}

func TestStability(t *testing.T) {
	m := NewStability(10)
	assert.Equal(t, 1.0, m.Value())
	m.Observe(Sample{Positions: [][]mm.Vec3{{{1, 2, 3}}}})
	m.Observe(Sample{Positions: [][]mm.Vec3{{{math.NaN(), 0, 0}}}})
	m.Observe(Sample{Positions: [][]mm.Vec3{{{0, 0, 11}}}})
	m.Observe(Sample{Positions: [][]mm.Vec3{{{0, 0, -9}}}})
	assert.InDelta(t, 0.5, m.Value(), 1e-12)
}

func TestStandard(t *testing.T) {
	sys := mm.NewSystem()
	sys.AddParticle(1)
	var names []string
	for _, m := range Standard(sys) {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"kinetic_energy", "temperature", "bead_spread", "stability"}, names)
}
