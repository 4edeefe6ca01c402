package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ringmd/internal/mm"
)

// beadKinetic returns the kinetic energy of each copy in s.
func beadKinetic(masses []float64, s Sample) []float64 {
	ke := make([]float64, len(s.Velocities))
	terms := make([]float64, len(masses))
	for c, vel := range s.Velocities {
		for i, v := range vel {
			terms[i] = 0.5 * masses[i] * v.Dot(v)
		}
		ke[c] = floats.Sum(terms)
	}
	return ke
}

// KineticEnergy is the mean per-bead kinetic energy in kJ/mol.
type KineticEnergy struct {
	name    string
	masses  []float64
	history []float64
}

func NewKineticEnergy(masses []float64) *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy", masses: masses}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(s Sample) {
	if s.NumCopies() == 0 {
		return
	}
	k.history = append(k.history, stat.Mean(beadKinetic(k.masses, s), nil))
}

func (k *KineticEnergy) Value() float64 {
	if len(k.history) == 0 {
		return 0
	}
	return stat.Mean(k.history, nil)
}

// StdErr is the naive standard error of Value, ignoring correlation
// between samples.
func (k *KineticEnergy) StdErr() float64 {
	if len(k.history) < 2 {
		return 0
	}
	return stat.StdErr(stat.StdDev(k.history, nil), float64(len(k.history)))
}

// History returns the per-sample values observed so far.
func (k *KineticEnergy) History() []float64 {
	out := make([]float64, len(k.history))
	copy(out, k.history)
	return out
}

func (k *KineticEnergy) Reset() { k.history = k.history[:0] }

// Temperature converts the mean per-bead kinetic energy to kelvin. Beads are
// thermostatted at numCopies*T, so the bead temperature is divided by the
// copy count.
type Temperature struct {
	ke        *KineticEnergy
	dof       int
	numCopies int
}

func NewTemperature(masses []float64, dof int) *Temperature {
	return &Temperature{ke: NewKineticEnergy(masses), dof: dof}
}

func (t *Temperature) Name() string { return "temperature" }

func (t *Temperature) Observe(s Sample) {
	t.numCopies = s.NumCopies()
	t.ke.Observe(s)
}

func (t *Temperature) Value() float64 {
	if t.dof == 0 || t.numCopies == 0 {
		return math.NaN()
	}
	return 2 * t.ke.Value() / (float64(t.dof) * mm.Boltzmann * float64(t.numCopies))
}

func (t *Temperature) Reset() {
	t.ke.Reset()
	t.numCopies = 0
}
