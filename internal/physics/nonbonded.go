package physics

import (
	"math"

	"github.com/san-kum/ringmd/internal/mm"
)

// CoulombConstant is 1/(4 pi eps0) in kJ*nm/(mol*e^2).
const CoulombConstant = 138.935456

type atomType struct {
	charge  float64
	sigma   float64
	epsilon float64
}

type pair struct{ a, b int }

// Nonbonded computes Lennard-Jones and Coulomb interactions between every
// pair of particles without a cutoff. Sigma and epsilon are combined with the
// Lorentz-Berthelot rules. Excluded pairs do not interact.
type Nonbonded struct {
	atoms      []atomType
	exclusions map[pair]struct{}
}

func NewNonbonded() *Nonbonded {
	return &Nonbonded{exclusions: make(map[pair]struct{})}
}

func (n *Nonbonded) AddParticle(charge, sigma, epsilon float64) int {
	n.atoms = append(n.atoms, atomType{charge: charge, sigma: sigma, epsilon: epsilon})
	return len(n.atoms) - 1
}

func (n *Nonbonded) AddExclusion(p1, p2 int) {
	if p1 > p2 {
		p1, p2 = p2, p1
	}
	n.exclusions[pair{p1, p2}] = struct{}{}
}

// ExcludeBonded adds an exclusion for every bond in bonds.
func (n *Nonbonded) ExcludeBonded(bonds *HarmonicBond) {
	for _, b := range bonds.bonds {
		n.AddExclusion(b.p1, b.p2)
	}
}

func (n *Nonbonded) NumParticles() int { return len(n.atoms) }

func (n *Nonbonded) Name() string                           { return "nonbonded" }
func (n *Nonbonded) GlobalParameters() []mm.GlobalParameter { return nil }

func (n *Nonbonded) Evaluate(pos []mm.Vec3, _ map[string]float64, forces []mm.Vec3) float64 {
	energy := 0.0
	for i := 0; i < len(n.atoms); i++ {
		for j := i + 1; j < len(n.atoms); j++ {
			if _, ok := n.exclusions[pair{i, j}]; ok {
				continue
			}
			d := pos[j].Sub(pos[i])
			r2 := d.Dot(d)
			if r2 == 0 {
				continue
			}
			r := math.Sqrt(r2)
			ai, aj := n.atoms[i], n.atoms[j]

			sig := 0.5 * (ai.sigma + aj.sigma)
			eps := math.Sqrt(ai.epsilon * aj.epsilon)
			sr6 := math.Pow(sig/r, 6)
			sr12 := sr6 * sr6
			energy += 4 * eps * (sr12 - sr6)
			dEdr := 4 * eps * (-12*sr12 + 6*sr6) / r

			qq := CoulombConstant * ai.charge * aj.charge
			energy += qq / r
			dEdr -= qq / r2

			f := d.Scale(dEdr / r)
			forces[i] = forces[i].Add(f)
			forces[j] = forces[j].Sub(f)
		}
	}
	return energy
}
