package physics

import "github.com/san-kum/ringmd/internal/mm"

type bond struct {
	p1, p2 int
	length float64
	k      float64
}

// HarmonicBond implements E = 1/2 k (r - r0)^2 for each bonded pair.
type HarmonicBond struct {
	bonds []bond
}

func NewHarmonicBond() *HarmonicBond {
	return &HarmonicBond{}
}

func (h *HarmonicBond) AddBond(p1, p2 int, length, k float64) int {
	h.bonds = append(h.bonds, bond{p1: p1, p2: p2, length: length, k: k})
	return len(h.bonds) - 1
}

func (h *HarmonicBond) NumBonds() int { return len(h.bonds) }

func (h *HarmonicBond) Name() string                           { return "harmonic_bond" }
func (h *HarmonicBond) GlobalParameters() []mm.GlobalParameter { return nil }

func (h *HarmonicBond) Evaluate(pos []mm.Vec3, _ map[string]float64, forces []mm.Vec3) float64 {
	energy := 0.0
	for _, b := range h.bonds {
		d := pos[b.p2].Sub(pos[b.p1])
		r := d.Norm()
		dr := r - b.length
		energy += 0.5 * b.k * dr * dr
		if r == 0 {
			continue
		}
		f := d.Scale(b.k * dr / r)
		forces[b.p1] = forces[b.p1].Add(f)
		forces[b.p2] = forces[b.p2].Sub(f)
	}
	return energy
}
