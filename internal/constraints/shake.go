// Package constraints projects positions and velocities onto fixed-distance
// constraints with SHAKE and RATTLE.
package constraints

import (
	"fmt"
	"math"

	"github.com/san-kum/ringmd/internal/mm"
)

const (
	DefaultTolerance     = 1e-4
	DefaultMaxIterations = 150
)

type Solver struct {
	tolerance     float64
	maxIterations int
}

func New(tolerance float64) *Solver {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Solver{tolerance: tolerance, maxIterations: DefaultMaxIterations}
}

func (s *Solver) Tolerance() float64 { return s.tolerance }

// ApplyPositions moves pos so every constraint holds to within the relative
// tolerance. ref holds the positions before the unconstrained update and
// gives the direction of each correction.
func (s *Solver) ApplyPositions(ref, pos []mm.Vec3, invMass []float64, cons []mm.Constraint) error {
	if len(cons) == 0 {
		return nil
	}
	for iter := 0; iter < s.maxIterations; iter++ {
		converged := true
		for _, c := range cons {
			im1, im2 := invMass[c.P1], invMass[c.P2]
			d2 := c.Distance * c.Distance
			r := pos[c.P1].Sub(pos[c.P2])
			diff := d2 - r.Dot(r)
			if math.Abs(diff) <= 2*s.tolerance*d2 {
				continue
			}
			converged = false

			rRef := ref[c.P1].Sub(ref[c.P2])
			dot := rRef.Dot(r)
			if dot < 1e-12*d2 {
				return fmt.Errorf("%w: constraint %d-%d rotated past 90 degrees", mm.ErrConstraintNonConvergence, c.P1, c.P2)
			}
			g := diff / (2 * (im1 + im2) * dot)
			pos[c.P1] = pos[c.P1].Add(rRef.Scale(g * im1))
			pos[c.P2] = pos[c.P2].Sub(rRef.Scale(g * im2))
		}
		if converged {
			return nil
		}
	}
	return fmt.Errorf("%w: %d iterations", mm.ErrConstraintNonConvergence, s.maxIterations)
}

// ApplyVelocities removes the velocity components along every constraint.
func (s *Solver) ApplyVelocities(pos, vel []mm.Vec3, invMass []float64, cons []mm.Constraint) error {
	if len(cons) == 0 {
		return nil
	}
	for iter := 0; iter < s.maxIterations; iter++ {
		converged := true
		for _, c := range cons {
			im1, im2 := invMass[c.P1], invMass[c.P2]
			r := pos[c.P1].Sub(pos[c.P2])
			r2 := r.Dot(r)
			dot := r.Dot(vel[c.P1].Sub(vel[c.P2]))
			if math.Abs(dot) <= s.tolerance*r2 {
				continue
			}
			converged = false

			k := -dot / ((im1 + im2) * r2)
			vel[c.P1] = vel[c.P1].Add(r.Scale(k * im1))
			vel[c.P2] = vel[c.P2].Sub(r.Scale(k * im2))
		}
		if converged {
			return nil
		}
	}
	return fmt.Errorf("%w: velocities after %d iterations", mm.ErrConstraintNonConvergence, s.maxIterations)
}
