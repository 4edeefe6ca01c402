package reference

import (
	"math"
	"math/rand"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/constraints"
	"github.com/san-kum/ringmd/internal/mm"
)

// RPMDKernel propagates a ring polymer with the PILE thermostat. Normal
// modes are obtained with a unitary discrete Fourier transform over the copy
// index of each particle coordinate.
type RPMDKernel struct {
	beads       *compute.Beads
	invMass     []float64
	cons        []mm.Constraint
	solver      *constraints.Solver
	rng         *rand.Rand
	forcesValid bool
	forcesAt    uint64
	steps       int

	old, unconstrained [][]mm.Vec3
	q, v               []float64
}

func NewRPMDKernel() *RPMDKernel {
	return &RPMDKernel{}
}

func (k *RPMDKernel) Name() string { return compute.KernelIntegrateRPMDStep }

func (k *RPMDKernel) Release() {
	k.beads, k.old, k.unconstrained = nil, nil, nil
	k.rng = nil
}

func (k *RPMDKernel) Initialize(sys *mm.System, p compute.RPMDParams) error {
	n, np := p.NumCopies, sys.NumParticles()
	k.beads = compute.NewBeads(n, np)
	k.invMass = sys.InverseMasses()
	k.cons = sys.Constraints()
	k.solver = constraints.New(p.ConstraintTolerance)
	k.rng = rand.New(rand.NewSource(p.RandomSeed))
	k.forcesValid = false
	k.steps = 0
	k.q = make([]float64, n)
	k.v = make([]float64, n)
	if len(k.cons) > 0 {
		k.old = compute.NewBeads(n, np).Positions
		k.unconstrained = compute.NewBeads(n, np).Positions
	}
	return nil
}

func (k *RPMDKernel) SetPositions(copyIdx int, pos []mm.Vec3) error {
	k.beads.SetPositions(copyIdx, pos)
	k.forcesValid = false
	return nil
}

func (k *RPMDKernel) SetVelocities(copyIdx int, vel []mm.Vec3) error {
	k.beads.SetVelocities(copyIdx, vel)
	return nil
}

func (k *RPMDKernel) CopyToContext(copyIdx int, ctx compute.ContextImpl) error {
	k.beads.CopyToContext(copyIdx, ctx)
	return nil
}

func (k *RPMDKernel) Execute(ctx compute.ContextImpl, p compute.RPMDParams) error {
	if !k.forcesValid || k.forcesAt != ctx.ForceFieldVersion() {
		if err := k.computeForces(ctx); err != nil {
			return err
		}
	}
	dt := p.StepSize
	half := 0.5 * dt

	k.applyThermostat(p, half)
	k.beads.Kick(k.invMass, half)

	if len(k.cons) > 0 {
		for c := range k.old {
			copy(k.old[c], k.beads.Positions[c])
		}
	}
	k.freeRingPolymer(p, dt)
	if err := k.constrainPositions(ctx, dt); err != nil {
		return err
	}

	if err := k.computeForces(ctx); err != nil {
		return err
	}
	k.beads.Kick(k.invMass, half)
	k.applyThermostat(p, half)
	if err := k.constrainVelocities(ctx); err != nil {
		return err
	}

	k.steps++
	ctx.SetTime(ctx.Time() + dt)
	if !k.beads.Valid() {
		return &mm.SimulationError{Step: k.steps, Time: ctx.Time(), Wrapped: mm.ErrNumericalDivergence}
	}
	return nil
}

// computeForces loads each copy into the context in turn and stores the
// resulting forces.
func (k *RPMDKernel) computeForces(ctx compute.ContextImpl) error {
	pos := ctx.Positions()
	for c := range k.beads.Positions {
		copy(pos, k.beads.Positions[c])
		if _, err := ctx.CalcForcesAndEnergy(true, false); err != nil {
			return err
		}
		copy(k.beads.Forces[c], ctx.Forces())
	}
	k.forcesValid = true
	k.forcesAt = ctx.ForceFieldVersion()
	return nil
}

func (k *RPMDKernel) constrainPositions(ctx compute.ContextImpl, dt float64) error {
	if len(k.cons) == 0 {
		return nil
	}
	for c := range k.beads.Positions {
		pos, vel := k.beads.Positions[c], k.beads.Velocities[c]
		copy(k.unconstrained[c], pos)
		if err := k.solver.ApplyPositions(k.old[c], pos, k.invMass, k.cons); err != nil {
			return &mm.SimulationError{Step: k.steps, Time: ctx.Time(), Wrapped: err}
		}
		for i := range pos {
			if k.invMass[i] == 0 {
				continue
			}
			vel[i] = vel[i].Add(pos[i].Sub(k.unconstrained[c][i]).Scale(1 / dt))
		}
	}
	return nil
}

func (k *RPMDKernel) constrainVelocities(ctx compute.ContextImpl) error {
	if len(k.cons) == 0 {
		return nil
	}
	for c := range k.beads.Positions {
		if err := k.solver.ApplyVelocities(k.beads.Positions[c], k.beads.Velocities[c], k.invMass, k.cons); err != nil {
			return &mm.SimulationError{Step: k.steps, Time: ctx.Time(), Wrapped: err}
		}
	}
	return nil
}

// applyThermostat is one PILE step of length dt: the centroid mode feels the
// user friction, internal mode k feels 2*w_k.
func (k *RPMDKernel) applyThermostat(p compute.RPMDParams, dt float64) {
	n := p.NumCopies
	nkT := float64(n) * mm.Boltzmann * p.Temperature
	twown := 2 * compute.RingFrequency(n, p.Temperature)
	c1_0 := math.Exp(-dt * p.Friction)
	c2_0 := math.Sqrt(1 - c1_0*c1_0)

	for i, im := range k.invMass {
		if im == 0 {
			continue
		}
		sigma := math.Sqrt(nkT * im)
		for comp := 0; comp < 3; comp++ {
			if n == 1 {
				v := &k.beads.Velocities[0][i][comp]
				*v = *v*c1_0 + c2_0*sigma*k.rng.NormFloat64()
				continue
			}
			for c := 0; c < n; c++ {
				k.v[c] = k.beads.Velocities[c][i][comp]
			}
			modes := toNormalModes(k.v)
			modes[0] = modes[0]*complex(c1_0, 0) + complex(c2_0*sigma*k.rng.NormFloat64(), 0)
			for m := 1; m <= n/2; m++ {
				wk := twown * math.Sin(float64(m)*math.Pi/float64(n))
				c1 := math.Exp(-2 * wk * dt)
				c2 := math.Sqrt((1 - c1*c1) / 2)
				if 2*m == n {
					c2 *= math.Sqrt2
				}
				r1 := c2 * sigma * k.rng.NormFloat64()
				r2 := 0.0
				if 2*m < n {
					r2 = c2 * sigma * k.rng.NormFloat64()
				}
				modes[m] = modes[m]*complex(c1, 0) + complex(r1, r2)
				if 2*m != n {
					modes[n-m] = modes[n-m]*complex(c1, 0) + complex(r1, -r2)
				}
			}
			fromNormalModes(modes, k.v)
			for c := 0; c < n; c++ {
				k.beads.Velocities[c][i][comp] = k.v[c]
			}
		}
	}
}

// freeRingPolymer evolves every mode exactly under the ring polymer springs
// alone for dt.
func (k *RPMDKernel) freeRingPolymer(p compute.RPMDParams, dt float64) {
	n := p.NumCopies
	if n == 1 {
		pos, vel := k.beads.Positions[0], k.beads.Velocities[0]
		for i := range pos {
			if k.invMass[i] == 0 {
				continue
			}
			pos[i] = pos[i].Add(vel[i].Scale(dt))
		}
		return
	}

	twown := 2 * compute.RingFrequency(n, p.Temperature)
	for i, im := range k.invMass {
		if im == 0 {
			continue
		}
		for comp := 0; comp < 3; comp++ {
			for c := 0; c < n; c++ {
				k.q[c] = k.beads.Positions[c][i][comp]
				k.v[c] = k.beads.Velocities[c][i][comp]
			}
			qm := toNormalModes(k.q)
			vm := toNormalModes(k.v)
			for m := 0; m < n; m++ {
				wk := twown * math.Sin(float64(m)*math.Pi/float64(n))
				qm[m], vm[m] = propagateMode(qm[m], vm[m], wk, dt)
			}
			fromNormalModes(qm, k.q)
			fromNormalModes(vm, k.v)
			for c := 0; c < n; c++ {
				k.beads.Positions[c][i][comp] = k.q[c]
				k.beads.Velocities[c][i][comp] = k.v[c]
			}
		}
	}
}

// propagateMode advances a harmonic mode of frequency wk; wk == 0 is free flight.
func propagateMode(q, v complex128, wk, dt float64) (complex128, complex128) {
	if wk == 0 {
		return q + v*complex(dt, 0), v
	}
	cw, sw := math.Cos(wk*dt), math.Sin(wk*dt)
	nq := q*complex(cw, 0) + v*complex(sw/wk, 0)
	nv := -q*complex(wk*sw, 0) + v*complex(cw, 0)
	return nq, nv
}

func toNormalModes(x []float64) []complex128 {
	modes := fft.FFTReal(x)
	scale := complex(1/math.Sqrt(float64(len(x))), 0)
	for i := range modes {
		modes[i] *= scale
	}
	return modes
}

func fromNormalModes(modes []complex128, out []float64) {
	x := fft.IFFT(modes)
	scale := math.Sqrt(float64(len(out)))
	for i := range out {
		out[i] = real(x[i]) * scale
	}
}
