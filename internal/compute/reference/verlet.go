package reference

import (
	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/constraints"
	"github.com/san-kum/ringmd/internal/mm"
)

// VerletKernel advances the context with the leapfrog scheme
// v(t+dt/2) = v(t-dt/2) + a(t) dt, x(t+dt) = x(t) + v(t+dt/2) dt.
type VerletKernel struct {
	invMass []float64
	cons    []mm.Constraint
	solver  *constraints.Solver
	old     []mm.Vec3
	steps   int
}

func NewVerletKernel() *VerletKernel {
	return &VerletKernel{}
}

func (k *VerletKernel) Name() string { return compute.KernelIntegrateVerletStep }
func (k *VerletKernel) Release()     { k.old = nil }

func (k *VerletKernel) Initialize(sys *mm.System, p compute.StepParams) error {
	k.invMass = sys.InverseMasses()
	k.cons = sys.Constraints()
	k.solver = constraints.New(p.ConstraintTolerance)
	k.old = make([]mm.Vec3, sys.NumParticles())
	k.steps = 0
	return nil
}

func (k *VerletKernel) Execute(ctx compute.ContextImpl, p compute.StepParams) error {
	dt := p.StepSize
	pos, vel, f := ctx.Positions(), ctx.Velocities(), ctx.Forces()
	copy(k.old, pos)

	for i := range pos {
		if k.invMass[i] == 0 {
			continue
		}
		vel[i] = vel[i].Add(f[i].Scale(dt * k.invMass[i]))
		pos[i] = pos[i].Add(vel[i].Scale(dt))
	}
	return finishLeapfrog(ctx, k.solver, k.old, k.invMass, k.cons, dt, &k.steps)
}

// finishLeapfrog applies constraints, rebuilds constrained velocities from
// the displacement and advances the clock.
func finishLeapfrog(ctx compute.ContextImpl, solver *constraints.Solver, old []mm.Vec3, invMass []float64, cons []mm.Constraint, dt float64, steps *int) error {
	pos, vel := ctx.Positions(), ctx.Velocities()
	if len(cons) > 0 {
		if err := solver.ApplyPositions(old, pos, invMass, cons); err != nil {
			return &mm.SimulationError{Step: *steps, Time: ctx.Time(), Wrapped: err}
		}
		for i := range pos {
			if invMass[i] == 0 {
				continue
			}
			vel[i] = pos[i].Sub(old[i]).Scale(1 / dt)
		}
	}
	*steps++
	ctx.SetTime(ctx.Time() + dt)
	if !mm.AllValid(pos) || !mm.AllValid(vel) {
		return &mm.SimulationError{Step: *steps, Time: ctx.Time(), Wrapped: mm.ErrNumericalDivergence}
	}
	return nil
}
