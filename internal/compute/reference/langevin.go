package reference

import (
	"math"
	"math/rand"

	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/constraints"
	"github.com/san-kum/ringmd/internal/mm"
)

// LangevinKernel is the leapfrog Langevin scheme
// v' = c1 v + (1-c1)/gamma a + sqrt(kT/m (1-c1^2)) R, x' = x + v' dt.
type LangevinKernel struct {
	invMass []float64
	cons    []mm.Constraint
	solver  *constraints.Solver
	old     []mm.Vec3
	rng     *rand.Rand
	steps   int
}

func NewLangevinKernel() *LangevinKernel {
	return &LangevinKernel{}
}

func (k *LangevinKernel) Name() string { return compute.KernelIntegrateLangevinStep }
func (k *LangevinKernel) Release()     { k.old, k.rng = nil, nil }

func (k *LangevinKernel) Initialize(sys *mm.System, p compute.StepParams) error {
	k.invMass = sys.InverseMasses()
	k.cons = sys.Constraints()
	k.solver = constraints.New(p.ConstraintTolerance)
	k.old = make([]mm.Vec3, sys.NumParticles())
	k.rng = rand.New(rand.NewSource(p.RandomSeed))
	k.steps = 0
	return nil
}

func (k *LangevinKernel) Execute(ctx compute.ContextImpl, p compute.StepParams) error {
	dt := p.StepSize
	c1 := math.Exp(-p.Friction * dt)
	forceScale := dt
	if p.Friction > 0 {
		forceScale = (1 - c1) / p.Friction
	}
	kT := mm.Boltzmann * p.Temperature

	pos, vel, f := ctx.Positions(), ctx.Velocities(), ctx.Forces()
	copy(k.old, pos)

	for i := range pos {
		if k.invMass[i] == 0 {
			continue
		}
		noise := math.Sqrt(kT * k.invMass[i] * (1 - c1*c1))
		for c := 0; c < 3; c++ {
			vel[i][c] = c1*vel[i][c] + forceScale*f[i][c]*k.invMass[i] + noise*k.rng.NormFloat64()
		}
		pos[i] = pos[i].Add(vel[i].Scale(dt))
	}
	return finishLeapfrog(ctx, k.solver, k.old, k.invMass, k.cons, dt, &k.steps)
}
