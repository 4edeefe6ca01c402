package cpu

import (
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/constraints"
	"github.com/san-kum/ringmd/internal/mm"
)

// RPMDKernel keeps the ring polymer as dense copies x coordinates matrices and
// moves between bead and normal-mode space with a real orthonormal
// transform. Every row of the mode matrix is one mode; column j holds
// coordinate j%3 of particle j/3.
type RPMDKernel struct {
	workers     int
	beads       *compute.Beads
	invMass     []float64
	cons        []mm.Constraint
	solver      *constraints.Solver
	rng         *rand.Rand
	forces      []mm.Force
	forcesValid bool
	forcesAt    uint64
	steps       int

	transform  *mat.Dense
	freq       []float64
	x, v       *mat.Dense
	qm, vm     *mat.Dense
	old, uncon [][]mm.Vec3
}

func NewRPMDKernel(workers int) *RPMDKernel {
	if workers < 1 {
		workers = 1
	}
	return &RPMDKernel{workers: workers}
}

func (k *RPMDKernel) Name() string { return compute.KernelIntegrateRPMDStep }

func (k *RPMDKernel) Release() {
	k.beads, k.transform = nil, nil
	k.x, k.v, k.qm, k.vm = nil, nil, nil, nil
	k.rng = nil
}

func (k *RPMDKernel) Initialize(sys *mm.System, p compute.RPMDParams) error {
	n, np := p.NumCopies, sys.NumParticles()
	k.beads = compute.NewBeads(n, np)
	k.invMass = sys.InverseMasses()
	k.cons = sys.Constraints()
	k.forces = sys.Forces()
	k.solver = constraints.New(p.ConstraintTolerance)
	k.rng = rand.New(rand.NewSource(p.RandomSeed))
	k.forcesValid = false
	k.steps = 0

	k.transform = NormalModeMatrix(n)
	k.freq = make([]float64, n)
	if np == 0 {
		// mat.NewDense panics on zero-width matrices.
		return nil
	}
	k.x = mat.NewDense(n, 3*np, nil)
	k.v = mat.NewDense(n, 3*np, nil)
	k.qm = mat.NewDense(n, 3*np, nil)
	k.vm = mat.NewDense(n, 3*np, nil)
	if len(k.cons) > 0 {
		k.old = compute.NewBeads(n, np).Positions
		k.uncon = compute.NewBeads(n, np).Positions
	}
	return nil
}

// NormalModeMatrix returns the n x n orthogonal matrix whose columns are the
// real normal modes of an n-bead ring: the centroid, cosine and sine pairs,
// and the alternating mode when n is even.
func NormalModeMatrix(n int) *mat.Dense {
	c := mat.NewDense(n, n, nil)
	inv := 1 / math.Sqrt(float64(n))
	norm := math.Sqrt(2 / float64(n))
	for j := 0; j < n; j++ {
		c.Set(j, 0, inv)
		for m := 1; 2*m < n; m++ {
			arg := 2 * math.Pi * float64(j*m) / float64(n)
			c.Set(j, m, norm*math.Cos(arg))
			c.Set(j, n-m, norm*math.Sin(arg))
		}
		if n%2 == 0 {
			sign := 1.0
			if j%2 == 1 {
				sign = -1
			}
			c.Set(j, n/2, sign*inv)
		}
	}
	return c
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
	n := p.NumCopies
	dt := p.StepSize
	half := 0.5 * dt
	twown := 2 * compute.RingFrequency(n, p.Temperature)
	for m := range k.freq {
		k.freq[m] = twown * math.Sin(float64(m)*math.Pi/float64(n))
	}

	k.applyThermostat(p, half)
	k.beads.Kick(k.invMass, half)
	if len(k.cons) > 0 {
		for c := range k.old {
			copy(k.old[c], k.beads.Positions[c])
		}
	}
	k.freeRingPolymer(dt)
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

// computeForces evaluates every copy concurrently straight from the bead
// arrays; the context only supplies the global parameters.
func (k *RPMDKernel) computeForces(ctx compute.ContextImpl) error {
	params := ctx.Parameters()
	var g errgroup.Group
	g.SetLimit(k.workers)
	for c := range k.beads.Positions {
		c := c
		g.Go(func() error {
			pos, out := k.beads.Positions[c], k.beads.Forces[c]
			mm.ZeroVecs(out)
			for _, f := range k.forces {
				f.Evaluate(pos, params, out)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	k.forcesValid = true
	k.forcesAt = ctx.ForceFieldVersion()
	return nil
}

func load(dst *mat.Dense, src [][]mm.Vec3) {
	for c, row := range src {
		for i, v := range row {
			dst.Set(c, 3*i, v[0])
			dst.Set(c, 3*i+1, v[1])
			dst.Set(c, 3*i+2, v[2])
		}
	}
}

func (k *RPMDKernel) store(dst [][]mm.Vec3, src *mat.Dense) {
	for c, row := range dst {
		for i := range row {
			if k.invMass[i] == 0 {
				continue
			}
			row[i] = mm.Vec3{src.At(c, 3*i), src.At(c, 3*i+1), src.At(c, 3*i+2)}
		}
	}
}

func (k *RPMDKernel) applyThermostat(p compute.RPMDParams, dt float64) {
	if k.v == nil {
		return
	}
	nkT := float64(p.NumCopies) * mm.Boltzmann * p.Temperature
	load(k.v, k.beads.Velocities)
	k.vm.Mul(k.transform.T(), k.v)

	_, cols := k.vm.Dims()
	for m, w := range k.freq {
		c1 := math.Exp(-2 * w * dt)
		if m == 0 {
			c1 = math.Exp(-p.Friction * dt)
		}
		c2 := math.Sqrt(1 - c1*c1)
		for j := 0; j < cols; j++ {
			im := k.invMass[j/3]
			if im == 0 {
				continue
			}
			noise := c2 * math.Sqrt(nkT*im) * k.rng.NormFloat64()
			k.vm.Set(m, j, c1*k.vm.At(m, j)+noise)
		}
	}

	k.v.Mul(k.transform, k.vm)
	k.store(k.beads.Velocities, k.v)
}

func (k *RPMDKernel) freeRingPolymer(dt float64) {
	if k.x == nil {
		return
	}
	load(k.x, k.beads.Positions)
	load(k.v, k.beads.Velocities)
	k.qm.Mul(k.transform.T(), k.x)
	k.vm.Mul(k.transform.T(), k.v)

	_, cols := k.qm.Dims()
	for m, w := range k.freq {
		cw, sw := 1.0, w*dt
		if w != 0 {
			cw, sw = math.Cos(w*dt), math.Sin(w*dt)
		}
		for j := 0; j < cols; j++ {
			q, v := k.qm.At(m, j), k.vm.At(m, j)
			if w == 0 {
				k.qm.Set(m, j, q+v*dt)
				continue
			}
			k.qm.Set(m, j, q*cw+v*sw/w)
			k.vm.Set(m, j, -q*w*sw+v*cw)
		}
	}

	k.x.Mul(k.transform, k.qm)
	k.v.Mul(k.transform, k.vm)
	k.store(k.beads.Positions, k.x)
	k.store(k.beads.Velocities, k.v)
}

func (k *RPMDKernel) constrainPositions(ctx compute.ContextImpl, dt float64) error {
	if len(k.cons) == 0 {
		return nil
	}
	for c := range k.beads.Positions {
		pos, vel := k.beads.Positions[c], k.beads.Velocities[c]
		copy(k.uncon[c], pos)
		if err := k.solver.ApplyPositions(k.old[c], pos, k.invMass, k.cons); err != nil {
			return &mm.SimulationError{Step: k.steps, Time: ctx.Time(), Wrapped: err}
		}
		for i := range pos {
			if k.invMass[i] == 0 {
				continue
			}
			vel[i] = vel[i].Add(pos[i].Sub(k.uncon[c][i]).Scale(1 / dt))
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
