// Package rpmd implements ring polymer molecular dynamics: numCopies
// replicas of a system joined into a ring by harmonic springs and
// thermostatted with PILE. The integrator owns the stepping protocol; the
// platform kernel owns every per-copy buffer and all the arithmetic.
package rpmd

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/constraints"
	"github.com/san-kum/ringmd/internal/engine"
	"github.com/san-kum/ringmd/internal/mm"
)

// Defaults used by the CLI and by callers with no better choice: friction
// in 1/ps and step size in ps.
const (
	DefaultFriction = 1.0
	DefaultStepSize = 0.001
)

type Integrator struct {
	numCopies           int
	temperature         float64
	friction            float64
	stepSize            float64
	constraintTolerance float64
	randomSeed          int64

	binding engine.Binding
	kernel  compute.IntegrateRPMDStepKernel
}

// New creates an integrator for numCopies beads. Temperature is in kelvin,
// friction in 1/ps and stepSize in ps. The random seed defaults to the
// current time; call SetRandomSeed before binding for reproducible runs.
func New(numCopies int, temperature, friction, stepSize float64) (*Integrator, error) {
	if numCopies < 1 {
		return nil, fmt.Errorf("%w: numCopies must be at least 1, got %d", mm.ErrParameterBounds, numCopies)
	}
	for _, p := range []struct {
		name string
		v    float64
	}{{"temperature", temperature}, {"friction", friction}, {"stepSize", stepSize}} {
		if outOfBounds(p.v) {
			return nil, fmt.Errorf("%w: %s must be finite and non-negative, got %g", mm.ErrParameterBounds, p.name, p.v)
		}
	}
	return &Integrator{
		numCopies:           numCopies,
		temperature:         temperature,
		friction:            friction,
		stepSize:            stepSize,
		constraintTolerance: constraints.DefaultTolerance,
		randomSeed:          time.Now().UnixNano(),
	}, nil
}

// outOfBounds rejects negative, NaN and infinite scalars.
func outOfBounds(v float64) bool {
	return v < 0 || math.IsNaN(v) || math.IsInf(v, 0)
}

func (r *Integrator) NumCopies() int               { return r.numCopies }
func (r *Integrator) Temperature() float64         { return r.temperature }
func (r *Integrator) Friction() float64            { return r.friction }
func (r *Integrator) StepSize() float64            { return r.stepSize }
func (r *Integrator) ConstraintTolerance() float64 { return r.constraintTolerance }
func (r *Integrator) RandomSeed() int64            { return r.randomSeed }

func (r *Integrator) SetTemperature(t float64) error {
	if outOfBounds(t) {
		return fmt.Errorf("%w: temperature %g", mm.ErrParameterBounds, t)
	}
	r.temperature = t
	return nil
}

func (r *Integrator) SetFriction(f float64) error {
	if outOfBounds(f) {
		return fmt.Errorf("%w: friction %g", mm.ErrParameterBounds, f)
	}
	r.friction = f
	return nil
}

func (r *Integrator) SetStepSize(dt float64) error {
	if outOfBounds(dt) {
		return fmt.Errorf("%w: stepSize %g", mm.ErrParameterBounds, dt)
	}
	r.stepSize = dt
	return nil
}

func (r *Integrator) SetConstraintTolerance(tol float64) error {
	if outOfBounds(tol) {
		return fmt.Errorf("%w: constraintTolerance %g", mm.ErrParameterBounds, tol)
	}
	r.constraintTolerance = tol
	return nil
}

// SetRandomSeed takes effect the next time the integrator is bound, either
// through engine.New or Context.Reinitialize.
func (r *Integrator) SetRandomSeed(seed int64) { r.randomSeed = seed }

func (r *Integrator) KernelNames() []string {
	return []string{compute.KernelIntegrateRPMDStep}
}

func (r *Integrator) params() compute.RPMDParams {
	return compute.RPMDParams{
		StepParams: compute.StepParams{
			StepSize:            r.stepSize,
			Temperature:         r.temperature,
			Friction:            r.friction,
			ConstraintTolerance: r.constraintTolerance,
			RandomSeed:          r.randomSeed,
		},
		NumCopies: r.numCopies,
	}
}

// Bind attaches the integrator to ctx and builds a fresh kernel. Every bead
// starts from the context's current positions and velocities and the random
// stream restarts from the seed, so binding the same context again discards
// any spread between the beads. A different context is refused. The binding
// is only recorded once the kernel is ready; on error the integrator is
// still free.
func (r *Integrator) Bind(ctx *engine.Context) error {
	if err := r.binding.Check(ctx); err != nil {
		return err
	}
	r.Release()

	k, err := compute.CreateKernelAs[compute.IntegrateRPMDStepKernel](ctx.Platform(), compute.KernelIntegrateRPMDStep, ctx.Impl())
	if err != nil {
		return err
	}
	if err := k.Initialize(ctx.System(), r.params()); err != nil {
		k.Release()
		return err
	}
	impl := ctx.Impl()
	for c := 0; c < r.numCopies; c++ {
		if err := k.SetPositions(c, impl.Positions()); err != nil {
			k.Release()
			return err
		}
		if err := k.SetVelocities(c, impl.Velocities()); err != nil {
			k.Release()
			return err
		}
	}
	if err := r.binding.Attach(ctx); err != nil {
		k.Release()
		return err
	}
	r.kernel = k
	logrus.Debugf("rpmd: bound %d copies to context %s on %s (seed %d)", r.numCopies, ctx.ID(), ctx.Platform().Name(), r.randomSeed)
	return nil
}

func (r *Integrator) Release() {
	if r.kernel != nil {
		r.kernel.Release()
		r.kernel = nil
	}
}

// checkCopy validates copy against [0, numCopies).
func (r *Integrator) checkCopy(copyIdx int) error {
	if copyIdx < 0 || copyIdx >= r.numCopies {
		return &mm.InvalidCopyIndexError{Copy: copyIdx, NumCopies: r.numCopies}
	}
	return nil
}

// ready returns the bound context once the kernel exists.
func (r *Integrator) ready() (*engine.Context, error) {
	ctx, err := r.binding.Context()
	if err != nil {
		return nil, err
	}
	if r.kernel == nil {
		return nil, mm.ErrNotBound
	}
	return ctx, nil
}

// SetPositions writes the positions of one bead. Nothing changes when copy
// or the slice length is wrong.
func (r *Integrator) SetPositions(copyIdx int, pos []mm.Vec3) error {
	if err := r.checkCopy(copyIdx); err != nil {
		return err
	}
	ctx, err := r.ready()
	if err != nil {
		return err
	}
	if err := mm.CheckLength(len(pos), ctx.System().NumParticles()); err != nil {
		return err
	}
	return r.kernel.SetPositions(copyIdx, pos)
}

func (r *Integrator) SetVelocities(copyIdx int, vel []mm.Vec3) error {
	if err := r.checkCopy(copyIdx); err != nil {
		return err
	}
	ctx, err := r.ready()
	if err != nil {
		return err
	}
	if err := mm.CheckLength(len(vel), ctx.System().NumParticles()); err != nil {
		return err
	}
	return r.kernel.SetVelocities(copyIdx, vel)
}

// State flushes bead copyIdx into the context and snapshots it. Afterwards
// the context's canonical positions and velocities are that bead's.
func (r *Integrator) State(copyIdx int, mask engine.DataType) (engine.State, error) {
	if err := r.checkCopy(copyIdx); err != nil {
		return engine.State{}, err
	}
	ctx, err := r.ready()
	if err != nil {
		return engine.State{}, err
	}
	if err := r.kernel.CopyToContext(copyIdx, ctx.Impl()); err != nil {
		return engine.State{}, err
	}
	return ctx.State(mask)
}

// Step advances every bead n times. Errors from the kernel are returned as
// they are; the beads are left wherever the failing step put them.
func (r *Integrator) Step(n int) error {
	ctx, err := r.ready()
	if err != nil {
		return err
	}
	p := r.params()
	for i := 0; i < n; i++ {
		if err := ctx.UpdateContextState(); err != nil {
			return err
		}
		if _, err := ctx.CalcForcesAndEnergy(true, false); err != nil {
			return err
		}
		if err := r.kernel.Execute(ctx.Impl(), p); err != nil {
			return err
		}
	}
	return nil
}
