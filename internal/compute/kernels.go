package compute

import (
	"fmt"

	"github.com/san-kum/ringmd/internal/mm"
)

const (
	KernelCalcForcesAndEnergy   = "CalcForcesAndEnergy"
	KernelIntegrateVerletStep   = "IntegrateVerletStep"
	KernelIntegrateLangevinStep = "IntegrateLangevinStep"
	KernelIntegrateRPMDStep     = "IntegrateRPMDStep"
)

// Kernel is the opaque handle a platform returns. Callers assert it to the
// contract matching the name they asked for.
type Kernel interface {
	Name() string
	Release()
}

// ContextImpl is the view of a live context that kernels operate on. The
// returned slices are the context's own storage; kernels mutate them in place.
type ContextImpl interface {
	ID() string
	System() *mm.System
	Time() float64
	SetTime(t float64)
	Positions() []mm.Vec3
	Velocities() []mm.Vec3
	Forces() []mm.Vec3
	Parameters() map[string]float64
	// ForceFieldVersion changes whenever something other than the positions
	// may have changed the forces: a parameter write, a pre-step hook or a
	// reinitialize. Kernels that cache forces compare it before reuse.
	ForceFieldVersion() uint64
	CalcForcesAndEnergy(wantForces, wantEnergy bool) (float64, error)
}

// StepParams are the scalar settings an integrator hands to its step kernel.
type StepParams struct {
	StepSize            float64
	Temperature         float64
	Friction            float64
	ConstraintTolerance float64
	RandomSeed          int64
}

type RPMDParams struct {
	StepParams
	NumCopies int
}

type CalcForcesAndEnergyKernel interface {
	Kernel
	Initialize(sys *mm.System) error
	// Execute overwrites ctx.Forces() when wantForces is set and returns the
	// potential energy when wantEnergy is set.
	Execute(ctx ContextImpl, wantForces, wantEnergy bool) (float64, error)
}

type IntegrateVerletStepKernel interface {
	Kernel
	Initialize(sys *mm.System, p StepParams) error
	Execute(ctx ContextImpl, p StepParams) error
}

type IntegrateLangevinStepKernel interface {
	Kernel
	Initialize(sys *mm.System, p StepParams) error
	Execute(ctx ContextImpl, p StepParams) error
}

// IntegrateRPMDStepKernel owns the per-copy positions and velocities of a
// ring polymer. Copy indices are validated by the caller.
type IntegrateRPMDStepKernel interface {
	Kernel
	Initialize(sys *mm.System, p RPMDParams) error
	// Execute advances every copy by one step. Forces for the current
	// configuration must already be available through ctx.
	Execute(ctx ContextImpl, p RPMDParams) error
	SetPositions(copy int, pos []mm.Vec3) error
	SetVelocities(copy int, vel []mm.Vec3) error
	// CopyToContext writes one copy's positions and velocities into ctx.
	CopyToContext(copy int, ctx ContextImpl) error
}

// CreateKernelAs asks p for the kernel registered under name and asserts it
// to the contract T. A platform that hands back the wrong type gets a
// KernelTypeMismatchError; the kernel is released first.
func CreateKernelAs[T Kernel](p Platform, name string, ctx ContextImpl) (T, error) {
	var zero T
	k, err := p.CreateKernel(name, ctx)
	if err != nil {
		return zero, err
	}
	typed, ok := k.(T)
	if !ok {
		k.Release()
		return zero, &mm.KernelTypeMismatchError{Kernel: name, Got: fmt.Sprintf("%T", k)}
	}
	return typed, nil
}
