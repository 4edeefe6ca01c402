package integrators

import (
	"fmt"

	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/constraints"
	"github.com/san-kum/ringmd/internal/engine"
	"github.com/san-kum/ringmd/internal/mm"
)

// Verlet is the leapfrog scheme. Velocities in the context lag positions by
// half a step.
type Verlet struct {
	stepper
	stepSize            float64
	constraintTolerance float64
}

func NewVerlet(stepSize float64) (*Verlet, error) {
	if outOfBounds(stepSize) {
		return nil, fmt.Errorf("%w: stepSize %g", mm.ErrParameterBounds, stepSize)
	}
	return &Verlet{stepSize: stepSize, constraintTolerance: constraints.DefaultTolerance}, nil
}

func (v *Verlet) StepSize() float64            { return v.stepSize }
func (v *Verlet) ConstraintTolerance() float64 { return v.constraintTolerance }

func (v *Verlet) SetConstraintTolerance(tol float64) { v.constraintTolerance = tol }

func (v *Verlet) KernelNames() []string {
	return []string{compute.KernelIntegrateVerletStep}
}

func (v *Verlet) params() compute.StepParams {
	return compute.StepParams{StepSize: v.stepSize, ConstraintTolerance: v.constraintTolerance}
}

func (v *Verlet) Bind(ctx *engine.Context) error {
	return v.bind(ctx, func(p compute.Platform, impl compute.ContextImpl) (stepKernel, error) {
		return compute.CreateKernelAs[compute.IntegrateVerletStepKernel](p, compute.KernelIntegrateVerletStep, impl)
	}, v.params())
}

func (v *Verlet) Step(n int) error { return v.step(n, v.params()) }
