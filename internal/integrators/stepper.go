// Package integrators holds the classical baselines RPMD is compared
// against: leapfrog Verlet and leapfrog Langevin.
package integrators

import (
	"math"

	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/engine"
	"github.com/san-kum/ringmd/internal/mm"
)

// outOfBounds rejects negative, NaN and infinite scalars.
func outOfBounds(v float64) bool {
	return v < 0 || math.IsNaN(v) || math.IsInf(v, 0)
}

// stepKernel is the shape shared by the Verlet and Langevin step kernels.
type stepKernel interface {
	compute.Kernel
	Initialize(sys *mm.System, p compute.StepParams) error
	Execute(ctx compute.ContextImpl, p compute.StepParams) error
}

type kernelFactory func(p compute.Platform, ctx compute.ContextImpl) (stepKernel, error)

// stepper is the binding and stepping protocol of a single-copy integrator.
type stepper struct {
	binding engine.Binding
	kernel  stepKernel
}

func (s *stepper) bind(ctx *engine.Context, create kernelFactory, p compute.StepParams) error {
	if err := s.binding.Check(ctx); err != nil {
		return err
	}
	s.Release()
	k, err := create(ctx.Platform(), ctx.Impl())
	if err != nil {
		return err
	}
	if err := k.Initialize(ctx.System(), p); err != nil {
		k.Release()
		return err
	}
	if err := s.binding.Attach(ctx); err != nil {
		k.Release()
		return err
	}
	s.kernel = k
	return nil
}

func (s *stepper) step(n int, p compute.StepParams) error {
	ctx, err := s.binding.Context()
	if err != nil {
		return err
	}
	if s.kernel == nil {
		return mm.ErrNotBound
	}
	for i := 0; i < n; i++ {
		if err := ctx.UpdateContextState(); err != nil {
			return err
		}
		if _, err := ctx.CalcForcesAndEnergy(true, false); err != nil {
			return err
		}
		if err := s.kernel.Execute(ctx.Impl(), p); err != nil {
			return err
		}
	}
	return nil
}

func (s *stepper) Release() {
	if s.kernel != nil {
		s.kernel.Release()
		s.kernel = nil
	}
}
