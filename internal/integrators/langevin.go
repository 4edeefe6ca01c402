package integrators

import (
	"fmt"
	"time"

	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/constraints"
	"github.com/san-kum/ringmd/internal/engine"
	"github.com/san-kum/ringmd/internal/mm"
)

// Langevin is leapfrog Langevin dynamics at a fixed temperature (K) and
// friction (1/ps).
type Langevin struct {
	stepper
	temperature         float64
	friction            float64
	stepSize            float64
	constraintTolerance float64
	randomSeed          int64
}

func NewLangevin(temperature, friction, stepSize float64) (*Langevin, error) {
	if outOfBounds(temperature) || outOfBounds(friction) || outOfBounds(stepSize) {
		return nil, fmt.Errorf("%w: temperature %g, friction %g, stepSize %g",
			mm.ErrParameterBounds, temperature, friction, stepSize)
	}
	return &Langevin{
		temperature:         temperature,
		friction:            friction,
		stepSize:            stepSize,
		constraintTolerance: constraints.DefaultTolerance,
		randomSeed:          time.Now().UnixNano(),
	}, nil
}

func (l *Langevin) Temperature() float64 { return l.temperature }
func (l *Langevin) Friction() float64    { return l.friction }
func (l *Langevin) StepSize() float64    { return l.stepSize }
func (l *Langevin) RandomSeed() int64    { return l.randomSeed }

// SetRandomSeed applies from the next bind.
func (l *Langevin) SetRandomSeed(seed int64)           { l.randomSeed = seed }
func (l *Langevin) SetConstraintTolerance(tol float64) { l.constraintTolerance = tol }

func (l *Langevin) KernelNames() []string {
	return []string{compute.KernelIntegrateLangevinStep}
}

func (l *Langevin) params() compute.StepParams {
	return compute.StepParams{
		StepSize:            l.stepSize,
		Temperature:         l.temperature,
		Friction:            l.friction,
		ConstraintTolerance: l.constraintTolerance,
		RandomSeed:          l.randomSeed,
	}
}

func (l *Langevin) Bind(ctx *engine.Context) error {
	return l.bind(ctx, func(p compute.Platform, impl compute.ContextImpl) (stepKernel, error) {
		return compute.CreateKernelAs[compute.IntegrateLangevinStepKernel](p, compute.KernelIntegrateLangevinStep, impl)
	}, l.params())
}

func (l *Langevin) Step(n int) error { return l.step(n, l.params()) }
