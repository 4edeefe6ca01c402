// Package experiment turns a run configuration into a bound context, steps
// it and samples observables along the way.
package experiment

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/compute/builtin"
	"github.com/san-kum/ringmd/internal/config"
	"github.com/san-kum/ringmd/internal/engine"
	"github.com/san-kum/ringmd/internal/metrics"
	"github.com/san-kum/ringmd/internal/mm"
	"github.com/san-kum/ringmd/internal/models"
	"github.com/san-kum/ringmd/internal/rpmd"
)

// Sample is one row of a run's time series. Energies are per bead.
type Sample struct {
	Time      float64 `json:"time"`
	Kinetic   float64 `json:"kinetic"`
	Potential float64 `json:"potential"`
	Spread    float64 `json:"spread"`
}

type Result struct {
	Config     config.Config      `json:"config"`
	Platform   string             `json:"platform"`
	Seed       int64              `json:"seed"`
	StepsTaken int                `json:"steps_taken"`
	Samples    []Sample           `json:"samples"`
	Metrics    map[string]float64 `json:"metrics"`
}

// beadReader reads back one copy of a run. rpmd.Integrator satisfies it
// directly; classical runs go through singleCopy.
type beadReader interface {
	NumCopies() int
	State(copyIdx int, mask engine.DataType) (engine.State, error)
}

type singleCopy struct{ ctx *engine.Context }

func (s singleCopy) NumCopies() int { return 1 }

func (s singleCopy) State(copyIdx int, mask engine.DataType) (engine.State, error) {
	if copyIdx != 0 {
		return engine.State{}, &mm.InvalidCopyIndexError{Copy: copyIdx, NumCopies: 1}
	}
	return s.ctx.State(mask)
}

// Runner holds what Run needs besides the configuration.
type Runner struct {
	integrators *Registry
	platforms   *compute.Registry
}

func NewRunner() *Runner {
	return &Runner{integrators: NewRegistry(), platforms: builtin.Registry()}
}

// Run executes cfg with the default runner.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	return NewRunner().Run(ctx, cfg)
}

// Run steps the configured system in chunks of cfg.SampleEvery, sampling
// after each chunk. Cancellation is checked between chunks; the partial
// result is returned with the context's error.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	run := *cfg
	if run.Seed == 0 {
		run.Seed = time.Now().UnixNano()
	}

	model, err := models.Build(run.Model, run.Params)
	if err != nil {
		return nil, err
	}
	integ, err := r.integrators.GetIntegrator(&run)
	if err != nil {
		return nil, err
	}
	opts := []engine.Option{engine.WithRegistry(r.platforms)}
	if run.Platform != "" {
		p, err := r.platforms.Get(run.Platform)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithPlatform(p))
	}
	sim, err := engine.New(model.System, integ, opts...)
	if err != nil {
		return nil, err
	}
	defer sim.Close()

	if err := sim.SetPositions(model.Positions); err != nil {
		return nil, err
	}
	if err := sim.SetVelocities(thermalVelocities(model.System, run.Temperature, run.Seed)); err != nil {
		return nil, err
	}
	// rebinding loads the starting state into every bead
	if err := sim.Reinitialize(); err != nil {
		return nil, err
	}

	var reader beadReader = singleCopy{sim}
	if ri, ok := integ.(*rpmd.Integrator); ok {
		reader = ri
	}

	ms := metrics.Standard(model.System)
	result := &Result{
		Config:   run,
		Platform: sim.Platform().Name(),
		Seed:     run.Seed,
		Metrics:  make(map[string]float64),
	}
	logrus.Infof("running %s with %s (%d copies) on %s for %d steps",
		run.Model, run.Integrator, reader.NumCopies(), result.Platform, run.Steps)

	// non-finite values are dropped so the result stays JSON encodable
	finish := func() {
		for _, m := range ms {
			if v := m.Value(); !math.IsNaN(v) && !math.IsInf(v, 0) {
				result.Metrics[m.Name()] = v
			}
		}
	}

	if err := r.observe(reader, ms, result); err != nil {
		return nil, err
	}
	for result.StepsTaken < run.Steps {
		select {
		case <-ctx.Done():
			finish()
			return result, ctx.Err()
		default:
		}
		n := min(run.SampleEvery, run.Steps-result.StepsTaken)
		if err := integ.Step(n); err != nil {
			finish()
			return result, fmt.Errorf("%s after %d steps: %w", run.Model, result.StepsTaken, err)
		}
		result.StepsTaken += n
		if err := r.observe(reader, ms, result); err != nil {
			return nil, err
		}
	}
	finish()
	logrus.Debugf("%s finished: %v", run.Model, result.Metrics)
	return result, nil
}

func (r *Runner) observe(reader beadReader, ms []metrics.Metric, result *Result) error {
	n := reader.NumCopies()
	s := metrics.Sample{
		Positions:  make([][]mm.Vec3, n),
		Velocities: make([][]mm.Vec3, n),
	}
	row := Sample{}
	for c := 0; c < n; c++ {
		st, err := reader.State(c, engine.Positions|engine.Velocities|engine.Energy)
		if err != nil {
			return err
		}
		s.Time = st.Time()
		s.Positions[c] = st.Positions()
		s.Velocities[c] = st.Velocities()
		row.Kinetic += st.KineticEnergy() / float64(n)
		row.Potential += st.PotentialEnergy() / float64(n)
	}
	for _, m := range ms {
		m.Observe(s)
	}
	row.Time = s.Time
	spread := metrics.NewBeadSpread()
	spread.Observe(s)
	row.Spread = spread.Value()
	result.Samples = append(result.Samples, row)
	return nil
}

// thermalVelocities draws Maxwell-Boltzmann velocities at temperature.
// Immobile particles stay at rest.
func thermalVelocities(sys *mm.System, temperature float64, seed int64) []mm.Vec3 {
	rng := rand.New(rand.NewSource(seed))
	vel := make([]mm.Vec3, sys.NumParticles())
	kT := mm.Boltzmann * temperature
	for i := range vel {
		m := sys.Mass(i)
		if m == 0 {
			continue
		}
		sigma := math.Sqrt(kT / m)
		vel[i] = mm.Vec3{sigma * rng.NormFloat64(), sigma * rng.NormFloat64(), sigma * rng.NormFloat64()}
	}
	return vel
}

// Ensemble runs n copies of cfg concurrently with seeds seed, seed+1, ...
// Each run gets its own context. The first error cancels the rest.
func Ensemble(ctx context.Context, cfg *config.Config, n int) ([]*Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("ensemble size must be positive, got %d", n)
	}
	base := *cfg
	if base.Seed == 0 {
		base.Seed = time.Now().UnixNano()
	}
	results := make([]*Result, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			run := base
			run.Seed = base.Seed + int64(i)
			res, err := NewRunner().Run(gctx, &run)
			if err != nil {
				return fmt.Errorf("ensemble member %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
