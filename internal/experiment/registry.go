package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/ringmd/internal/config"
	"github.com/san-kum/ringmd/internal/engine"
	"github.com/san-kum/ringmd/internal/integrators"
	"github.com/san-kum/ringmd/internal/rpmd"
)

type IntegratorFactory func(cfg *config.Config) (engine.Integrator, error)

type Registry struct {
	integrators map[string]IntegratorFactory
}

func NewRegistry() *Registry {
	r := &Registry{integrators: make(map[string]IntegratorFactory)}

	r.integrators["rpmd"] = func(cfg *config.Config) (engine.Integrator, error) {
		integ, err := rpmd.New(cfg.NumCopies, cfg.Temperature, cfg.Friction, cfg.Dt)
		if err != nil {
			return nil, err
		}
		integ.SetRandomSeed(cfg.Seed)
		return integ, nil
	}
	r.integrators["langevin"] = func(cfg *config.Config) (engine.Integrator, error) {
		integ, err := integrators.NewLangevin(cfg.Temperature, cfg.Friction, cfg.Dt)
		if err != nil {
			return nil, err
		}
		integ.SetRandomSeed(cfg.Seed)
		return integ, nil
	}
	r.integrators["verlet"] = func(cfg *config.Config) (engine.Integrator, error) {
		return integrators.NewVerlet(cfg.Dt)
	}
	return r
}

func (r *Registry) GetIntegrator(cfg *config.Config) (engine.Integrator, error) {
	fn, ok := r.integrators[cfg.Integrator]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", cfg.Integrator)
	}
	return fn(cfg)
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
