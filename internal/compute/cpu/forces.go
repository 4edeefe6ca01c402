package cpu

import (
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/mm"
)

// CalcForcesKernel evaluates each force term on its own goroutine into a
// private buffer and reduces the buffers in declaration order, so results
// do not depend on scheduling.
type CalcForcesKernel struct {
	workers  int
	forces   []mm.Force
	partial  [][]mm.Vec3
	energies []float64
}

func NewCalcForcesKernel(workers int) *CalcForcesKernel {
	if workers < 1 {
		workers = 1
	}
	return &CalcForcesKernel{workers: workers}
}

func (k *CalcForcesKernel) Name() string { return compute.KernelCalcForcesAndEnergy }
func (k *CalcForcesKernel) Release()     { k.partial, k.energies = nil, nil }

func (k *CalcForcesKernel) Initialize(sys *mm.System) error {
	k.forces = sys.Forces()
	k.partial = make([][]mm.Vec3, len(k.forces))
	for i := range k.partial {
		k.partial[i] = make([]mm.Vec3, sys.NumParticles())
	}
	k.energies = make([]float64, len(k.forces))
	return nil
}

func (k *CalcForcesKernel) Execute(ctx compute.ContextImpl, wantForces, wantEnergy bool) (float64, error) {
	if !wantForces && !wantEnergy {
		return 0, nil
	}
	pos, params := ctx.Positions(), ctx.Parameters()

	var g errgroup.Group
	g.SetLimit(k.workers)
	for i, f := range k.forces {
		i, f := i, f
		g.Go(func() error {
			mm.ZeroVecs(k.partial[i])
			k.energies[i] = f.Evaluate(pos, params, k.partial[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if wantForces {
		out := ctx.Forces()
		mm.ZeroVecs(out)
		for _, buf := range k.partial {
			for j := range out {
				out[j] = out[j].Add(buf[j])
			}
		}
	}
	if !wantEnergy {
		return 0, nil
	}
	return floats.Sum(k.energies), nil
}
