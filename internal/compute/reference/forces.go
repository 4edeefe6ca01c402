package reference

import (
	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/mm"
)

type CalcForcesKernel struct {
	forces  []mm.Force
	scratch []mm.Vec3
}

func NewCalcForcesKernel() *CalcForcesKernel {
	return &CalcForcesKernel{}
}

func (k *CalcForcesKernel) Name() string { return compute.KernelCalcForcesAndEnergy }
func (k *CalcForcesKernel) Release()     { k.forces, k.scratch = nil, nil }

func (k *CalcForcesKernel) Initialize(sys *mm.System) error {
	k.forces = sys.Forces()
	k.scratch = make([]mm.Vec3, sys.NumParticles())
	return nil
}

func (k *CalcForcesKernel) Execute(ctx compute.ContextImpl, wantForces, wantEnergy bool) (float64, error) {
	if !wantForces && !wantEnergy {
		return 0, nil
	}
	out := k.scratch
	if wantForces {
		out = ctx.Forces()
	}
	mm.ZeroVecs(out)

	pos := ctx.Positions()
	params := ctx.Parameters()
	energy := 0.0
	for _, f := range k.forces {
		energy += f.Evaluate(pos, params, out)
	}
	if !wantEnergy {
		return 0, nil
	}
	return energy, nil
}
