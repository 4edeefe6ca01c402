// Package cpu is the multi-core platform. Force evaluation fans out over
// goroutines; the integration kernels that have no parallel form are shared
// with the reference platform.
package cpu

import (
	"runtime"

	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/compute/reference"
)

const Speed = 10.0

type Platform struct {
	*compute.Base
	workers int
}

func NewPlatform() *Platform {
	p := &Platform{
		Base:    compute.NewBase("cpu", Speed),
		workers: runtime.NumCPU(),
	}
	p.RegisterKernelFactory(compute.KernelCalcForcesAndEnergy, func(compute.ContextImpl) compute.Kernel {
		return NewCalcForcesKernel(p.workers)
	})
	p.RegisterKernelFactory(compute.KernelIntegrateVerletStep, func(compute.ContextImpl) compute.Kernel {
		return reference.NewVerletKernel()
	})
	p.RegisterKernelFactory(compute.KernelIntegrateLangevinStep, func(compute.ContextImpl) compute.Kernel {
		return reference.NewLangevinKernel()
	})
	p.RegisterKernelFactory(compute.KernelIntegrateRPMDStep, func(compute.ContextImpl) compute.Kernel {
		return NewRPMDKernel(p.workers)
	})
	return p
}

// Available reports whether more than one core is usable.
func (p *Platform) Available() bool { return p.workers > 1 }

func (p *Platform) Workers() int { return p.workers }
