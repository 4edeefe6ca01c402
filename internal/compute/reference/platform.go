// Package reference implements the serial reference platform. Every kernel
// favours clarity over speed and is the yardstick the other platforms are
// tested against.
package reference

import "github.com/san-kum/ringmd/internal/compute"

const Speed = 1.0

type Platform struct {
	*compute.Base
}

func NewPlatform() *Platform {
	p := &Platform{Base: compute.NewBase("reference", Speed)}
	p.RegisterKernelFactory(compute.KernelCalcForcesAndEnergy, func(compute.ContextImpl) compute.Kernel {
		return NewCalcForcesKernel()
	})
	p.RegisterKernelFactory(compute.KernelIntegrateVerletStep, func(compute.ContextImpl) compute.Kernel {
		return NewVerletKernel()
	})
	p.RegisterKernelFactory(compute.KernelIntegrateLangevinStep, func(compute.ContextImpl) compute.Kernel {
		return NewLangevinKernel()
	})
	p.RegisterKernelFactory(compute.KernelIntegrateRPMDStep, func(compute.ContextImpl) compute.Kernel {
		return NewRPMDKernel()
	})
	return p
}
