// Package compute provides the platform abstraction: named compute backends
// that manufacture kernels, the backend-specific execution units that do the
// numerical work of a simulation.
//
// An integrator declares the kernel names it needs. At bind time the context
// asks its [Platform] to create each kernel; the platform either returns an
// implementation of the matching contract or refuses with
// [mm.UnsupportedKernelError]:
//
//	k, err := platform.CreateKernel(compute.KernelIntegrateRPMDStep, ctx.Impl())
//	step, ok := k.(compute.IntegrateRPMDStepKernel)
//
// Concrete platforms live in subpackages: reference (serial) and cpu
// (parallel). The CUDA platform in this package is a placeholder that always
// reports itself unavailable.
//
// # Platform Selection
//
// A [Registry] maps platform names to instances. [Registry.Select] returns the
// fastest available platform that supports every requested kernel.
package compute
