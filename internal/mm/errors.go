package mm

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrAlreadyBound indicates an integrator was offered a second, different context.
	ErrAlreadyBound = errors.New("mm: integrator is already bound to a context")

	// ErrNotBound indicates an integrator operation that needs a context was called before bind.
	ErrNotBound = errors.New("mm: integrator is not bound to a context")

	// ErrContextClosed indicates use of a context after Close.
	ErrContextClosed = errors.New("mm: context is closed")

	// ErrUnsupportedKernel indicates a platform has no implementation for a kernel name.
	ErrUnsupportedKernel = errors.New("mm: platform does not support kernel")

	// ErrKernelTypeMismatch indicates a platform returned the wrong kernel type for a name.
	ErrKernelTypeMismatch = errors.New("mm: kernel does not implement the requested contract")

	// ErrInvalidCopyIndex indicates a ring polymer copy index outside [0, numCopies).
	ErrInvalidCopyIndex = errors.New("mm: copy index out of range")

	// ErrParticleCountMismatch indicates a vector whose length differs from the particle count.
	ErrParticleCountMismatch = errors.New("mm: vector length does not match particle count")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("mm: parameter out of valid bounds")

	// ErrUnknownParameter indicates a global parameter no force declares.
	ErrUnknownParameter = errors.New("mm: unknown parameter")

	// ErrInvalidSystem indicates a system whose constraints or masses are malformed.
	ErrInvalidSystem = errors.New("mm: invalid system")

	// ErrConstraintNonConvergence indicates the constraint solver hit its iteration limit.
	ErrConstraintNonConvergence = errors.New("mm: constraints did not converge")

	// ErrNumericalDivergence indicates NaN or Inf appeared in the state.
	ErrNumericalDivergence = errors.New("mm: simulation diverged (NaN or Inf detected)")
)

// AlreadyBoundError reports an attempt to bind an integrator to a second context.
type AlreadyBoundError struct {
	BoundTo   string
	Requested string
}

func (e *AlreadyBoundError) Error() string {
	return fmt.Sprintf("%v: bound to %s, refused %s", ErrAlreadyBound, e.BoundTo, e.Requested)
}

func (e *AlreadyBoundError) Unwrap() error { return ErrAlreadyBound }

// UnsupportedKernelError reports a kernel name a platform cannot create.
type UnsupportedKernelError struct {
	Platform string
	Kernel   string
}

func (e *UnsupportedKernelError) Error() string {
	return fmt.Sprintf("%v: platform %q has no %q", ErrUnsupportedKernel, e.Platform, e.Kernel)
}

func (e *UnsupportedKernelError) Unwrap() error { return ErrUnsupportedKernel }

// KernelTypeMismatchError reports a platform/integrator contract violation.
// It is never caused by caller input.
type KernelTypeMismatchError struct {
	Kernel string
	Got    string
}

func (e *KernelTypeMismatchError) Error() string {
	return fmt.Sprintf("%v: %q is %s", ErrKernelTypeMismatch, e.Kernel, e.Got)
}

func (e *KernelTypeMismatchError) Unwrap() error { return ErrKernelTypeMismatch }

// InvalidCopyIndexError reports a copy index outside [0, NumCopies).
type InvalidCopyIndexError struct {
	Copy      int
	NumCopies int
}

func (e *InvalidCopyIndexError) Error() string {
	return fmt.Sprintf("%v: %d not in [0, %d)", ErrInvalidCopyIndex, e.Copy, e.NumCopies)
}

func (e *InvalidCopyIndexError) Unwrap() error { return ErrInvalidCopyIndex }

// ParticleCountMismatchError reports a per-particle vector of the wrong length.
type ParticleCountMismatchError struct {
	Got  int
	Want int
}

func (e *ParticleCountMismatchError) Error() string {
	return fmt.Sprintf("%v: got %d, want %d", ErrParticleCountMismatch, e.Got, e.Want)
}

func (e *ParticleCountMismatchError) Unwrap() error { return ErrParticleCountMismatch }

// SimulationError wraps a numerical failure with the step it happened on.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// IsFatal reports whether err signals a contract violation between a
// platform and an integrator rather than a caller mistake.
func IsFatal(err error) bool {
	return errors.Is(err, ErrKernelTypeMismatch)
}

// CheckLength returns a ParticleCountMismatchError when got != want.
func CheckLength(got, want int) error {
	if got != want {
		return &ParticleCountMismatchError{Got: got, Want: want}
	}
	return nil
}
