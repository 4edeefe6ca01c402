package engine

import (
	"github.com/san-kum/ringmd/internal/mm"
)

// Integrator advances a bound context. Bind is called by New and by
// Reinitialize; binding the same context again refreshes the kernels,
// binding a different one fails with *mm.AlreadyBoundError.
type Integrator interface {
	// KernelNames lists the kernels the integrator will ask the platform for.
	KernelNames() []string
	StepSize() float64
	Bind(ctx *Context) error
	Step(n int) error
	// Release drops the integrator's kernels. It keeps the binding.
	Release()
}

// Updater is a pre-step hook run by Context.UpdateContextState. Forces that
// implement it are registered automatically.
type Updater interface {
	UpdateContextState(ctx *Context) error
}

// Binding records which context an integrator belongs to. Identity is the
// context's ID, so a rebuilt or closed context can never be mistaken for
// another one.
type Binding struct {
	id  string
	ctx *Context
}

// Check reports whether ctx may be attached without recording anything.
// Integrators call it before building kernels and Attach once they exist,
// so a failed bind leaves them free for another context.
func (b *Binding) Check(ctx *Context) error {
	if b.id != "" && b.id != ctx.ID() {
		return &mm.AlreadyBoundError{BoundTo: b.id, Requested: ctx.ID()}
	}
	return nil
}

// Attach binds to ctx, or refreshes an existing binding to the same context.
func (b *Binding) Attach(ctx *Context) error {
	if err := b.Check(ctx); err != nil {
		return err
	}
	b.id = ctx.ID()
	b.ctx = ctx
	return nil
}

// Context returns the bound context, failing when there is none or when it
// has been closed.
func (b *Binding) Context() (*Context, error) {
	if b.ctx == nil {
		return nil, mm.ErrNotBound
	}
	if b.ctx.Closed() {
		return nil, mm.ErrContextClosed
	}
	return b.ctx, nil
}

func (b *Binding) ID() string  { return b.id }
func (b *Binding) Bound() bool { return b.id != "" }
