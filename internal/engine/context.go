package engine

import (
	"fmt"
	"maps"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/ringmd/internal/compute"
	"github.com/san-kum/ringmd/internal/compute/builtin"
	"github.com/san-kum/ringmd/internal/mm"
)

// Context is the live simulation. It owns the canonical positions,
// velocities, forces, time and global parameter values; multi-copy
// integrators keep their per-copy data in their own kernels and flush one
// copy at a time into the context.
type Context struct {
	id       string
	sys      *mm.System
	integ    Integrator
	platform compute.Platform

	forceKernel compute.CalcForcesAndEnergyKernel
	time        float64
	pos         []mm.Vec3
	vel         []mm.Vec3
	forces      []mm.Vec3
	params      map[string]float64
	ffVersion   uint64

	updaters      []Updater
	forceUpdaters []Updater
	closed        bool
}

type options struct {
	platform compute.Platform
	registry *compute.Registry
}

type Option func(*options)

// WithPlatform pins the platform instead of selecting one.
func WithPlatform(p compute.Platform) Option {
	return func(o *options) { o.platform = p }
}

// WithRegistry replaces the built-in platform registry used for selection.
func WithRegistry(r *compute.Registry) Option {
	return func(o *options) { o.registry = r }
}

type environment struct {
	Platform string `env:"RINGMD_PLATFORM"`
}

// New validates sys, picks a platform, creates the force kernel and binds
// integ. Without WithPlatform the platform named by RINGMD_PLATFORM is used,
// otherwise the fastest available one supporting every kernel needed.
func New(sys *mm.System, integ Integrator, opts ...Option) (*Context, error) {
	if err := sys.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	kernels := append([]string{compute.KernelCalcForcesAndEnergy}, integ.KernelNames()...)
	platform, err := choosePlatform(o, kernels)
	if err != nil {
		return nil, err
	}

	c := &Context{
		id:       uuid.NewString(),
		sys:      sys,
		integ:    integ,
		platform: platform,
	}
	c.resetState()
	if err := c.createForceKernel(); err != nil {
		return nil, err
	}
	if err := integ.Bind(c); err != nil {
		c.forceKernel.Release()
		return nil, err
	}
	logrus.Debugf("context %s: %d particles on platform %s", c.id, sys.NumParticles(), platform.Name())
	return c, nil
}

func choosePlatform(o options, kernels []string) (compute.Platform, error) {
	if o.platform != nil {
		for _, k := range kernels {
			if !o.platform.SupportsKernels([]string{k}) {
				return nil, &mm.UnsupportedKernelError{Platform: o.platform.Name(), Kernel: k}
			}
		}
		return o.platform, nil
	}
	reg := o.registry
	if reg == nil {
		reg = builtin.Registry()
	}
	var e environment
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if e.Platform != "" {
		p, err := reg.Get(e.Platform)
		if err != nil {
			return nil, fmt.Errorf("RINGMD_PLATFORM: %w", err)
		}
		if !p.Available() {
			logrus.Warnf("platform %s requested but reports unavailable", p.Name())
		}
		return p, nil
	}
	return reg.Select(kernels)
}

// resetState sizes the per-particle buffers for the current system, keeping
// positions and velocities when the particle count has not changed.
func (c *Context) resetState() {
	n := c.sys.NumParticles()
	if c.pos == nil || len(c.pos) != n {
		c.pos = make([]mm.Vec3, n)
		c.vel = make([]mm.Vec3, n)
	}
	c.forces = make([]mm.Vec3, n)
	c.time = 0
	c.params = c.sys.DefaultParameters()
	c.ffVersion++

	c.forceUpdaters = c.forceUpdaters[:0]
	for _, f := range c.sys.Forces() {
		if u, ok := f.(Updater); ok {
			c.forceUpdaters = append(c.forceUpdaters, u)
		}
	}
}

func (c *Context) createForceKernel() error {
	k, err := compute.CreateKernelAs[compute.CalcForcesAndEnergyKernel](c.platform, compute.KernelCalcForcesAndEnergy, c.Impl())
	if err != nil {
		return err
	}
	if err := k.Initialize(c.sys); err != nil {
		k.Release()
		return err
	}
	c.forceKernel = k
	return nil
}

func (c *Context) ID() string                 { return c.id }
func (c *Context) System() *mm.System         { return c.sys }
func (c *Context) Integrator() Integrator     { return c.integ }
func (c *Context) Platform() compute.Platform { return c.platform }
func (c *Context) Closed() bool               { return c.closed }
func (c *Context) Impl() compute.ContextImpl  { return impl{c} }
func (c *Context) Time() float64              { return c.time }

func (c *Context) SetTime(t float64) error {
	if c.closed {
		return mm.ErrContextClosed
	}
	c.time = t
	return nil
}

// SetPositions overwrites the canonical positions. A slice of the wrong
// length is rejected without touching the context.
func (c *Context) SetPositions(pos []mm.Vec3) error {
	if c.closed {
		return mm.ErrContextClosed
	}
	if err := mm.CheckLength(len(pos), len(c.pos)); err != nil {
		return err
	}
	copy(c.pos, pos)
	return nil
}

func (c *Context) SetVelocities(vel []mm.Vec3) error {
	if c.closed {
		return mm.ErrContextClosed
	}
	if err := mm.CheckLength(len(vel), len(c.vel)); err != nil {
		return err
	}
	copy(c.vel, vel)
	return nil
}

func (c *Context) Parameter(name string) (float64, error) {
	if c.closed {
		return 0, mm.ErrContextClosed
	}
	v, ok := c.params[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", mm.ErrUnknownParameter, name)
	}
	return v, nil
}

func (c *Context) SetParameter(name string, value float64) error {
	if c.closed {
		return mm.ErrContextClosed
	}
	if _, ok := c.params[name]; !ok {
		return fmt.Errorf("%w: %s", mm.ErrUnknownParameter, name)
	}
	c.params[name] = value
	c.ffVersion++
	return nil
}

// AddUpdater registers a pre-step hook. Hooks survive Reinitialize.
func (c *Context) AddUpdater(u Updater) {
	c.updaters = append(c.updaters, u)
}

// UpdateContextState runs the force hooks, then the registered ones. Any
// hook may change the forces, so running at least one marks cached forces
// stale.
func (c *Context) UpdateContextState() error {
	if c.closed {
		return mm.ErrContextClosed
	}
	if len(c.forceUpdaters)+len(c.updaters) > 0 {
		c.ffVersion++
	}
	for _, u := range c.forceUpdaters {
		if err := u.UpdateContextState(c); err != nil {
			return err
		}
	}
	for _, u := range c.updaters {
		if err := u.UpdateContextState(c); err != nil {
			return err
		}
	}
	return nil
}

// CalcForcesAndEnergy evaluates the system at the canonical positions. With
// wantForces the result replaces the context's forces; the returned energy
// is only meaningful with wantEnergy.
func (c *Context) CalcForcesAndEnergy(wantForces, wantEnergy bool) (float64, error) {
	if c.closed {
		return 0, mm.ErrContextClosed
	}
	if c.forceKernel == nil {
		return 0, mm.ErrNotBound
	}
	return c.forceKernel.Execute(c.Impl(), wantForces, wantEnergy)
}

// State snapshots the fields in mask. Forces and energy are evaluated at the
// current positions when requested.
func (c *Context) State(mask DataType) (State, error) {
	if c.closed {
		return State{}, mm.ErrContextClosed
	}
	s := State{mask: mask, time: c.time}

	wantForces, wantEnergy := mask&Forces != 0, mask&Energy != 0
	if wantForces || wantEnergy {
		e, err := c.CalcForcesAndEnergy(wantForces, wantEnergy)
		if err != nil {
			return State{}, err
		}
		s.potential = e
	}
	if wantForces {
		s.forces = mm.CloneVecs(c.forces)
	}
	if wantEnergy {
		s.kinetic = c.kineticEnergy()
	}
	if mask&Positions != 0 {
		s.positions = mm.CloneVecs(c.pos)
	}
	if mask&Velocities != 0 {
		s.velocities = mm.CloneVecs(c.vel)
	}
	if mask&Parameters != 0 {
		s.params = maps.Clone(c.params)
	}
	return s, nil
}

func (c *Context) kineticEnergy() float64 {
	ke := 0.0
	for i, v := range c.vel {
		ke += 0.5 * c.sys.Mass(i) * v.Dot(v)
	}
	return ke
}

// Reinitialize discards every kernel and rebuilds them from the current
// System. Time returns to zero and parameters to their declared defaults.
// Positions and velocities survive unless the particle count changed. The
// integrator is bound again, which reseeds stochastic kernels. An invalid
// System is rejected before anything is released.
func (c *Context) Reinitialize() error {
	if c.closed {
		return mm.ErrContextClosed
	}
	if err := c.sys.Validate(); err != nil {
		return err
	}
	c.integ.Release()
	c.forceKernel.Release()
	c.forceKernel = nil
	c.resetState()
	if err := c.createForceKernel(); err != nil {
		return err
	}
	logrus.Infof("context %s reinitialized on platform %s", c.id, c.platform.Name())
	return c.integ.Bind(c)
}

// Close releases the kernels. The integrator stays bound to the closed
// context and cannot be bound elsewhere.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.integ.Release()
	if c.forceKernel != nil {
		c.forceKernel.Release()
	}
	c.closed = true
	return nil
}

// impl is the kernel-facing view of a Context.
type impl struct{ c *Context }

func (i impl) ID() string                     { return i.c.id }
func (i impl) System() *mm.System             { return i.c.sys }
func (i impl) Time() float64                  { return i.c.time }
func (i impl) SetTime(t float64)              { i.c.time = t }
func (i impl) Positions() []mm.Vec3           { return i.c.pos }
func (i impl) Velocities() []mm.Vec3          { return i.c.vel }
func (i impl) Forces() []mm.Vec3              { return i.c.forces }
func (i impl) Parameters() map[string]float64 { return i.c.params }
func (i impl) ForceFieldVersion() uint64      { return i.c.ffVersion }

func (i impl) CalcForcesAndEnergy(wantForces, wantEnergy bool) (float64, error) {
	return i.c.CalcForcesAndEnergy(wantForces, wantEnergy)
}
