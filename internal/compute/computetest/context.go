// Package computetest provides a minimal in-memory ContextImpl for exercising
// kernels without an engine.
package computetest

import (
	"github.com/google/uuid"

	"github.com/san-kum/ringmd/internal/mm"
)

// Context evaluates the system's forces directly, in declaration order.
type Context struct {
	id         string
	sys        *mm.System
	time       float64
	pos        []mm.Vec3
	vel        []mm.Vec3
	forces     []mm.Vec3
	params     map[string]float64
	version    uint64
	ForceCalls int
}

func NewContext(sys *mm.System) *Context {
	n := sys.NumParticles()
	return &Context{
		id:     uuid.NewString(),
		sys:    sys,
		pos:    make([]mm.Vec3, n),
		vel:    make([]mm.Vec3, n),
		forces: make([]mm.Vec3, n),
		params: sys.DefaultParameters(),
	}
}

func (c *Context) ID() string                     { return c.id }
func (c *Context) System() *mm.System             { return c.sys }
func (c *Context) Time() float64                  { return c.time }
func (c *Context) SetTime(t float64)              { c.time = t }
func (c *Context) Positions() []mm.Vec3           { return c.pos }
func (c *Context) Velocities() []mm.Vec3          { return c.vel }
func (c *Context) Forces() []mm.Vec3              { return c.forces }
func (c *Context) Parameters() map[string]float64 { return c.params }
func (c *Context) ForceFieldVersion() uint64      { return c.version }

// SetParameter changes a global parameter the way a live context does,
// marking cached forces stale.
func (c *Context) SetParameter(name string, v float64) {
	c.params[name] = v
	c.version++
}

func (c *Context) CalcForcesAndEnergy(wantForces, wantEnergy bool) (float64, error) {
	c.ForceCalls++
	out := c.forces
	if !wantForces {
		out = make([]mm.Vec3, len(c.pos))
	}
	mm.ZeroVecs(out)
	energy := 0.0
	for _, f := range c.sys.Forces() {
		energy += f.Evaluate(c.pos, c.params, out)
	}
	return energy, nil
}
