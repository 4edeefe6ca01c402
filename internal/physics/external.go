package physics

import "github.com/san-kum/ringmd/internal/mm"

type anchor struct {
	particle int
	origin   mm.Vec3
}

// ExternalHarmonic tethers particles to fixed anchor points with
// E = 1/2 k |x - x0|^2. The spring constant is a global parameter, so it can
// be changed on a live context through SetParameter.
type ExternalHarmonic struct {
	param    string
	defaultK float64
	anchors  []anchor
}

func NewExternalHarmonic(param string, defaultK float64) *ExternalHarmonic {
	return &ExternalHarmonic{param: param, defaultK: defaultK}
}

func (e *ExternalHarmonic) AddParticle(particle int, origin mm.Vec3) int {
	e.anchors = append(e.anchors, anchor{particle: particle, origin: origin})
	return len(e.anchors) - 1
}

func (e *ExternalHarmonic) NumParticles() int { return len(e.anchors) }

func (e *ExternalHarmonic) Name() string { return "external_harmonic" }

func (e *ExternalHarmonic) GlobalParameters() []mm.GlobalParameter {
	return []mm.GlobalParameter{{Name: e.param, Default: e.defaultK}}
}

func (e *ExternalHarmonic) Evaluate(pos []mm.Vec3, params map[string]float64, forces []mm.Vec3) float64 {
	k, ok := params[e.param]
	if !ok {
		k = e.defaultK
	}
	energy := 0.0
	for _, a := range e.anchors {
		d := pos[a.particle].Sub(a.origin)
		energy += 0.5 * k * d.Dot(d)
		forces[a.particle] = forces[a.particle].Sub(d.Scale(k))
	}
	return energy
}
