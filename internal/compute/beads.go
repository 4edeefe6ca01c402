package compute

import "github.com/san-kum/ringmd/internal/mm"

// Beads holds per-copy particle data for ring polymer kernels. The outer
// index is the copy, the inner index the particle.
type Beads struct {
	Positions  [][]mm.Vec3
	Velocities [][]mm.Vec3
	Forces     [][]mm.Vec3
}

func NewBeads(numCopies, numParticles int) *Beads {
	b := &Beads{
		Positions:  make([][]mm.Vec3, numCopies),
		Velocities: make([][]mm.Vec3, numCopies),
		Forces:     make([][]mm.Vec3, numCopies),
	}
	for c := 0; c < numCopies; c++ {
		b.Positions[c] = make([]mm.Vec3, numParticles)
		b.Velocities[c] = make([]mm.Vec3, numParticles)
		b.Forces[c] = make([]mm.Vec3, numParticles)
	}
	return b
}

func (b *Beads) NumCopies() int { return len(b.Positions) }

func (b *Beads) SetPositions(copyIdx int, pos []mm.Vec3) {
	copy(b.Positions[copyIdx], pos)
}

func (b *Beads) SetVelocities(copyIdx int, vel []mm.Vec3) {
	copy(b.Velocities[copyIdx], vel)
}

// CopyToContext overwrites the context's canonical positions and velocities
// with one copy's data.
func (b *Beads) CopyToContext(copyIdx int, ctx ContextImpl) {
	copy(ctx.Positions(), b.Positions[copyIdx])
	copy(ctx.Velocities(), b.Velocities[copyIdx])
}

// Valid reports whether every position and velocity is finite.
func (b *Beads) Valid() bool {
	for c := range b.Positions {
		if !mm.AllValid(b.Positions[c]) || !mm.AllValid(b.Velocities[c]) {
			return false
		}
	}
	return true
}

// Kick applies v += f * dt / m to every copy.
func (b *Beads) Kick(invMass []float64, dt float64) {
	for c := range b.Velocities {
		vel, f := b.Velocities[c], b.Forces[c]
		for i := range vel {
			if invMass[i] == 0 {
				continue
			}
			vel[i] = vel[i].Add(f[i].Scale(dt * invMass[i]))
		}
	}
}

// RingFrequency is the spring frequency n*kB*T/hbar of an n-bead ring polymer.
func RingFrequency(numCopies int, temperature float64) float64 {
	return float64(numCopies) * mm.Boltzmann * temperature / mm.Hbar
}
