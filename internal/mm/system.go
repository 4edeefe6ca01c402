package mm

import "fmt"

// GlobalParameter is a named scalar a force reads from the context at
// evaluation time. Default is the value a fresh or reinitialized context uses.
type GlobalParameter struct {
	Name    string
	Default float64
}

// Force is one force-field term. Evaluate adds the force on every particle
// into forces and returns the term's potential energy. Implementations must
// not retain pos or forces and must be safe for concurrent calls that use
// distinct forces buffers.
type Force interface {
	Name() string
	GlobalParameters() []GlobalParameter
	Evaluate(pos []Vec3, params map[string]float64, forces []Vec3) float64
}

// Constraint fixes the distance between two particles.
type Constraint struct {
	P1, P2   int
	Distance float64
}

type System struct {
	masses      []float64
	constraints []Constraint
	forces      []Force
}

func NewSystem() *System {
	return &System{}
}

// AddParticle appends a particle and returns its index. A mass of zero marks
// the particle immobile.
func (s *System) AddParticle(mass float64) int {
	s.masses = append(s.masses, mass)
	return len(s.masses) - 1
}

func (s *System) AddConstraint(p1, p2 int, distance float64) int {
	s.constraints = append(s.constraints, Constraint{P1: p1, P2: p2, Distance: distance})
	return len(s.constraints) - 1
}

func (s *System) AddForce(f Force) int {
	s.forces = append(s.forces, f)
	return len(s.forces) - 1
}

func (s *System) NumParticles() int   { return len(s.masses) }
func (s *System) NumConstraints() int { return len(s.constraints) }
func (s *System) NumForces() int      { return len(s.forces) }

func (s *System) Mass(i int) float64 { return s.masses[i] }

func (s *System) SetMass(i int, mass float64) { s.masses[i] = mass }

func (s *System) Constraints() []Constraint {
	c := make([]Constraint, len(s.constraints))
	copy(c, s.constraints)
	return c
}

func (s *System) Forces() []Force {
	f := make([]Force, len(s.forces))
	copy(f, s.forces)
	return f
}

// InverseMasses returns 1/m per particle, with 0 for immobile particles.
func (s *System) InverseMasses() []float64 {
	inv := make([]float64, len(s.masses))
	for i, m := range s.masses {
		if m != 0 {
			inv[i] = 1 / m
		}
	}
	return inv
}

// DefaultParameters collects the declared default of every global parameter.
// When two forces declare the same name the first declaration wins.
func (s *System) DefaultParameters() map[string]float64 {
	params := make(map[string]float64)
	for _, f := range s.forces {
		for _, p := range f.GlobalParameters() {
			if _, ok := params[p.Name]; !ok {
				params[p.Name] = p.Default
			}
		}
	}
	return params
}

// DegreesOfFreedom is 3N minus one per constraint between mobile particles.
func (s *System) DegreesOfFreedom() int {
	dof := 0
	for _, m := range s.masses {
		if m > 0 {
			dof += 3
		}
	}
	for _, c := range s.constraints {
		if s.masses[c.P1] > 0 || s.masses[c.P2] > 0 {
			dof--
		}
	}
	return dof
}

func (s *System) Validate() error {
	for i, m := range s.masses {
		if m < 0 {
			return fmt.Errorf("%w: particle %d has negative mass %g", ErrInvalidSystem, i, m)
		}
	}
	n := len(s.masses)
	for i, c := range s.constraints {
		if c.P1 < 0 || c.P1 >= n || c.P2 < 0 || c.P2 >= n || c.P1 == c.P2 {
			return fmt.Errorf("%w: constraint %d joins %d and %d", ErrInvalidSystem, i, c.P1, c.P2)
		}
		if c.Distance <= 0 {
			return fmt.Errorf("%w: constraint %d has distance %g", ErrInvalidSystem, i, c.Distance)
		}
		if s.masses[c.P1] == 0 && s.masses[c.P2] == 0 {
			return fmt.Errorf("%w: constraint %d joins two immobile particles", ErrInvalidSystem, i)
		}
	}
	return nil
}
