// Package mm provides the core molecular mechanics primitives shared by every
// other package in ringmd.
//
// The package defines the leaf types of a simulation:
//
//   - [Vec3]: a 3-vector used for positions, velocities and forces
//   - [System]: particle masses, distance constraints and force terms
//   - [Force]: a force-field term evaluated against a set of positions
//   - the error taxonomy shared by the context, the platforms and the integrators
//
// Units follow the usual molecular dynamics conventions: nanometers,
// picoseconds, atomic mass units, kelvin and kJ/mol.
//
// # Example
//
//	sys := mm.NewSystem()
//	a := sys.AddParticle(1.008)
//	b := sys.AddParticle(1.008)
//	bonds := physics.NewHarmonicBond()
//	bonds.AddBond(a, b, 0.074, 2.5e5)
//	sys.AddForce(bonds)
//
// # Thread Safety
//
// A System is immutable during a run by convention; it is not guarded.
// Changing it after a context is built requires Context.Reinitialize.
package mm
