// Package physics provides the force-field terms used to build systems:
// harmonic bonds, an anchored harmonic external potential with adjustable
// global parameters, and a Lennard-Jones plus Coulomb nonbonded term.
//
// Every term implements [mm.Force] and is a pure function of positions and
// parameters, so platforms may evaluate terms concurrently.
package physics
