// Package engine holds the simulation context: the aggregate that binds one
// System, one Integrator and one Platform and owns the canonical live state
// of a run.
//
// A Context is built with New, which validates the system, picks a platform,
// creates the force kernel and binds the integrator. Integrators drive it
// through UpdateContextState and CalcForcesAndEnergy and read it back with
// State. Calls against one context must be issued sequentially.
package engine
