// Package analysis extracts frequencies from sampled observables.
//
// Energies of a bound vibration oscillate at twice the bond frequency, so
// the dominant peak of the potential energy spectrum of a diatomic run sits
// at 2*omega/(2*pi):
//
//	ps := analysis.PowerSpectrum(potential)
//	f := analysis.DominantFrequency(potential, sampleInterval)
package analysis
