package mm

const (
	// Boltzmann is k_B in kJ/(mol*K).
	Boltzmann = 0.00831446261815324

	// Hbar is the reduced Planck constant in kJ/mol*ps.
	Hbar = 0.0635077993
)
