package config

import "sort"

var Presets = map[string]map[string]*Config{
	"diatomic": {
		"classical": {
			Model: "diatomic", Integrator: "langevin", NumCopies: 1,
			Temperature: 300, Friction: 1, Dt: 0.0002, Steps: 5000, SampleEvery: 10,
		},
		"quantum": {
			Model: "diatomic", Integrator: "rpmd", NumCopies: 16,
			Temperature: 300, Friction: 1, Dt: 0.0002, Steps: 5000, SampleEvery: 10,
		},
	},
	"harmonic_well": {
		"cold": {
			Model: "harmonic_well", Integrator: "rpmd", NumCopies: 32,
			Temperature: 20, Friction: 2, Dt: 0.0005, Steps: 4000, SampleEvery: 10,
		},
		"warm": {
			Model: "harmonic_well", Integrator: "rpmd", NumCopies: 4,
			Temperature: 300, Friction: 2, Dt: 0.0005, Steps: 4000, SampleEvery: 10,
		},
	},
	"argon_cluster": {
		"solid": {
			Model: "argon_cluster", Integrator: "rpmd", NumCopies: 8,
			Temperature: 20, Friction: 1, Dt: 0.002, Steps: 5000, SampleEvery: 20,
		},
		"classical": {
			Model: "argon_cluster", Integrator: "verlet", NumCopies: 1,
			Dt: 0.002, Steps: 5000, SampleEvery: 20,
		},
	},
	"water": {
		"rigid": {
			Model: "water", Integrator: "rpmd", NumCopies: 8,
			Temperature: 300, Friction: 1, Dt: 0.0005, Steps: 4000, SampleEvery: 10,
		},
	},
	"free_gas": {
		"ideal": {
			Model: "free_gas", Integrator: "rpmd", NumCopies: 4,
			Temperature: 300, Friction: 1, Dt: 0.001, Steps: 2000, SampleEvery: 10,
		},
	},
}

func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
