// Package models builds the named molecular systems the CLI and the
// experiment runner know about. Units are nm, ps, amu and kJ/mol.
package models

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/ringmd/internal/mm"
	"github.com/san-kum/ringmd/internal/physics"
)

// Model is a system together with the starting positions it was built for.
type Model struct {
	Name      string
	System    *mm.System
	Positions []mm.Vec3
}

type Builder func(params map[string]float64) *Model

var builders = map[string]Builder{
	"free_gas":      FreeGas,
	"diatomic":      Diatomic,
	"harmonic_well": HarmonicWell,
	"argon_cluster": ArgonCluster,
	"water":         Water,
}

func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Build(name string, params map[string]float64) (*Model, error) {
	b, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return b(params), nil
}

func param(params map[string]float64, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return def
}

// lattice places n points on a simple cubic grid centred on the origin.
func lattice(n int, spacing float64) []mm.Vec3 {
	side := int(math.Ceil(math.Cbrt(float64(n))))
	offset := float64(side-1) * spacing / 2
	pos := make([]mm.Vec3, 0, n)
	for i := 0; len(pos) < n; i++ {
		x, y, z := i%side, (i/side)%side, i/(side*side)
		pos = append(pos, mm.Vec3{
			float64(x)*spacing - offset,
			float64(y)*spacing - offset,
			float64(z)*spacing - offset,
		})
	}
	return pos
}

// FreeGas is n non-interacting particles. Params: n (8), mass (1.008),
// spacing (0.5).
func FreeGas(params map[string]float64) *Model {
	n := int(param(params, "n", 8))
	mass := param(params, "mass", 1.008)
	sys := mm.NewSystem()
	for i := 0; i < n; i++ {
		sys.AddParticle(mass)
	}
	return &Model{Name: "free_gas", System: sys, Positions: lattice(n, param(params, "spacing", 0.5))}
}

// Diatomic is an H2-like molecule: two hydrogens joined by a harmonic bond.
// Params: length (0.074), k (300000), mass (1.008).
func Diatomic(params map[string]float64) *Model {
	mass := param(params, "mass", 1.008)
	length := param(params, "length", 0.074)
	sys := mm.NewSystem()
	sys.AddParticle(mass)
	sys.AddParticle(mass)
	bond := physics.NewHarmonicBond()
	bond.AddBond(0, 1, length, param(params, "k", 300000))
	sys.AddForce(bond)
	return &Model{Name: "diatomic", System: sys, Positions: []mm.Vec3{{0, 0, 0}, {length, 0, 0}}}
}

// HarmonicWell tethers n particles to their lattice sites with the global
// parameter "k". Params: n (4), mass (1.008), k (1000), spacing (0.3).
func HarmonicWell(params map[string]float64) *Model {
	n := int(param(params, "n", 4))
	mass := param(params, "mass", 1.008)
	sites := lattice(n, param(params, "spacing", 0.3))
	sys := mm.NewSystem()
	well := physics.NewExternalHarmonic("k", param(params, "k", 1000))
	for i, site := range sites {
		sys.AddParticle(mass)
		well.AddParticle(i, site)
	}
	sys.AddForce(well)
	return &Model{Name: "harmonic_well", System: sys, Positions: sites}
}

// ArgonCluster is n Lennard-Jones argon atoms held together by a weak
// confining well. Params: n (13), k_confine (5).
func ArgonCluster(params map[string]float64) *Model {
	const (
		mass    = 39.948
		sigma   = 0.3405
		epsilon = 0.996
	)
	n := int(param(params, "n", 13))
	sys := mm.NewSystem()
	lj := physics.NewNonbonded()
	confine := physics.NewExternalHarmonic("k_confine", param(params, "k_confine", 5))
	for i := 0; i < n; i++ {
		sys.AddParticle(mass)
		lj.AddParticle(0, sigma, epsilon)
		confine.AddParticle(i, mm.Vec3{})
	}
	sys.AddForce(lj)
	sys.AddForce(confine)
	return &Model{Name: "argon_cluster", System: sys, Positions: lattice(n, math.Pow(2, 1.0/6)*sigma)}
}

// Water is one rigid TIP3P molecule. The geometry is held by three
// constraints and the oxygen is tethered by the global parameter "k".
func Water(params map[string]float64) *Model {
	const (
		rOH   = 0.09572
		angle = 104.52 * math.Pi / 180
	)
	rHH := 2 * rOH * math.Sin(angle/2)
	sys := mm.NewSystem()
	sys.AddParticle(15.999)
	sys.AddParticle(1.008)
	sys.AddParticle(1.008)
	sys.AddConstraint(0, 1, rOH)
	sys.AddConstraint(0, 2, rOH)
	sys.AddConstraint(1, 2, rHH)

	nb := physics.NewNonbonded()
	nb.AddParticle(-0.834, 0.315061, 0.636386)
	nb.AddParticle(0.417, 1, 0)
	nb.AddParticle(0.417, 1, 0)
	nb.AddExclusion(0, 1)
	nb.AddExclusion(0, 2)
	nb.AddExclusion(1, 2)
	sys.AddForce(nb)

	well := physics.NewExternalHarmonic("k", param(params, "k", 100))
	well.AddParticle(0, mm.Vec3{})
	sys.AddForce(well)

	half := angle / 2
	pos := []mm.Vec3{
		{0, 0, 0},
		{rOH * math.Sin(half), rOH * math.Cos(half), 0},
		{-rOH * math.Sin(half), rOH * math.Cos(half), 0},
	}
	return &Model{Name: "water", System: sys, Positions: pos}
}
