package integrators

import (
	"math"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ringmd/internal/compute/reference"
	"github.com/san-kum/ringmd/internal/engine"
	"github.com/san-kum/ringmd/internal/mm"
	"github.com/san-kum/ringmd/internal/physics"
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.WarnLevel)
	os.Exit(m.Run())
}

// oscillator is a single bond of length 1.5 with k = 1, matching the damped
// oscillator used to check Langevin against its analytic solution.
func oscillator() *mm.System {
	sys := mm.NewSystem()
	sys.AddParticle(2)
	sys.AddParticle(2)
	bond := physics.NewHarmonicBond()
	bond.AddBond(0, 1, 1.5, 1)
	sys.AddForce(bond)
	return sys
}

func TestNew_Bounds(t *testing.T) {
	nan, inf := math.NaN(), math.Inf(1)
	for _, dt := range []float64{-1, nan, inf} {
		_, err := NewVerlet(dt)
		assert.ErrorIs(t, err, mm.ErrParameterBounds, "verlet dt %g", dt)
	}
	tests := []struct {
		name                      string
		temperature, friction, dt float64
	}{
		{"negative friction", 300, -1, 0.001},
		{"NaN temperature", nan, 1, 0.001},
		{"NaN friction", 300, nan, 0.001},
		{"NaN step size", 300, 1, nan},
		{"infinite temperature", inf, 1, 0.001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLangevin(tt.temperature, tt.friction, tt.dt)
			assert.ErrorIs(t, err, mm.ErrParameterBounds)
		})
	}
}

func TestVerlet_ConservesEnergy(t *testing.T) {
	integ, err := NewVerlet(0.01)
	require.NoError(t, err)
	ctx, err := engine.New(oscillator(), integ, engine.WithPlatform(reference.NewPlatform()))
	require.NoError(t, err)
	defer ctx.Close()
	require.NoError(t, ctx.SetPositions([]mm.Vec3{{-1, 0, 0}, {1, 0, 0}}))

	st, err := ctx.State(engine.Energy)
	require.NoError(t, err)
	initial := st.PotentialEnergy() + st.KineticEnergy()

	for i := 0; i < 100; i++ {
		require.NoError(t, integ.Step(10))
		st, err := ctx.State(engine.Energy)
		require.NoError(t, err)
		// leapfrog velocities lag half a step, so the sum only wobbles around
		// the true energy
		assert.InDelta(t, initial, st.PotentialEnergy()+st.KineticEnergy(), 0.01*initial)
	}
	assert.InDelta(t, 10.0, ctx.Time(), 1e-9)
}

func TestLangevin_Temperature(t *testing.T) {
	const n = 8
	sys := mm.NewSystem()
	well := physics.NewExternalHarmonic("k", 100)
	for i := 0; i < n; i++ {
		sys.AddParticle(10)
		well.AddParticle(i, mm.Vec3{})
	}
	sys.AddForce(well)

	integ, err := NewLangevin(300, 10, 0.002)
	require.NoError(t, err)
	integ.SetRandomSeed(1)
	ctx, err := engine.New(sys, integ, engine.WithPlatform(reference.NewPlatform()))
	require.NoError(t, err)
	defer ctx.Close()

	require.NoError(t, integ.Step(1000))
	ke := 0.0
	const samples = 5000
	for i := 0; i < samples; i++ {
		require.NoError(t, integ.Step(1))
		st, err := ctx.State(engine.Energy)
		require.NoError(t, err)
		ke += st.KineticEnergy()
	}
	want := 1.5 * n * mm.Boltzmann * 300
	assert.InDelta(t, want, ke/samples, 0.1*want)
}

func TestLangevin_RandomSeed(t *testing.T) {
	integ, err := NewLangevin(100, 1, 0.01)
	require.NoError(t, err)
	sys := oscillator()
	ctx, err := engine.New(sys, integ, engine.WithPlatform(reference.NewPlatform()))
	require.NoError(t, err)
	defer ctx.Close()

	run := func(seed int64) []mm.Vec3 {
		integ.SetRandomSeed(seed)
		require.NoError(t, ctx.SetPositions([]mm.Vec3{{-1, 0, 0}, {1, 0, 0}}))
		require.NoError(t, ctx.SetVelocities(make([]mm.Vec3, 2)))
		require.NoError(t, ctx.Reinitialize())
		require.NoError(t, integ.Step(10))
		st, err := ctx.State(engine.Positions)
		require.NoError(t, err)
		return st.Positions()
	}

	a, b := run(5), run(5)
	c, d := run(10), run(10)
	assert.Equal(t, a, b)
	assert.Equal(t, c, d)
	assert.NotEqual(t, a, c)
}

func TestLangevin_Constraints(t *testing.T) {
	sys := mm.NewSystem()
	for i := 0; i < 4; i++ {
		sys.AddParticle(10)
	}
	sys.AddConstraint(0, 1, 0.2)
	sys.AddConstraint(1, 2, 0.2)
	sys.AddConstraint(2, 3, 0.2)
	well := physics.NewExternalHarmonic("k", 10)
	for i := 0; i < 4; i++ {
		well.AddParticle(i, mm.Vec3{})
	}
	sys.AddForce(well)

	integ, err := NewLangevin(300, 5, 0.002)
	require.NoError(t, err)
	integ.SetRandomSeed(3)
	integ.SetConstraintTolerance(1e-6)
	ctx, err := engine.New(sys, integ, engine.WithPlatform(reference.NewPlatform()))
	require.NoError(t, err)
	defer ctx.Close()
	require.NoError(t, ctx.SetPositions([]mm.Vec3{{0, 0, 0}, {0.2, 0, 0}, {0.2, 0.2, 0}, {0.4, 0.2, 0}}))

	for i := 0; i < 50; i++ {
		require.NoError(t, integ.Step(10))
		st, err := ctx.State(engine.Positions)
		require.NoError(t, err)
		pos := st.Positions()
		for _, c := range sys.Constraints() {
			assert.InDelta(t, c.Distance, pos[c.P1].Sub(pos[c.P2]).Norm(), 1e-5)
		}
	}
}

func TestBinding_Exclusive(t *testing.T) {
	integ, err := NewVerlet(0.001)
	require.NoError(t, err)
	ctx, err := engine.New(oscillator(), integ, engine.WithPlatform(reference.NewPlatform()))
	require.NoError(t, err)

	require.NoError(t, integ.Bind(ctx))
	_, err = engine.New(oscillator(), integ, engine.WithPlatform(reference.NewPlatform()))
	assert.ErrorIs(t, err, mm.ErrAlreadyBound)

	require.NoError(t, ctx.Close())
	assert.ErrorIs(t, integ.Step(1), mm.ErrContextClosed)
}
