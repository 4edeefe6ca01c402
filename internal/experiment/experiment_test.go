package experiment

import (
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ringmd/internal/config"
	"github.com/san-kum/ringmd/internal/mm"
)

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.WarnLevel)
	os.Exit(m.Run())
}

func shortConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Platform = "reference"
	cfg.Steps = 100
	cfg.SampleEvery = 10
	cfg.Seed = 42
	return cfg
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"langevin", "rpmd", "verlet"}, r.ListIntegrators())

	cfg := shortConfig()
	cfg.Integrator = "leapfrog"
	_, err := r.GetIntegrator(cfg)
	assert.ErrorContains(t, err, "unknown integrator: leapfrog")

	cfg.Integrator = "rpmd"
	cfg.NumCopies = 0
	_, err = r.GetIntegrator(cfg)
	assert.ErrorIs(t, err, mm.ErrParameterBounds)
}

func TestRunRPMD(t *testing.T) {
	cfg := shortConfig()
	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "reference", res.Platform)
	assert.Equal(t, int64(42), res.Seed)
	assert.Equal(t, 100, res.StepsTaken)
	require.Len(t, res.Samples, 11)
	assert.Zero(t, res.Samples[0].Time)
	assert.InDelta(t, 100*cfg.Dt, res.Samples[10].Time, 1e-12)
	for _, s := range res.Samples {
		assert.Positive(t, s.Kinetic)
	}
	assert.Contains(t, res.Metrics, "kinetic_energy")
	assert.Contains(t, res.Metrics, "temperature")
	assert.Equal(t, 1.0, res.Metrics["stability"])
}

func TestRunIsDeterministic(t *testing.T) {
	a, err := Run(context.Background(), shortConfig())
	require.NoError(t, err)
	b, err := Run(context.Background(), shortConfig())
	require.NoError(t, err)
	assert.Equal(t, a.Samples, b.Samples)

	cfg := shortConfig()
	cfg.Seed = 43
	c, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.Samples[10], c.Samples[10])
}

func TestRunPicksSeed(t *testing.T) {
	cfg := shortConfig()
	cfg.Seed = 0
	cfg.Steps = 10
	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotZero(t, res.Seed)
	assert.Equal(t, res.Seed, res.Config.Seed)
	assert.Zero(t, cfg.Seed, "caller's config must not change")
}

func TestRunClassical(t *testing.T) {
	for _, name := range []string{"verlet", "langevin"} {
		t.Run(name, func(t *testing.T) {
			cfg := shortConfig()
			cfg.Integrator = name
			cfg.NumCopies = 1
			res, err := Run(context.Background(), cfg)
			require.NoError(t, err)
			require.Len(t, res.Samples, 11)
			for _, s := range res.Samples {
				assert.Zero(t, s.Spread)
			}
		})
	}
}

func TestRunUnevenChunks(t *testing.T) {
	cfg := shortConfig()
	cfg.Steps = 25
	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 25, res.StepsTaken)
	assert.Len(t, res.Samples, 4)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		want   string
	}{
		{"invalid", func(c *config.Config) { c.Dt = 0 }, "dt"},
		{"unknown model", func(c *config.Config) { c.Model = "graphene" }, "unknown model: graphene"},
		{"unknown platform", func(c *config.Config) { c.Platform = "opencl" }, "opencl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := shortConfig()
			tt.modify(cfg)
			_, err := Run(context.Background(), cfg)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Run(ctx, shortConfig())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Zero(t, res.StepsTaken)
	assert.Len(t, res.Samples, 1)
}

func TestEnsemble(t *testing.T) {
	cfg := shortConfig()
	cfg.Steps = 20
	results, err := Ensemble(context.Background(), cfg, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, int64(42+i), res.Seed)
		assert.Equal(t, 20, res.StepsTaken)
	}

	single, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, single.Samples, results[0].Samples)

	_, err = Ensemble(context.Background(), cfg, 0)
	assert.Error(t, err)
}

func TestThermalVelocities(t *testing.T) {
	sys := mm.NewSystem()
	sys.AddParticle(0)
	for i := 0; i < 500; i++ {
		sys.AddParticle(10)
	}
	vel := thermalVelocities(sys, 300, 1)
	assert.Equal(t, mm.Vec3{}, vel[0])

	ke := 0.0
	for _, v := range vel[1:] {
		ke += 0.5 * 10 * v.Dot(v)
	}
	want := 1.5 * 500 * mm.Boltzmann * 300
	assert.InDelta(t, want, ke, 0.1*want)

	assert.Equal(t, vel, thermalVelocities(sys, 300, 1))
	zero := thermalVelocities(sys, 0, 1)
	for _, v := range zero {
		assert.Equal(t, mm.Vec3{}, v)
	}
}
