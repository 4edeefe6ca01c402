package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel       = "diatomic"
	DefaultIntegrator  = "rpmd"
	DefaultNumCopies   = 4
	DefaultTemperature = 300.0
	DefaultFriction    = 1.0
	DefaultDt          = 0.0005
	DefaultSteps       = 2000
	DefaultSampleEvery = 10
)

// Config describes one run. Units: K, 1/ps, ps.
type Config struct {
	Model       string             `yaml:"model" json:"model"`
	Params      map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
	Integrator  string             `yaml:"integrator" json:"integrator"`
	Platform    string             `yaml:"platform,omitempty" json:"platform,omitempty"`
	NumCopies   int                `yaml:"num_copies" json:"num_copies"`
	Temperature float64            `yaml:"temperature" json:"temperature"`
	Friction    float64            `yaml:"friction" json:"friction"`
	Dt          float64            `yaml:"dt" json:"dt"`
	Steps       int                `yaml:"steps" json:"steps"`
	SampleEvery int                `yaml:"sample_every" json:"sample_every"`
	Seed        int64              `yaml:"seed" json:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:       DefaultModel,
		Integrator:  DefaultIntegrator,
		NumCopies:   DefaultNumCopies,
		Temperature: DefaultTemperature,
		Friction:    DefaultFriction,
		Dt:          DefaultDt,
		Steps:       DefaultSteps,
		SampleEvery: DefaultSampleEvery,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch c.Integrator {
	case "rpmd", "langevin", "verlet":
	default:
		return fmt.Errorf("unknown integrator: %s", c.Integrator)
	}
	if c.NumCopies < 1 {
		return fmt.Errorf("num_copies must be at least 1, got %d", c.NumCopies)
	}
	if c.Integrator != "rpmd" && c.NumCopies != 1 {
		return fmt.Errorf("integrator %s runs a single copy, got num_copies %d", c.Integrator, c.NumCopies)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.Temperature < 0 || c.Friction < 0 {
		return fmt.Errorf("temperature and friction must be non-negative")
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", c.Steps)
	}
	if c.SampleEvery < 1 {
		return fmt.Errorf("sample_every must be positive, got %d", c.SampleEvery)
	}
	return nil
}

// Env is the process environment ringmd reads.
type Env struct {
	Platform string `env:"RINGMD_PLATFORM"`
	LogLevel string `env:"RINGMD_LOG_LEVEL" envDefault:"info"`
	DataDir  string `env:"RINGMD_DATA" envDefault:".ringmd"`
}

func LoadEnv() (Env, error) {
	return env.ParseAs[Env]()
}
