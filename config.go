// Package blades holds the experiment configuration shared by the
// coordinator and the simulation tooling.
package blades

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

var (
	errNoRounds       = errors.New("experiment needs at least one round")
	errNoSteps        = errors.New("experiment needs at least one local step per round")
	errNoClients      = errors.New("experiment needs at least one client")
	errTooManyAdverse = errors.New("byzantine clients must be fewer than total clients")
	errBadMomentum    = errors.New("momentum must be in [0, 1)")
	errBadLearnRate   = errors.New("learning rate must be positive")
)

type Config struct {
	Experiment  ExperimentConfig  `toml:"experiment"`
	Aggregation AggregationConfig `toml:"aggregation"`
	Clients     ClientsConfig     `toml:"clients"`
}

type ExperimentConfig struct {
	Rounds     int   `toml:"rounds"`
	LocalSteps int   `toml:"local_steps"`
	Seed       int64 `toml:"seed"`
}

type AggregationConfig struct {
	Algorithm string  `toml:"algorithm"`
	MaxIter   int     `toml:"max_iter"`
	Eps       float64 `toml:"eps"`
	Ftol      float64 `toml:"ftol"`
}

type ClientsConfig struct {
	Num          int     `toml:"num"`
	Byzantine    int     `toml:"byzantine"`
	Momentum     float64 `toml:"momentum"`
	LearningRate float64 `toml:"learning_rate"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Experiment.Rounds < 1 {
		return errNoRounds
	}
	if c.Experiment.LocalSteps < 1 {
		return errNoSteps
	}
	if c.Clients.Num < 1 {
		return errNoClients
	}
	if c.Clients.Byzantine < 0 || c.Clients.Byzantine >= c.Clients.Num {
		return errTooManyAdverse
	}
	if c.Clients.Momentum < 0 || c.Clients.Momentum >= 1 {
		return errBadMomentum
	}
	if c.Clients.LearningRate <= 0 {
		return errBadLearnRate
	}

	return nil
}
