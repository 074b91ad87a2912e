package scheduler

import (
	"errors"
	"time"
)

type Config struct {
	// FrameBudget is how long a work loop runs before should_yield reports true.
	FrameBudget         time.Duration `yaml:"frame_budget"`
	UserBlockingTimeout time.Duration `yaml:"user_blocking_timeout"`
	NormalTimeout       time.Duration `yaml:"normal_timeout"`
	LowTimeout          time.Duration `yaml:"low_timeout"`
}

func DefaultConfig() Config {
	return Config{
		FrameBudget:         5 * time.Millisecond,
		UserBlockingTimeout: 250 * time.Millisecond,
		NormalTimeout:       5000 * time.Millisecond,
		LowTimeout:          10000 * time.Millisecond,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.FrameBudget <= 0 {
		errs = append(errs, errors.New("frame_budget must be positive"))
	}
	if c.UserBlockingTimeout < 0 || c.NormalTimeout < 0 || c.LowTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.UserBlockingTimeout > c.NormalTimeout || c.NormalTimeout > c.LowTimeout {
		errs = append(errs, errors.New("timeouts must not decrease with priority"))
	}
	return errors.Join(errs...)
}
