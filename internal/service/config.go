package service

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultMinConfidence = 0.2
	DefaultMinPause      = time.Second
)

type Config struct {
	MinConfidence float64
	MinPause      time.Duration
	Logger        Logger
	Now           func() time.Time
	NewID         func() uuid.UUID
}

type Option func(*Config)

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithMinConfidence sets the confidence floor passed to every oracle query.
func WithMinConfidence(v float64) Option {
	return func(c *Config) {
		c.MinConfidence = v
	}
}

// WithMinPause sets the shortest wait between two playlist refreshes.
func WithMinPause(d time.Duration) Option {
	return func(c *Config) {
		c.MinPause = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(c *Config) {
		c.NewID = gen
	}
}

func defaultConfig() *Config {
	return &Config{
		MinConfidence: DefaultMinConfidence,
		MinPause:      DefaultMinPause,
		Now:           time.Now,
		NewID:         uuid.New,
	}
}
