package vaultflow

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// GuardConfig holds the policy ceilings enforced before any balance is
// touched. Defaults mirror the production policy.
type GuardConfig struct {
	DailyLimit     decimal.Decimal `env:"DAILY_LIMIT" envDefault:"5000.00"`
	WeeklyLimit    decimal.Decimal `env:"WEEKLY_LIMIT" envDefault:"20000.00"`
	VelocityWindow time.Duration   `env:"VELOCITY_WINDOW" envDefault:"5m"`
	VelocityMax    int             `env:"VELOCITY_MAX" envDefault:"5"`
	CoolOff        time.Duration   `env:"COOL_OFF" envDefault:"24h"`
}

// RateConfig configures one token-bucket class. PerMinute is the continuous
// refill rate; Burst is the bucket capacity; IdleTTL is how long an untouched
// bucket survives before eviction.
type RateConfig struct {
	PerMinute int           `env:"PER_MINUTE" envDefault:"30"`
	Burst     int           `env:"BURST" envDefault:"10"`
	IdleTTL   time.Duration `env:"IDLE_TTL" envDefault:"30m"`
}

// Config is the construction-time configuration surface of the engine.
// It is read once at wiring time, never per call.
type Config struct {
	Guard        GuardConfig `envPrefix:"GUARD_"`
	LoginRate    RateConfig  `envPrefix:"RATELIMIT_LOGIN_"`
	TransferRate RateConfig  `envPrefix:"RATELIMIT_TRANSFER_"`

	// LockWait bounds how long a transfer waits for the paired account
	// locks before failing with lock_timeout.
	LockWait time.Duration `env:"LOCK_WAIT" envDefault:"3s"`

	// ReservationGrace separates an in-flight duplicate submission from an
	// abandoned reservation left by a crash. Reservations younger than the
	// grace are treated as still running.
	ReservationGrace time.Duration `env:"RESERVATION_GRACE" envDefault:"10s"`
}

// LoadConfig reads configuration from VAULTFLOW_-prefixed environment
// variables, falling back to defaults, and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "VAULTFLOW_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects configurations that would disable or invert a guarantee.
func (c Config) Validate() error {
	if !c.Guard.DailyLimit.IsPositive() {
		return fmt.Errorf("guard: daily limit must be positive, got %s", c.Guard.DailyLimit)
	}

	if c.Guard.WeeklyLimit.LessThan(c.Guard.DailyLimit) {
		return fmt.Errorf("guard: weekly limit %s below daily limit %s", c.Guard.WeeklyLimit, c.Guard.DailyLimit)
	}

	if c.Guard.VelocityWindow <= 0 || c.Guard.VelocityMax <= 0 {
		return fmt.Errorf("guard: velocity window and max must be positive")
	}

	if c.Guard.CoolOff <= 0 {
		return fmt.Errorf("guard: cool-off must be positive")
	}

	for _, rc := range []struct {
		name string
		cfg  RateConfig
	}{
		{"login", c.LoginRate},
		{"transfer", c.TransferRate},
	} {
		if rc.cfg.PerMinute <= 0 || rc.cfg.Burst <= 0 {
			return fmt.Errorf("ratelimit %s: per-minute and burst must be positive", rc.name)
		}
	}

	if c.LockWait <= 0 {
		return fmt.Errorf("lock wait must be positive")
	}

	if c.ReservationGrace <= 0 {
		return fmt.Errorf("reservation grace must be positive")
	}

	return nil
}
