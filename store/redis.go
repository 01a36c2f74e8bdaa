package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/NadimHamzehh/vaultflow/log"
)

// BreakerConfig tunes the circuit breaker guarding Redis calls.
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
	FailureRatio        float64
	MinRequests         uint32
}

// DefaultBreakerConfig returns settings tolerant enough that transient
// network blips do not trip the breaker.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         3,
		Interval:            2 * time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 15,
		FailureRatio:        0.5,
		MinRequests:         10,
	}
}

// Redis is a KV implementation over a Redis client. Insert-if-absent maps to
// SET NX, which Redis executes atomically, preserving the first-writer-wins
// guarantee across service instances.
//
// All calls run through a circuit breaker so a failing Redis degrades into
// fast errors instead of piling up blocked requests.
type Redis struct {
	client  redis.UniversalClient
	breaker *gobreaker.CircuitBreaker
	logger  log.Logger
}

// Compile-time assertion: *Redis implements KV.
var _ KV = (*Redis)(nil)

// NewRedis wraps an existing Redis client.
func NewRedis(client redis.UniversalClient, cfg BreakerConfig, logger log.Logger) *Redis {
	logger = log.OrNop(logger)

	settings := gobreaker.Settings{
		Name:        "store-redis",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warnf("circuit breaker %s transitioned %s -> %s", name, from, to)
		},
	}

	return &Redis{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func (r *Redis) execute(op string, fn func() (any, error)) (any, error) {
	result, err := r.breaker.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			r.logger.Warnf("redis %s rejected by circuit breaker: %v", op, err)
		}

		return nil, fmt.Errorf("redis %s: %w", op, err)
	}

	return result, nil
}

// Get implements KV.
func (r *Redis) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	result, err := r.execute("get", func() (any, error) {
		value, err := r.client.Get(ctx, compound(namespace, key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		if err != nil {
			return nil, err
		}

		return value, nil
	})
	if err != nil {
		return nil, false, err
	}

	value, ok := result.([]byte)
	if !ok || value == nil {
		return nil, false, nil
	}

	return value, true, nil
}

// Put implements KV.
func (r *Redis) Put(ctx context.Context, namespace, key string, value []byte) error {
	_, err := r.execute("set", func() (any, error) {
		return nil, r.client.Set(ctx, compound(namespace, key), value, 0).Err()
	})

	return err
}

// PutIfAbsent implements KV via SET NX.
func (r *Redis) PutIfAbsent(ctx context.Context, namespace, key string, value []byte) (bool, error) {
	result, err := r.execute("setnx", func() (any, error) {
		return r.client.SetNX(ctx, compound(namespace, key), value, 0).Result()
	})
	if err != nil {
		return false, err
	}

	won, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("redis setnx: unexpected result type %T", result)
	}

	return won, nil
}
