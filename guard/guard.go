// Package guard evaluates transfer policy before any balance is touched:
// daily and weekly outgoing ceilings, a short-window velocity cap, and a
// cool-off period for recipients the actor has never paid before.
//
// Rules run in a fixed order (daily, weekly, velocity, cool-off) and
// short-circuit on the first violation. The evaluator never holds account
// locks; the engine re-verifies the balance after locking.
package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NadimHamzehh/vaultflow"
	"github.com/NadimHamzehh/vaultflow/log"
	"github.com/NadimHamzehh/vaultflow/store"
)

// seenNamespace isolates recipient-seen records inside the shared KV store.
const seenNamespace = "recipient-seen"

// History is the trailing-window view of the transfer log the limits are
// computed from. Results must reflect the latest-committed log.
type History interface {
	SumOutgoingSince(account string, since time.Time) (decimal.Decimal, error)
	CountOutgoingSince(account string, since time.Time) (int, error)
}

// seenRecord marks the first time an actor targeted a recipient. It is
// created once and never updated; its age drives the cool-off clock.
type seenRecord struct {
	FirstSeenAt time.Time `json:"firstSeenAt"`
}

// Evaluator enforces the configured transfer policy.
type Evaluator struct {
	cfg     vaultflow.GuardConfig
	history History
	seen    store.KV
	logger  log.Logger

	// now is swapped in tests.
	now func() time.Time
}

// New creates an evaluator over the given history and seen-record store.
func New(cfg vaultflow.GuardConfig, history History, seen store.KV, logger log.Logger) *Evaluator {
	return &Evaluator{
		cfg:     cfg,
		history: history,
		seen:    seen,
		logger:  log.OrNop(logger),
		now:     time.Now,
	}
}

// Check returns nil when the proposed transfer passes every rule, or a
// guard_violation error naming the rule that blocked it.
func (e *Evaluator) Check(ctx context.Context, senderAccount, actorID, recipientAccount string, amount decimal.Decimal) error {
	now := e.now().UTC()

	daySum, err := e.history.SumOutgoingSince(senderAccount, now.Add(-24*time.Hour))
	if err != nil {
		return vaultflow.Internal(err)
	}

	if daySum.Add(amount).GreaterThan(e.cfg.DailyLimit) {
		return vaultflow.GuardError(vaultflow.RuleDailyLimit,
			fmt.Sprintf("daily transfer limit of %s exceeded", e.cfg.DailyLimit))
	}

	weekSum, err := e.history.SumOutgoingSince(senderAccount, now.Add(-7*24*time.Hour))
	if err != nil {
		return vaultflow.Internal(err)
	}

	if weekSum.Add(amount).GreaterThan(e.cfg.WeeklyLimit) {
		return vaultflow.GuardError(vaultflow.RuleWeeklyLimit,
			fmt.Sprintf("weekly transfer limit of %s exceeded", e.cfg.WeeklyLimit))
	}

	recent, err := e.history.CountOutgoingSince(senderAccount, now.Add(-e.cfg.VelocityWindow))
	if err != nil {
		return vaultflow.Internal(err)
	}

	if recent >= e.cfg.VelocityMax {
		return vaultflow.GuardError(vaultflow.RuleVelocity,
			"too many transfers in a short time, wait a moment")
	}

	return e.checkCoolOff(ctx, actorID, recipientAccount, now)
}

// checkCoolOff records first contact with a recipient and rejects transfers
// until the cool-off has elapsed. The very first transfer to a new recipient
// is always blocked: it exists to start the clock. Intentional product
// behavior, not a bug.
func (e *Evaluator) checkCoolOff(ctx context.Context, actorID, recipientAccount string, now time.Time) error {
	key := actorID + "/" + recipientAccount

	data, err := json.Marshal(seenRecord{FirstSeenAt: now})
	if err != nil {
		return vaultflow.Internal(err)
	}

	created, err := e.seen.PutIfAbsent(ctx, seenNamespace, key, data)
	if err != nil {
		return vaultflow.Internal(err)
	}

	if created {
		e.logger.Infof("first contact with recipient %s for actor %s, cool-off started", recipientAccount, actorID)

		return vaultflow.GuardError(vaultflow.RuleCoolOff,
			"new recipient is in cool-off period, try again later")
	}

	stored, ok, err := e.seen.Get(ctx, seenNamespace, key)
	if err != nil {
		return vaultflow.Internal(err)
	}

	if !ok {
		// Seen records are never deleted; absence after a failed insert
		// means the store misbehaved.
		return vaultflow.Internal(fmt.Errorf("recipient-seen record vanished for %s", key))
	}

	var rec seenRecord
	if err := json.Unmarshal(stored, &rec); err != nil {
		return vaultflow.Internal(fmt.Errorf("decode recipient-seen record: %w", err))
	}

	if now.Sub(rec.FirstSeenAt) < e.cfg.CoolOff {
		return vaultflow.GuardError(vaultflow.RuleCoolOff,
			"new recipient is in cool-off period, try again later")
	}

	return nil
}

// SetNow overrides the clock. Test hook.
func (e *Evaluator) SetNow(now func() time.Time) {
	e.now = now
}
