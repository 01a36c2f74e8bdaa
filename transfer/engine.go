// Package transfer implements the funds-transfer engine: the single writer
// of account balances and the orchestrator of rate limiting, idempotency,
// guard policy, deterministic pair locking, and ledger append.
package transfer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/NadimHamzehh/vaultflow"
	"github.com/NadimHamzehh/vaultflow/account"
	"github.com/NadimHamzehh/vaultflow/idempotency"
	"github.com/NadimHamzehh/vaultflow/ledger"
	"github.com/NadimHamzehh/vaultflow/log"
)

// AccountStore provides locked access to account balances.
type AccountStore interface {
	Lock(ctx context.Context, number string) (*account.Lock, error)
}

// Ledger appends completed transfers.
type Ledger interface {
	Append(sender, recipient string, amount decimal.Decimal) (ledger.Record, error)
}

// IdempotencyStore reserves and completes request deduplication records.
type IdempotencyStore interface {
	Reserve(ctx context.Context, actorID, key, fingerprint string) (idempotency.Reservation, error)
	Complete(ctx context.Context, rec idempotency.Record, transferID string) error
}

// Guard evaluates transfer policy before balances are touched.
type Guard interface {
	Check(ctx context.Context, senderAccount, actorID, recipientAccount string, amount decimal.Decimal) error
}

// Limiter throttles transfer attempts per actor.
type Limiter interface {
	TryConsume(key string) bool
}

// Deps wires the engine's collaborators. Limiter may be nil when throttling
// happens upstream.
type Deps struct {
	Accounts    AccountStore
	Ledger      Ledger
	Idempotency IdempotencyStore
	Guard       Guard
	Limiter     Limiter
}

// Result is the successful outcome of Execute. Replayed is true when an
// earlier completion was returned instead of re-executing.
type Result struct {
	TransferID string
	Replayed   bool
}

// Engine executes transfers.
type Engine struct {
	deps   Deps
	logger log.Logger
}

// NewEngine creates a transfer engine.
func NewEngine(deps Deps, logger log.Logger) *Engine {
	return &Engine{
		deps:   deps,
		logger: log.OrNop(logger),
	}
}

// Execute moves amount from the sender to the recipient account on behalf of
// the actor. An empty idempotencyKey disables deduplication for this call.
//
// Failures carry a vaultflow.Kind; only lock_timeout, rate_limited, and
// internal are safe to retry as-is.
func (e *Engine) Execute(ctx context.Context, actorID, senderAccount, recipientAccount string, amount decimal.Decimal, idempotencyKey string) (Result, error) {
	if err := validate(senderAccount, recipientAccount, amount); err != nil {
		return Result{}, err
	}

	if e.deps.Limiter != nil && !e.deps.Limiter.TryConsume("transfer:"+actorID) {
		return Result{}, vaultflow.NewError(vaultflow.KindRateLimited, "", "too many transfers, slow down")
	}

	// Reserve before touching balances so a crash anywhere below leaves a
	// resumable record rather than an unprotected retry.
	var reservation idempotency.Reservation

	reserved := idempotencyKey != ""
	if reserved {
		fingerprint := idempotency.Fingerprint(senderAccount, recipientAccount, amount)

		var err error

		reservation, err = e.deps.Idempotency.Reserve(ctx, actorID, idempotencyKey, fingerprint)
		if err != nil {
			return Result{}, err
		}

		if reservation.State == idempotency.StateReplayed {
			e.logger.Infof("replayed transfer %s for actor %s", reservation.Record.TransferID, actorID)

			return Result{TransferID: reservation.Record.TransferID, Replayed: true}, nil
		}
	}

	if err := e.deps.Guard.Check(ctx, senderAccount, actorID, recipientAccount, amount); err != nil {
		return Result{}, err
	}

	rec, err := e.executeLocked(ctx, senderAccount, recipientAccount, amount)
	if err != nil {
		return Result{}, err
	}

	if reserved {
		// The transfer is already committed; a completion failure only
		// leaves the reservation resumable, which a later replay of the
		// same key resolves against the ledger record logged here.
		if err := e.deps.Idempotency.Complete(ctx, reservation.Record, rec.ID); err != nil {
			e.logger.Errorf("transfer %s committed but idempotency completion failed: %v", rec.ID, err)
		}
	}

	e.logger.Infof("transfer %s: %s -> %s amount %s", rec.ID, senderAccount, recipientAccount, amount)

	return Result{TransferID: rec.ID}, nil
}

// executeLocked performs the balance mutation and ledger append under both
// account locks, all-or-nothing.
func (e *Engine) executeLocked(ctx context.Context, senderAccount, recipientAccount string, amount decimal.Decimal) (ledger.Record, error) {
	// Always lock in ascending account-number order so transfers sharing a
	// pair in opposite directions cannot deadlock each other.
	first, second := senderAccount, recipientAccount
	if second < first {
		first, second = second, first
	}

	firstLock, err := e.deps.Accounts.Lock(ctx, first)
	if err != nil {
		return ledger.Record{}, err
	}
	defer firstLock.Unlock()

	secondLock, err := e.deps.Accounts.Lock(ctx, second)
	if err != nil {
		return ledger.Record{}, err
	}
	defer secondLock.Unlock()

	senderLock, recipientLock := firstLock, secondLock
	if first != senderAccount {
		senderLock, recipientLock = secondLock, firstLock
	}

	// The guard and validation ran outside the locks; the balance check
	// must be redone here to close the race window.
	senderBalance := senderLock.Balance()
	if senderBalance.LessThan(amount) {
		return ledger.Record{}, vaultflow.NewError(vaultflow.KindInsufficientFunds, "amount", "insufficient funds")
	}

	recipientBalance := recipientLock.Balance()

	if err := senderLock.SetBalance(senderBalance.Sub(amount)); err != nil {
		return ledger.Record{}, err
	}

	if err := recipientLock.SetBalance(recipientBalance.Add(amount)); err != nil {
		// Roll the debit back before the locks drop.
		_ = senderLock.SetBalance(senderBalance)

		return ledger.Record{}, err
	}

	rec, err := e.deps.Ledger.Append(senderAccount, recipientAccount, amount)
	if err != nil {
		_ = senderLock.SetBalance(senderBalance)
		_ = recipientLock.SetBalance(recipientBalance)

		return ledger.Record{}, vaultflow.Internal(err)
	}

	return rec, nil
}

// validate rejects malformed requests before any collaborator is consulted.
func validate(senderAccount, recipientAccount string, amount decimal.Decimal) error {
	if senderAccount == "" || recipientAccount == "" {
		return vaultflow.NewError(vaultflow.KindInvalidRequest, "account", "sender and recipient accounts are required")
	}

	if senderAccount == recipientAccount {
		return vaultflow.NewError(vaultflow.KindInvalidRequest, "recipientAccount", "cannot transfer to the same account")
	}

	if !amount.IsPositive() {
		return vaultflow.NewError(vaultflow.KindInvalidRequest, "amount", "amount must be positive")
	}

	if !amount.Equal(amount.Round(2)) {
		return vaultflow.NewError(vaultflow.KindInvalidRequest, "amount", "amount supports at most 2 fractional digits")
	}

	return nil
}
