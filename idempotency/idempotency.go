// Package idempotency deduplicates retried transfer requests.
//
// A reservation is inserted before any balance is touched; the store's
// atomic insert-if-absent is the only mutual exclusion in play, so
// concurrent duplicate submissions race safely and exactly one wins. The
// request fingerprint distinguishes a safe replay (same key, same request)
// from a client bug (same key, different request). Records are never
// deleted here; retention is an operational concern.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NadimHamzehh/vaultflow"
	"github.com/NadimHamzehh/vaultflow/store"
)

// namespace isolates idempotency records inside the shared KV store.
const namespace = "idempotency"

// Record is one (actor, key) reservation. TransferID is empty until the
// transfer completes.
type Record struct {
	ActorID     string    `json:"actorId"`
	Key         string    `json:"key"`
	Fingerprint string    `json:"fingerprint"`
	TransferID  string    `json:"transferId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// State describes what the caller should do with a reservation.
type State int

const (
	// StateReserved means this caller won a fresh reservation and must
	// execute the transfer.
	StateReserved State = iota
	// StateResumed means an abandoned reservation (no transfer attached,
	// older than the grace) was picked up; the caller must re-attempt the
	// transfer under the same record.
	StateResumed
	// StateReplayed means the transfer already completed; the caller must
	// return the recorded transfer id without re-executing.
	StateReplayed
)

// Reservation is the outcome of Reserve.
type Reservation struct {
	Record Record
	State  State
}

// Fingerprint hashes the normalized request so equal requests always map to
// the same value regardless of amount formatting.
func Fingerprint(sender, recipient string, amount decimal.Decimal) string {
	raw := sender + "|" + recipient + "|" + amount.StringFixed(2)
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}

// Store persists idempotency records in the shared KV store.
type Store struct {
	kv    store.KV
	grace time.Duration

	// now is swapped in tests.
	now func() time.Time
}

// NewStore creates an idempotency store. grace separates an in-flight
// duplicate (reservation younger than grace, rejected as transient) from an
// abandoned one left by a crash (older than grace, safely resumable).
func NewStore(kv store.KV, grace time.Duration) *Store {
	return &Store{
		kv:    kv,
		grace: grace,
		now:   time.Now,
	}
}

func recordKey(actorID, key string) string {
	return actorID + "/" + key
}

// Reserve claims (actorID, key) for the fingerprinted request. Exactly one
// of the concurrent callers wins the insert; everyone else is classified by
// the existing record.
func (s *Store) Reserve(ctx context.Context, actorID, key, fingerprint string) (Reservation, error) {
	rec := Record{
		ActorID:     actorID,
		Key:         key,
		Fingerprint: fingerprint,
		CreatedAt:   s.now().UTC(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return Reservation{}, vaultflow.Internal(err)
	}

	won, err := s.kv.PutIfAbsent(ctx, namespace, recordKey(actorID, key), data)
	if err != nil {
		return Reservation{}, vaultflow.Internal(err)
	}

	if won {
		return Reservation{Record: rec, State: StateReserved}, nil
	}

	existing, err := s.lookup(ctx, actorID, key)
	if err != nil {
		return Reservation{}, err
	}

	if existing.Fingerprint != fingerprint {
		return Reservation{}, vaultflow.NewError(
			vaultflow.KindIdempotencyConflict,
			"idempotencyKey",
			"idempotency key already used with a different request",
		)
	}

	if existing.TransferID != "" {
		return Reservation{Record: existing, State: StateReplayed}, nil
	}

	if s.now().UTC().Sub(existing.CreatedAt) < s.grace {
		return Reservation{}, vaultflow.NewError(
			vaultflow.KindLockTimeout,
			"idempotencyKey",
			"a request with this idempotency key is still being processed",
		)
	}

	return Reservation{Record: existing, State: StateResumed}, nil
}

// Complete attaches the resulting transfer id to the reservation.
func (s *Store) Complete(ctx context.Context, rec Record, transferID string) error {
	rec.TransferID = transferID

	data, err := json.Marshal(rec)
	if err != nil {
		return vaultflow.Internal(err)
	}

	if err := s.kv.Put(ctx, namespace, recordKey(rec.ActorID, rec.Key), data); err != nil {
		return vaultflow.Internal(err)
	}

	return nil
}

// lookup reads and decodes the record for (actorID, key).
func (s *Store) lookup(ctx context.Context, actorID, key string) (Record, error) {
	data, ok, err := s.kv.Get(ctx, namespace, recordKey(actorID, key))
	if err != nil {
		return Record{}, vaultflow.Internal(err)
	}

	if !ok {
		// Lost the insert race yet found nothing: records are never
		// deleted, so this indicates storage trouble.
		return Record{}, vaultflow.Internal(errors.New("idempotency record vanished after failed insert"))
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, vaultflow.Internal(fmt.Errorf("decode idempotency record: %w", err))
	}

	return rec, nil
}

// SetNow overrides the clock. Test hook.
func (s *Store) SetNow(now func() time.Time) {
	s.now = now
}
