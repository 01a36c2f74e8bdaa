// Package account provides the account store used by the transfer engine: a
// durable-store stand-in mapping account numbers to balances, with row-level
// exclusive locks and a bounded lock wait.
//
// Balances are mutated only through a held Lock; the store itself enforces
// the balance >= 0 invariant on every write.
package account

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NadimHamzehh/vaultflow"
)

// Account is a registered account. Number is unique and immutable; the
// balance changes only under the account lock.
type Account struct {
	Number    string
	OwnerID   string
	Balance   decimal.Decimal
	CreatedAt time.Time
}

// slot pairs account state with its logical row lock. The token channel
// holds one token when the row is unlocked; acquiring the lock removes it.
type slot struct {
	token chan struct{}
	acct  Account
}

// Store is an in-memory account store with per-account exclusive locks.
type Store struct {
	mu       sync.RWMutex
	slots    map[string]*slot
	lockWait time.Duration
}

// NewStore creates an empty store. lockWait bounds how long Lock blocks
// before failing with lock_timeout.
func NewStore(lockWait time.Duration) *Store {
	return &Store{
		slots:    make(map[string]*slot),
		lockWait: lockWait,
	}
}

// Open registers a new account with an initial balance.
func (s *Store) Open(number, ownerID string, initial decimal.Decimal) error {
	if number == "" {
		return vaultflow.NewError(vaultflow.KindInvalidRequest, "number", "account number is required")
	}

	if initial.IsNegative() {
		return vaultflow.NewError(vaultflow.KindInvalidRequest, "initial", "initial balance cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.slots[number]; exists {
		return vaultflow.NewError(vaultflow.KindInvalidRequest, "number", "account number already registered")
	}

	token := make(chan struct{}, 1)
	token <- struct{}{}

	s.slots[number] = &slot{
		token: token,
		acct: Account{
			Number:    number,
			OwnerID:   ownerID,
			Balance:   initial,
			CreatedAt: time.Now().UTC(),
		},
	}

	return nil
}

// Get returns a snapshot of the account, if it exists. The snapshot may be
// stale the moment it is returned; balance decisions must happen under Lock.
func (s *Store) Get(number string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.slots[number]
	if !ok {
		return Account{}, false
	}

	return sl.acct, true
}

// Lock acquires the exclusive row lock for the account, waiting up to the
// configured bound. Returns account_not_found when the number is unknown and
// lock_timeout when the wait expires.
func (s *Store) Lock(ctx context.Context, number string) (*Lock, error) {
	s.mu.RLock()
	sl, ok := s.slots[number]
	s.mu.RUnlock()

	if !ok {
		return nil, vaultflow.NewError(vaultflow.KindAccountNotFound, "number", "account not found: "+number)
	}

	timer := time.NewTimer(s.lockWait)
	defer timer.Stop()

	select {
	case <-sl.token:
		return &Lock{store: s, slot: sl}, nil
	case <-ctx.Done():
		return nil, vaultflow.NewError(vaultflow.KindLockTimeout, "number", "lock wait canceled for "+number)
	case <-timer.C:
		return nil, vaultflow.NewError(vaultflow.KindLockTimeout, "number", "lock wait expired for "+number)
	}
}

// Lock is a held exclusive row lock. It must be released exactly once.
type Lock struct {
	store    *Store
	slot     *slot
	released bool
}

// Account returns the locked account's current state.
func (l *Lock) Account() Account {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()

	return l.slot.acct
}

// Balance returns the locked account's current balance.
func (l *Lock) Balance() decimal.Decimal {
	return l.Account().Balance
}

// SetBalance writes a new balance for the locked account. Negative balances
// are rejected so the invariant holds no matter what the caller computed.
func (l *Lock) SetBalance(balance decimal.Decimal) error {
	if balance.IsNegative() {
		return vaultflow.NewError(vaultflow.KindInsufficientFunds, "balance", "balance cannot go negative")
	}

	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	l.slot.acct.Balance = balance

	return nil
}

// Unlock releases the row lock. Safe to call once; subsequent calls are
// ignored so deferred cleanup never double-releases.
func (l *Lock) Unlock() {
	if l == nil || l.released {
		return
	}

	l.released = true
	l.slot.token <- struct{}{}
}
