// Package ledger provides the append-only log of completed transfers and the
// trailing-window queries the guardrails are built on.
//
// Records are immutable once appended. Queries always reflect the
// latest-committed log; there is no caching layer in between.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record is one completed transfer.
type Record struct {
	ID        string
	Sender    string
	Recipient string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Ledger is an in-memory append-only transfer log indexed by sender for the
// outgoing-window queries.
type Ledger struct {
	mu       sync.RWMutex
	records  []Record
	bySender map[string][]int

	// now is swapped in tests to pin timestamps.
	now func() time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		bySender: make(map[string][]int),
		now:      time.Now,
	}
}

// Append records a completed transfer and returns the stored record.
func (l *Ledger) Append(sender, recipient string, amount decimal.Decimal) (Record, error) {
	rec := Record{
		ID:        uuid.NewString(),
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		CreatedAt: l.now().UTC(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)
	l.bySender[sender] = append(l.bySender[sender], len(l.records)-1)

	return rec, nil
}

// SumOutgoingSince returns the total amount the account has sent at or after
// the given instant.
func (l *Ledger) SumOutgoingSince(account string, since time.Time) (decimal.Decimal, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sum := decimal.Zero

	for _, i := range l.bySender[account] {
		if !l.records[i].CreatedAt.Before(since) {
			sum = sum.Add(l.records[i].Amount)
		}
	}

	return sum, nil
}

// CountOutgoingSince returns how many transfers the account has sent at or
// after the given instant.
func (l *Ledger) CountOutgoingSince(account string, since time.Time) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0

	for _, i := range l.bySender[account] {
		if !l.records[i].CreatedAt.Before(since) {
			count++
		}
	}

	return count, nil
}

// History returns the transfers the account participated in, most recent
// first. Feeds the statement and activity surfaces downstream.
func (l *Ledger) History(account string) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Record

	for _, rec := range l.records {
		if rec.Sender == account || rec.Recipient == account {
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}

// SetNow overrides the clock. Test hook.
func (l *Ledger) SetNow(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.now = now
}
