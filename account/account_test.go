//go:build unit

package account

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NadimHamzehh/vaultflow"
)

func TestStoreOpenAndGet(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Second)

	require.NoError(t, s.Open("ACC-1", "user-1", decimal.RequireFromString("100.00")))

	acct, ok := s.Get("ACC-1")
	require.True(t, ok)
	assert.Equal(t, "ACC-1", acct.Number)
	assert.Equal(t, "user-1", acct.OwnerID)
	assert.True(t, acct.Balance.Equal(decimal.RequireFromString("100.00")))

	_, ok = s.Get("ACC-2")
	assert.False(t, ok)
}

func TestStoreOpenRejections(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Second)
	require.NoError(t, s.Open("ACC-1", "user-1", decimal.Zero))

	tests := []struct {
		name    string
		number  string
		initial decimal.Decimal
	}{
		{name: "duplicate number", number: "ACC-1", initial: decimal.Zero},
		{name: "empty number", number: "", initial: decimal.Zero},
		{name: "negative initial", number: "ACC-2", initial: decimal.RequireFromString("-1")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := s.Open(tt.number, "user-x", tt.initial)
			require.Error(t, err)
			assert.Equal(t, vaultflow.KindInvalidRequest, vaultflow.KindOf(err))
		})
	}
}

func TestLockMutatesBalance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(time.Second)
	require.NoError(t, s.Open("ACC-1", "user-1", decimal.RequireFromString("50.00")))

	l, err := s.Lock(ctx, "ACC-1")
	require.NoError(t, err)

	require.NoError(t, l.SetBalance(decimal.RequireFromString("30.00")))
	assert.True(t, l.Balance().Equal(decimal.RequireFromString("30.00")))

	l.Unlock()

	acct, _ := s.Get("ACC-1")
	assert.True(t, acct.Balance.Equal(decimal.RequireFromString("30.00")))
}

func TestLockRejectsNegativeBalance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(time.Second)
	require.NoError(t, s.Open("ACC-1", "user-1", decimal.RequireFromString("10.00")))

	l, err := s.Lock(ctx, "ACC-1")
	require.NoError(t, err)

	defer l.Unlock()

	err = l.SetBalance(decimal.RequireFromString("-0.01"))
	require.Error(t, err)
	assert.Equal(t, vaultflow.KindInsufficientFunds, vaultflow.KindOf(err))

	// The rejected write left the balance untouched.
	assert.True(t, l.Balance().Equal(decimal.RequireFromString("10.00")))
}

func TestLockUnknownAccount(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Second)

	_, err := s.Lock(context.Background(), "ACC-404")
	require.Error(t, err)
	assert.Equal(t, vaultflow.KindAccountNotFound, vaultflow.KindOf(err))
}

func TestLockWaitExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(50 * time.Millisecond)
	require.NoError(t, s.Open("ACC-1", "user-1", decimal.Zero))

	held, err := s.Lock(ctx, "ACC-1")
	require.NoError(t, err)

	_, err = s.Lock(ctx, "ACC-1")
	require.Error(t, err)
	assert.Equal(t, vaultflow.KindLockTimeout, vaultflow.KindOf(err))

	held.Unlock()

	// Released lock is acquirable again.
	l, err := s.Lock(ctx, "ACC-1")
	require.NoError(t, err)
	l.Unlock()
}

func TestLockCanceledContext(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Minute)
	require.NoError(t, s.Open("ACC-1", "user-1", decimal.Zero))

	held, err := s.Lock(context.Background(), "ACC-1")
	require.NoError(t, err)

	defer held.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Lock(ctx, "ACC-1")
	require.Error(t, err)
	assert.Equal(t, vaultflow.KindLockTimeout, vaultflow.KindOf(err))
}

func TestUnlockIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore(50 * time.Millisecond)
	require.NoError(t, s.Open("ACC-1", "user-1", decimal.Zero))

	l, err := s.Lock(ctx, "ACC-1")
	require.NoError(t, err)

	l.Unlock()
	l.Unlock()

	// A double release must not leave a spare token behind.
	first, err := s.Lock(ctx, "ACC-1")
	require.NoError(t, err)

	defer first.Unlock()

	_, err = s.Lock(ctx, "ACC-1")
	require.Error(t, err)
	assert.Equal(t, vaultflow.KindLockTimeout, vaultflow.KindOf(err))
}
