// Package storetest is a behavioural suite every store.Store backend must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/filehost/internal/store"
)

// Opener returns an empty store; the suite closes it.
type Opener func(t *testing.T) store.Store

// Run executes the suite against stores produced by open.
func Run(t *testing.T, open Opener) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"UserRoundTrip", testUserRoundTrip},
		{"UsersOrdered", testUsersOrdered},
		{"FileInsertOnce", testFileInsertOnce},
		{"InvoiceUpsert", testInvoiceUpsert},
		{"Settings", testSettings},
		{"Counts", testCounts},
		{"RollbackOnError", testRollbackOnError},
		{"ConcurrentIncrements", testConcurrentIncrements},
		{"CanceledContext", testCanceledContext},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

func atomic(t *testing.T, s store.Store, fn func(tx store.Tx) error) {
	t.Helper()
	require.NoError(t, s.Atomic(context.Background(), fn))
}

func testUserRoundTrip(t *testing.T, s store.Store) {
	now := store.At(time.Now())
	want := store.User{
		ID:        42,
		Username:  "alice",
		Tag:       "@alice",
		FirstName: "Alice",
		LastSeen:  now,
		SubUntil:  store.At(now.Add(30 * 24 * time.Hour)),
	}

	atomic(t, s, func(tx store.Tx) error {
		_, err := tx.User(42)
		assert.ErrorIs(t, err, store.ErrNotFound)
		return tx.PutUser(want)
	})

	atomic(t, s, func(tx store.Tx) error {
		got, err := tx.User(42)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Tag, got.Tag)
		assert.True(t, want.SubUntil.Equal(got.SubUntil.Time), "sub_until %v != %v", got.SubUntil, want.SubUntil)
		assert.False(t, got.SubUntil.Before(got.LastSeen.Time))
		return nil
	})
}

func testUsersOrdered(t *testing.T, s store.Store) {
	atomic(t, s, func(tx store.Tx) error {
		for _, id := range []int64{30, 1, 200, 7} {
			require.NoError(t, tx.PutUser(store.User{ID: id}))
		}
		return nil
	})
	atomic(t, s, func(tx store.Tx) error {
		users, err := tx.Users()
		require.NoError(t, err)
		ids := make([]int64, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		assert.Equal(t, []int64{1, 7, 30, 200}, ids)
		return nil
	})
}

func testFileInsertOnce(t *testing.T, s store.Store) {
	f := store.File{
		Code:      "Ab3dEf7hIj0lMn9p",
		FileID:    "BQACAgIAAxkBAAIB",
		FileName:  "report.pdf",
		MimeType:  "application/pdf",
		OwnerID:   42,
		OwnerTag:  "@alice",
		CreatedAt: store.At(time.Now()),
	}
	atomic(t, s, func(tx store.Tx) error { return tx.InsertFile(f) })

	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		return tx.InsertFile(store.File{Code: f.Code, FileID: "other"})
	})
	require.ErrorIs(t, err, store.ErrCodeTaken)

	atomic(t, s, func(tx store.Tx) error {
		got, err := tx.File(f.Code)
		require.NoError(t, err)
		assert.Equal(t, f.Code, got.Code)
		assert.Equal(t, f.FileID, got.FileID)
		assert.Equal(t, f.FileName, got.FileName)
		assert.Equal(t, f.OwnerID, got.OwnerID)

		_, err = tx.File("missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
}

func testInvoiceUpsert(t *testing.T, s store.Store) {
	inv := store.Invoice{
		ID:        "1001",
		UserID:    42,
		CreatedAt: store.At(time.Now()),
		Status:    store.InvoicePending,
		Amount:    decimal.RequireFromString("0.50"),
		PayURL:    "https://t.me/CryptoBot?start=IV1001",
	}
	atomic(t, s, func(tx store.Tx) error { return tx.PutInvoice(inv) })

	inv.Status = store.InvoicePaid
	inv.CheckedAt = store.At(time.Now())
	atomic(t, s, func(tx store.Tx) error { return tx.PutInvoice(inv) })

	atomic(t, s, func(tx store.Tx) error {
		got, err := tx.Invoice("1001")
		require.NoError(t, err)
		assert.Equal(t, store.InvoicePaid, got.Status)
		assert.True(t, got.Amount.Equal(inv.Amount), "amount %s", got.Amount)
		assert.True(t, got.CheckedAt.Set())

		_, err = tx.Invoice("nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
}

func testSettings(t *testing.T, s store.Store) {
	atomic(t, s, func(tx store.Tx) error {
		st, err := tx.Settings()
		require.NoError(t, err)
		assert.True(t, st.MonthlyPrice.IsZero())
		return tx.PutSettings(store.Settings{MonthlyPrice: decimal.RequireFromString("0.75")})
	})
	atomic(t, s, func(tx store.Tx) error {
		st, err := tx.Settings()
		require.NoError(t, err)
		assert.Equal(t, "0.75", st.MonthlyPrice.StringFixed(2))
		return nil
	})
}

func testCounts(t *testing.T, s store.Store) {
	atomic(t, s, func(tx store.Tx) error {
		require.NoError(t, tx.PutUser(store.User{ID: 1}))
		require.NoError(t, tx.PutUser(store.User{ID: 2}))
		require.NoError(t, tx.InsertFile(store.File{Code: "a", FileID: "x"}))
		require.NoError(t, tx.PutInvoice(store.Invoice{ID: "1", UserID: 1, Status: store.InvoicePaid}))
		require.NoError(t, tx.PutInvoice(store.Invoice{ID: "2", UserID: 2, Status: store.InvoicePending}))
		return tx.PutInvoice(store.Invoice{ID: "3", UserID: 2, Status: store.InvoiceExpired})
	})
	atomic(t, s, func(tx store.Tx) error {
		c, err := tx.Counts()
		require.NoError(t, err)
		assert.Equal(t, store.Counts{Users: 2, Files: 1, Invoices: 3, PaidInvoices: 1}, c)
		return nil
	})
}

func testRollbackOnError(t *testing.T, s store.Store) {
	boom := errors.New("boom")
	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		require.NoError(t, tx.PutUser(store.User{ID: 9}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	atomic(t, s, func(tx store.Tx) error {
		_, err := tx.User(9)
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
}

// Read-modify-write scopes must not lose updates under contention.
func testConcurrentIncrements(t *testing.T, s store.Store) {
	const workers = 8
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	atomic(t, s, func(tx store.Tx) error {
		return tx.PutUser(store.User{ID: 5, SubUntil: store.At(base)})
	})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Atomic(context.Background(), func(tx store.Tx) error {
				u, err := tx.User(5)
				if err != nil {
					return err
				}
				u.SubUntil = store.At(u.SubUntil.Add(24 * time.Hour))
				return tx.PutUser(u)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	atomic(t, s, func(tx store.Tx) error {
		u, err := tx.User(5)
		require.NoError(t, err)
		assert.True(t, u.SubUntil.Equal(base.Add(workers*24*time.Hour)), "sub_until %v", u.SubUntil)
		return nil
	})
}

func testCanceledContext(t *testing.T, s store.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.Atomic(ctx, func(store.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
