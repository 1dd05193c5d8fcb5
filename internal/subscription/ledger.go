// Package subscription derives and extends each user's paid-until instant.
package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/filehost/core/logger"
	"github.com/m3rciful/filehost/internal/metrics"
	"github.com/m3rciful/filehost/internal/store"
)

// PeriodDays is the length of one paid period.
const PeriodDays = 30

// Profile is the Telegram-side identity refreshed on every update.
type Profile struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Ledger reads and extends subscriptions in the store.
type Ledger struct {
	store   store.Store
	now     func() time.Time
	metrics *metrics.Metrics
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithMetrics records extensions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func NewLedger(st store.Store, opts ...Option) *Ledger {
	l := &Ledger{store: st, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now is the ledger clock.
func (l *Ledger) Now() time.Time { return l.now() }

// HasActive reports whether u's expiry is set and strictly after now.
func HasActive(u store.User, now time.Time) bool {
	return u.SubUntil.Set() && u.SubUntil.After(now)
}

func (l *Ledger) HasActive(u store.User) bool {
	return HasActive(u, l.now())
}

// ExtendTx adds days to the user's subscription inside an open scope. An
// active expiry is stacked on, an unset or lapsed one restarts from now.
// Unknown users are created.
func ExtendTx(tx store.Tx, userID int64, days int, now time.Time) (store.User, error) {
	u, err := tx.User(userID)
	if errors.Is(err, store.ErrNotFound) {
		u, err = store.User{ID: userID}, nil
	}
	if err != nil {
		return store.User{}, err
	}

	base := now
	if HasActive(u, now) {
		base = u.SubUntil.Time
	}
	u.SubUntil = store.At(base.AddDate(0, 0, days))
	if err := tx.PutUser(u); err != nil {
		return store.User{}, err
	}
	return u, nil
}

// Extend persists ExtendTx in its own scope and returns the new expiry.
func (l *Ledger) Extend(ctx context.Context, userID int64, days int, source string) (time.Time, error) {
	var u store.User
	err := l.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		u, err = ExtendTx(tx, userID, days, l.now())
		return err
	})
	if err != nil {
		return time.Time{}, err
	}
	l.Extended(ctx, u, days, source)
	return u.SubUntil.Time, nil
}

// Extended logs and counts an extension committed by a caller's own scope.
func (l *Ledger) Extended(ctx context.Context, u store.User, days int, source string) {
	l.metrics.SubscriptionExtended(source)
	logger.Info(ctx, logger.CompLedger, "subscription.extend",
		slog.String("status", "ok"),
		slog.Int64("target_id", u.ID),
		slog.Int("count", days),
		slog.String("op", source),
		slog.Time("sub_until", u.SubUntil.Time),
	)
}

// EnsureUser creates the user on first contact and refreshes profile fields
// and last_seen otherwise. Subscription fields are never touched.
func (l *Ledger) EnsureUser(ctx context.Context, p Profile) (store.User, error) {
	var u store.User
	err := l.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.User(p.ID)
		if errors.Is(err, store.ErrNotFound) {
			u, err = store.User{ID: p.ID}, nil
		}
		if err != nil {
			return err
		}
		u.Username = p.Username
		u.Tag = ""
		if p.Username != "" {
			u.Tag = "@" + p.Username
		}
		u.FirstName = p.FirstName
		u.LastName = p.LastName
		u.LastSeen = store.At(l.now())
		return tx.PutUser(u)
	})
	return u, err
}

// Status returns the stored user and whether the subscription is active.
// Unknown users are reported as inactive with a zero record.
func (l *Ledger) Status(ctx context.Context, userID int64) (store.User, bool, error) {
	var u store.User
	err := l.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.User(userID)
		if errors.Is(err, store.ErrNotFound) {
			u, err = store.User{ID: userID}, nil
		}
		return err
	})
	if err != nil {
		return store.User{}, false, err
	}
	return u, l.HasActive(u), nil
}

// ActiveCount counts users with an active subscription.
func (l *Ledger) ActiveCount(ctx context.Context) (int, error) {
	now := l.now()
	n := 0
	err := l.store.Atomic(ctx, func(tx store.Tx) error {
		users, err := tx.Users()
		if err != nil {
			return err
		}
		for _, u := range users {
			if HasActive(u, now) {
				n++
			}
		}
		return nil
	})
	return n, err
}
