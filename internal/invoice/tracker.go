// Package invoice issues provider invoices and links each paid invoice to
// exactly one subscription extension.
package invoice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m3rciful/filehost/core/logger"
	"github.com/m3rciful/filehost/internal/apperr"
	"github.com/m3rciful/filehost/internal/cryptopay"
	"github.com/m3rciful/filehost/internal/metrics"
	"github.com/m3rciful/filehost/internal/store"
	"github.com/m3rciful/filehost/internal/subscription"
)

const (
	// TTL is how long a fresh invoice can be paid.
	TTL = 15 * time.Minute
	// Description is shown to the payer in @CryptoBot.
	Description = "Подписка FileHosting на 1 месяц"

	defaultCallTimeout = 15 * time.Second
)

// Provider is the subset of the payment API the tracker needs.
type Provider interface {
	CreateInvoice(ctx context.Context, p cryptopay.CreateInvoiceParams) (cryptopay.Invoice, error)
	GetInvoice(ctx context.Context, id string) (cryptopay.Invoice, bool, error)
}

// Options configures a Tracker. Only Store, Provider and Ledger are required.
type Options struct {
	Store        store.Store
	Provider     Provider
	Ledger       *subscription.Ledger
	Metrics      *metrics.Metrics
	DefaultPrice decimal.Decimal
	CallTimeout  time.Duration
}

// Tracker records invoice state and the monthly price.
type Tracker struct {
	store        store.Store
	provider     Provider
	ledger       *subscription.Ledger
	metrics      *metrics.Metrics
	defaultPrice decimal.Decimal
	callTimeout  time.Duration
}

func NewTracker(opts Options) *Tracker {
	t := &Tracker{
		store:        opts.Store,
		provider:     opts.Provider,
		ledger:       opts.Ledger,
		metrics:      opts.Metrics,
		defaultPrice: opts.DefaultPrice,
		callTimeout:  opts.CallTimeout,
	}
	if t.callTimeout <= 0 {
		t.callTimeout = defaultCallTimeout
	}
	return t
}

// StatusFromProvider maps provider statuses onto the local set.
func StatusFromProvider(s cryptopay.Status) store.InvoiceStatus {
	switch s {
	case cryptopay.StatusActive:
		return store.InvoicePending
	case cryptopay.StatusPaid:
		return store.InvoicePaid
	case cryptopay.StatusExpired:
		return store.InvoiceExpired
	default:
		return store.InvoiceUnknown
	}
}

// Create issues an invoice at the current monthly price, stores it as
// pending and remembers it as the user's last invoice.
func (t *Tracker) Create(ctx context.Context, userID int64) (store.Invoice, error) {
	const op = "invoice.create"
	price, err := t.Price(ctx)
	if err != nil {
		return store.Invoice{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, t.callTimeout)
	remote, err := t.provider.CreateInvoice(callCtx, cryptopay.CreateInvoiceParams{
		Amount:      price,
		Fiat:        "USD",
		Description: Description,
		Payload:     uuid.NewString(),
		ExpiresIn:   TTL,
	})
	cancel()
	if err != nil {
		logger.Warn(ctx, logger.CompInvoices, op,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return store.Invoice{}, apperr.E(apperr.KindPaymentProvider, op, err)
	}
	if remote.ID == "" {
		return store.Invoice{}, apperr.Errorf(apperr.KindPaymentProvider, op, "provider returned no invoice id")
	}

	inv := store.Invoice{
		ID:        remote.ID,
		UserID:    userID,
		CreatedAt: store.At(t.ledger.Now()),
		Status:    store.InvoicePending,
		Amount:    price,
		PayURL:    remote.PayURL,
	}
	err = t.store.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.PutInvoice(inv); err != nil {
			return err
		}
		u, err := tx.User(userID)
		if errors.Is(err, store.ErrNotFound) {
			u, err = store.User{ID: userID}, nil
		}
		if err != nil {
			return err
		}
		u.LastInvoice = inv.ID
		return tx.PutUser(u)
	})
	if err != nil {
		return store.Invoice{}, err
	}

	t.metrics.InvoiceCreated()
	logger.Info(ctx, logger.CompInvoices, op,
		slog.String("status", "ok"),
		slog.String("invoice_id", inv.ID),
		slog.Int64("target_id", userID),
		slog.String("amount", inv.Amount.StringFixed(2)),
	)
	return inv, nil
}

// Result is the outcome of Reconcile. SubUntil is set only when this call
// extended the subscription.
type Result struct {
	Invoice  store.Invoice
	Extended bool
	SubUntil time.Time
}

// Reconcile refreshes the invoice from the provider. The transition to paid
// extends the owner's subscription by one period in the same scope, so
// repeated or concurrent checks of a paid invoice extend once. An invoice
// the store has never seen is recorded for requester first. A paid invoice
// keeps its status whatever the provider reports afterwards.
func (t *Tracker) Reconcile(ctx context.Context, invoiceID string, requester int64) (Result, error) {
	const op = "invoice.reconcile"
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return Result{}, apperr.Errorf(apperr.KindValidation, op, "empty invoice id")
	}

	callCtx, cancel := context.WithTimeout(ctx, t.callTimeout)
	remote, found, err := t.provider.GetInvoice(callCtx, invoiceID)
	cancel()
	if err != nil {
		logger.Warn(ctx, logger.CompInvoices, op,
			slog.String("status", "fail"),
			slog.String("invoice_id", invoiceID),
			slog.String("err", err.Error()),
		)
		return Result{}, apperr.E(apperr.KindPaymentProvider, op, err)
	}
	if !found {
		return Result{}, apperr.Errorf(apperr.KindInvoiceNotFound, op, "invoice %s", invoiceID)
	}

	status := StatusFromProvider(remote.Status)
	now := t.ledger.Now()
	var (
		res  Result
		user store.User
	)
	err = t.store.Atomic(ctx, func(tx store.Tx) error {
		res = Result{}
		inv, err := tx.Invoice(invoiceID)
		if errors.Is(err, store.ErrNotFound) {
			inv = store.Invoice{
				ID:        invoiceID,
				UserID:    requester,
				CreatedAt: store.At(remote.CreatedAt),
				Amount:    remote.Amount,
				PayURL:    remote.PayURL,
			}
			if !inv.CreatedAt.Set() {
				inv.CreatedAt = store.At(now)
			}
			err = nil
		}
		if err != nil {
			return err
		}

		prev := inv.Status
		// paid is terminal; later provider answers cannot reopen it
		if prev != store.InvoicePaid {
			inv.Status = status
		}
		inv.CheckedAt = store.At(now)
		if err := tx.PutInvoice(inv); err != nil {
			return err
		}
		res.Invoice = inv

		if inv.Status != store.InvoicePaid || prev == store.InvoicePaid {
			return nil
		}
		user, err = subscription.ExtendTx(tx, inv.UserID, subscription.PeriodDays, now)
		if err != nil {
			return err
		}
		res.Extended = true
		res.SubUntil = user.SubUntil.Time
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	t.metrics.InvoiceReconciled(string(status))
	if res.Extended {
		t.ledger.Extended(ctx, user, subscription.PeriodDays, metrics.SourcePayment)
	}
	logger.Info(ctx, logger.CompInvoices, op,
		slog.String("status", "ok"),
		slog.String("invoice_id", invoiceID),
		slog.String("invoice_status", string(status)),
		slog.Bool("extended", res.Extended),
	)
	return res, nil
}

// Price returns the configured monthly price, falling back to the default
// until one has been stored.
func (t *Tracker) Price(ctx context.Context) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := t.store.Atomic(ctx, func(tx store.Tx) error {
		st, err := tx.Settings()
		if err != nil {
			return err
		}
		price = st.MonthlyPrice
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		price = t.defaultPrice
	}
	return price, nil
}

// SetPrice stores a new monthly price; it must be positive.
func (t *Tracker) SetPrice(ctx context.Context, price decimal.Decimal) error {
	if !price.IsPositive() {
		return apperr.Errorf(apperr.KindValidation, "invoice.set_price", "price must be positive, got %s", price)
	}
	err := t.store.Atomic(ctx, func(tx store.Tx) error {
		st, err := tx.Settings()
		if err != nil {
			return err
		}
		st.MonthlyPrice = price
		return tx.PutSettings(st)
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, logger.CompInvoices, "invoice.set_price",
		slog.String("status", "ok"),
		slog.String("amount", price.StringFixed(2)),
	)
	return nil
}

// SeedPrice stores the default price unless a price is already set.
func (t *Tracker) SeedPrice(ctx context.Context) error {
	return t.store.Atomic(ctx, func(tx store.Tx) error {
		st, err := tx.Settings()
		if err != nil {
			return err
		}
		if st.MonthlyPrice.IsPositive() || !t.defaultPrice.IsPositive() {
			return nil
		}
		st.MonthlyPrice = t.defaultPrice
		return tx.PutSettings(st)
	})
}
