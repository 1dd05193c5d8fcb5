package invoice

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/filehost/internal/apperr"
	"github.com/m3rciful/filehost/internal/cryptopay"
	"github.com/m3rciful/filehost/internal/store"
	"github.com/m3rciful/filehost/internal/store/jsonstore"
	"github.com/m3rciful/filehost/internal/subscription"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeProvider struct {
	mu       sync.Mutex
	next     int
	invoices map[string]cryptopay.Invoice
	created  []cryptopay.CreateInvoiceParams
	err      error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{next: 100, invoices: map[string]cryptopay.Invoice{}}
}

func (p *fakeProvider) CreateInvoice(_ context.Context, params cryptopay.CreateInvoiceParams) (cryptopay.Invoice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return cryptopay.Invoice{}, p.err
	}
	p.next++
	inv := cryptopay.Invoice{
		ID:     strconv.Itoa(p.next),
		Status: cryptopay.StatusActive,
		Amount: params.Amount,
		PayURL: "https://t.me/CryptoBot?start=IV" + strconv.Itoa(p.next),
	}
	p.invoices[inv.ID] = inv
	p.created = append(p.created, params)
	return inv, nil
}

func (p *fakeProvider) GetInvoice(_ context.Context, id string) (cryptopay.Invoice, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return cryptopay.Invoice{}, false, p.err
	}
	inv, ok := p.invoices[id]
	return inv, ok, nil
}

func (p *fakeProvider) setStatus(id string, s cryptopay.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	inv := p.invoices[id]
	inv.ID = id
	inv.Status = s
	p.invoices[id] = inv
}

func newTracker(t *testing.T) (*Tracker, *fakeProvider, store.Store) {
	t.Helper()
	st, err := jsonstore.Open(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	p := newFakeProvider()
	ledger := subscription.NewLedger(st, subscription.WithClock(func() time.Time { return now }))
	tr := NewTracker(Options{
		Store:        st,
		Provider:     p,
		Ledger:       ledger,
		DefaultPrice: decimal.RequireFromString("0.50"),
	})
	require.NoError(t, tr.SeedPrice(context.Background()))
	return tr, p, st
}

func loadUser(t *testing.T, st store.Store, id int64) store.User {
	t.Helper()
	var u store.User
	require.NoError(t, st.Atomic(context.Background(), func(tx store.Tx) error {
		var err error
		u, err = tx.User(id)
		return err
	}))
	return u
}

func loadInvoice(t *testing.T, st store.Store, id string) store.Invoice {
	t.Helper()
	var inv store.Invoice
	require.NoError(t, st.Atomic(context.Background(), func(tx store.Tx) error {
		var err error
		inv, err = tx.Invoice(id)
		return err
	}))
	return inv
}

func TestCreateThenPaidScenario(t *testing.T) {
	tr, p, st := newTracker(t)
	ctx := context.Background()

	inv, err := tr.Create(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, store.InvoicePending, inv.Status)
	assert.Equal(t, "0.50", inv.Amount.StringFixed(2))
	require.Len(t, p.created, 1)
	assert.Equal(t, "USD", p.created[0].Fiat)
	assert.Equal(t, TTL, p.created[0].ExpiresIn)
	assert.NotEmpty(t, p.created[0].Payload)

	stored := loadInvoice(t, st, inv.ID)
	assert.Equal(t, store.InvoicePending, stored.Status)
	assert.Equal(t, int64(11), stored.UserID)
	assert.Equal(t, inv.ID, loadUser(t, st, 11).LastInvoice)

	p.setStatus(inv.ID, cryptopay.StatusPaid)
	res, err := tr.Reconcile(ctx, inv.ID, 11)
	require.NoError(t, err)
	assert.True(t, res.Extended)
	assert.Equal(t, store.InvoicePaid, res.Invoice.Status)
	assert.True(t, res.SubUntil.Equal(now.AddDate(0, 0, 30)))

	assert.Equal(t, store.InvoicePaid, loadInvoice(t, st, inv.ID).Status)
	assert.True(t, loadUser(t, st, 11).SubUntil.Equal(now.AddDate(0, 0, 30)))
}

func TestReconcileTwiceExtendsOnce(t *testing.T) {
	tr, p, st := newTracker(t)
	ctx := context.Background()

	inv, err := tr.Create(ctx, 12)
	require.NoError(t, err)
	p.setStatus(inv.ID, cryptopay.StatusPaid)

	first, err := tr.Reconcile(ctx, inv.ID, 12)
	require.NoError(t, err)
	second, err := tr.Reconcile(ctx, inv.ID, 12)
	require.NoError(t, err)

	assert.True(t, first.Extended)
	assert.False(t, second.Extended)
	assert.True(t, loadUser(t, st, 12).SubUntil.Equal(now.AddDate(0, 0, 30)))
}

func TestPaidInvoiceIgnoresLaterProviderStatus(t *testing.T) {
	tr, p, st := newTracker(t)
	ctx := context.Background()

	inv, err := tr.Create(ctx, 13)
	require.NoError(t, err)
	p.setStatus(inv.ID, cryptopay.StatusPaid)
	first, err := tr.Reconcile(ctx, inv.ID, 13)
	require.NoError(t, err)
	require.True(t, first.Extended)

	for _, s := range []cryptopay.Status{"", cryptopay.StatusExpired, cryptopay.StatusPaid} {
		p.setStatus(inv.ID, s)
		res, err := tr.Reconcile(ctx, inv.ID, 13)
		require.NoError(t, err)
		assert.False(t, res.Extended, "provider status %q", s)
		assert.Equal(t, store.InvoicePaid, res.Invoice.Status, "provider status %q", s)
		assert.Equal(t, store.InvoicePaid, loadInvoice(t, st, inv.ID).Status)
	}
	assert.True(t, loadUser(t, st, 13).SubUntil.Equal(now.AddDate(0, 0, 30)))
}

func TestConcurrentReconcileExtendsOnce(t *testing.T) {
	tr, p, st := newTracker(t)
	ctx := context.Background()

	inv, err := tr.Create(ctx, 13)
	require.NoError(t, err)
	p.setStatus(inv.ID, cryptopay.StatusPaid)

	const workers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		extended int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := tr.Reconcile(ctx, inv.ID, 13)
			assert.NoError(t, err)
			if res.Extended {
				mu.Lock()
				extended++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, extended)
	assert.True(t, loadUser(t, st, 13).SubUntil.Equal(now.AddDate(0, 0, 30)))
}

func TestReconcilePendingDoesNotExtend(t *testing.T) {
	tr, _, st := newTracker(t)
	ctx := context.Background()

	inv, err := tr.Create(ctx, 14)
	require.NoError(t, err)
	res, err := tr.Reconcile(ctx, inv.ID, 14)
	require.NoError(t, err)
	assert.False(t, res.Extended)
	assert.Equal(t, store.InvoicePending, res.Invoice.Status)
	assert.True(t, res.Invoice.CheckedAt.Equal(now))
	assert.False(t, loadUser(t, st, 14).SubUntil.Set())
}

func TestReconcileExpired(t *testing.T) {
	tr, p, _ := newTracker(t)
	inv, err := tr.Create(context.Background(), 15)
	require.NoError(t, err)
	p.setStatus(inv.ID, cryptopay.StatusExpired)

	res, err := tr.Reconcile(context.Background(), inv.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, store.InvoiceExpired, res.Invoice.Status)
	assert.False(t, res.Extended)
}

func TestReconcileUnknownRemote(t *testing.T) {
	tr, _, _ := newTracker(t)
	_, err := tr.Reconcile(context.Background(), "999", 1)
	assert.ErrorIs(t, err, apperr.InvoiceNotFound)
}

func TestReconcileRecordsInvoiceUnknownLocally(t *testing.T) {
	tr, p, st := newTracker(t)
	p.setStatus("555", cryptopay.StatusPaid)

	res, err := tr.Reconcile(context.Background(), "555", 21)
	require.NoError(t, err)
	assert.True(t, res.Extended)
	assert.Equal(t, int64(21), loadInvoice(t, st, "555").UserID)
	assert.True(t, loadUser(t, st, 21).SubUntil.Equal(now.AddDate(0, 0, 30)))
}

func TestReconcileExtendsOwnerNotRequester(t *testing.T) {
	tr, p, st := newTracker(t)
	inv, err := tr.Create(context.Background(), 31)
	require.NoError(t, err)
	p.setStatus(inv.ID, cryptopay.StatusPaid)

	_, err = tr.Reconcile(context.Background(), inv.ID, 32)
	require.NoError(t, err)
	assert.True(t, loadUser(t, st, 31).SubUntil.Set())

	var err404 error
	require.NoError(t, st.Atomic(context.Background(), func(tx store.Tx) error {
		_, err404 = tx.User(32)
		return nil
	}))
	assert.ErrorIs(t, err404, store.ErrNotFound)
}

func TestProviderFailure(t *testing.T) {
	tr, p, st := newTracker(t)
	p.err = errors.New("connection reset")

	_, err := tr.Create(context.Background(), 41)
	assert.ErrorIs(t, err, apperr.PaymentProvider)

	_, err = tr.Reconcile(context.Background(), "1", 41)
	assert.ErrorIs(t, err, apperr.PaymentProvider)

	require.NoError(t, st.Atomic(context.Background(), func(tx store.Tx) error {
		c, err := tx.Counts()
		require.NoError(t, err)
		assert.Zero(t, c.Invoices)
		return nil
	}))
}

func TestPrice(t *testing.T) {
	tr, p, _ := newTracker(t)
	ctx := context.Background()

	price, err := tr.Price(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.50", price.StringFixed(2))

	require.NoError(t, tr.SetPrice(ctx, decimal.RequireFromString("0.75")))
	price, err = tr.Price(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.75", price.StringFixed(2))

	// Invoices pick up the price at creation time.
	inv, err := tr.Create(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "0.75", inv.Amount.StringFixed(2))
	assert.Equal(t, "0.75", p.created[0].Amount.StringFixed(2))

	assert.ErrorIs(t, tr.SetPrice(ctx, decimal.Zero), apperr.Validation)
	assert.ErrorIs(t, tr.SetPrice(ctx, decimal.NewFromInt(-1)), apperr.Validation)

	// Seeding never overwrites a stored price.
	require.NoError(t, tr.SeedPrice(ctx))
	price, err = tr.Price(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.75", price.StringFixed(2))
}

func TestStatusFromProvider(t *testing.T) {
	assert.Equal(t, store.InvoicePending, StatusFromProvider(cryptopay.StatusActive))
	assert.Equal(t, store.InvoicePaid, StatusFromProvider(cryptopay.StatusPaid))
	assert.Equal(t, store.InvoiceExpired, StatusFromProvider(cryptopay.StatusExpired))
	assert.Equal(t, store.InvoiceUnknown, StatusFromProvider("refunded"))
}
