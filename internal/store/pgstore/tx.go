package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/m3rciful/filehost/internal/store"
)

const settingMonthlyPrice = "monthly_price_usd"

type tx struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func (t *tx) User(id int64) (store.User, error) {
	var u store.User
	err := t.tx.GetContext(t.ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	return u, notFound(err)
}

func (t *tx) PutUser(u store.User) error {
	_, err := t.tx.NamedExecContext(t.ctx, `
INSERT INTO users (id, username, tag, first_name, last_name, last_seen, sub_until, last_invoice)
VALUES (:id, :username, :tag, :first_name, :last_name, :last_seen, :sub_until, :last_invoice)
ON CONFLICT (id) DO UPDATE SET
    username = EXCLUDED.username,
    tag = EXCLUDED.tag,
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    last_seen = EXCLUDED.last_seen,
    sub_until = EXCLUDED.sub_until,
    last_invoice = EXCLUDED.last_invoice`, u)
	if err != nil {
		return fmt.Errorf("pgstore: put user %d: %w", u.ID, err)
	}
	return nil
}

func (t *tx) Users() ([]store.User, error) {
	var users []store.User
	if err := t.tx.SelectContext(t.ctx, &users, `SELECT * FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("pgstore: list users: %w", err)
	}
	return users, nil
}

func (t *tx) File(code string) (store.File, error) {
	var f store.File
	err := t.tx.GetContext(t.ctx, &f, `SELECT * FROM files WHERE code = $1`, code)
	return f, notFound(err)
}

func (t *tx) InsertFile(f store.File) error {
	res, err := t.tx.NamedExecContext(t.ctx, `
INSERT INTO files (code, file_id, file_name, mime_type, owner_id, owner_tag, created_at, backup_chat, backup_msg_id)
VALUES (:code, :file_id, :file_name, :mime_type, :owner_id, :owner_tag, :created_at, :backup_chat, :backup_msg_id)
ON CONFLICT (code) DO NOTHING`, f)
	if err != nil {
		return fmt.Errorf("pgstore: insert file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrCodeTaken
	}
	return nil
}

func (t *tx) Invoice(id string) (store.Invoice, error) {
	var inv store.Invoice
	err := t.tx.GetContext(t.ctx, &inv, `SELECT * FROM invoices WHERE invoice_id = $1`, id)
	return inv, notFound(err)
}

func (t *tx) PutInvoice(inv store.Invoice) error {
	_, err := t.tx.NamedExecContext(t.ctx, `
INSERT INTO invoices (invoice_id, user_id, created_at, status, amount_usd, pay_url, checked_at)
VALUES (:invoice_id, :user_id, :created_at, :status, :amount_usd, :pay_url, :checked_at)
ON CONFLICT (invoice_id) DO UPDATE SET
    user_id = EXCLUDED.user_id,
    created_at = EXCLUDED.created_at,
    status = EXCLUDED.status,
    amount_usd = EXCLUDED.amount_usd,
    pay_url = EXCLUDED.pay_url,
    checked_at = EXCLUDED.checked_at`, inv)
	if err != nil {
		return fmt.Errorf("pgstore: put invoice %s: %w", inv.ID, err)
	}
	return nil
}

func (t *tx) Settings() (store.Settings, error) {
	var st store.Settings
	var raw string
	err := t.tx.GetContext(t.ctx, &raw, `SELECT value FROM settings WHERE key = $1`, settingMonthlyPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("pgstore: read settings: %w", err)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return st, fmt.Errorf("pgstore: setting %s: %w", settingMonthlyPrice, err)
	}
	st.MonthlyPrice = price
	return st, nil
}

func (t *tx) PutSettings(s store.Settings) error {
	_, err := t.tx.ExecContext(t.ctx, `
INSERT INTO settings (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		settingMonthlyPrice, s.MonthlyPrice.String())
	if err != nil {
		return fmt.Errorf("pgstore: put settings: %w", err)
	}
	return nil
}

func (t *tx) Counts() (store.Counts, error) {
	var c store.Counts
	err := t.tx.QueryRowxContext(t.ctx, `
SELECT
    (SELECT count(*) FROM users),
    (SELECT count(*) FROM files),
    (SELECT count(*) FROM invoices),
    (SELECT count(*) FROM invoices WHERE status = 'paid')`).
		Scan(&c.Users, &c.Files, &c.Invoices, &c.PaidInvoices)
	if err != nil {
		return c, fmt.Errorf("pgstore: counts: %w", err)
	}
	return c, nil
}
