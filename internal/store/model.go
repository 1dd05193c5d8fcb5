package store

import (
	"strings"

	"github.com/shopspring/decimal"
)

// User is a Telegram user seen by the bot. SubUntil only moves forward.
type User struct {
	ID          int64     `json:"id" db:"id"`
	Username    string    `json:"username,omitempty" db:"username"`
	Tag         string    `json:"tag,omitempty" db:"tag"`
	FirstName   string    `json:"first_name,omitempty" db:"first_name"`
	LastName    string    `json:"last_name,omitempty" db:"last_name"`
	LastSeen    Timestamp `json:"last_seen" db:"last_seen"`
	SubUntil    Timestamp `json:"sub_until" db:"sub_until"`
	LastInvoice string    `json:"last_invoice,omitempty" db:"last_invoice"`
}

// DisplayName prefers the @tag, then the full name; empty when neither is known.
func (u User) DisplayName() string {
	if u.Tag != "" {
		return u.Tag
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return ""
}

// File is an uploaded document addressed by its share code. Immutable.
type File struct {
	Code        string    `json:"-" db:"code"`
	FileID      string    `json:"file_id" db:"file_id"`
	FileName    string    `json:"file_name" db:"file_name"`
	MimeType    string    `json:"mime_type" db:"mime_type"`
	OwnerID     int64     `json:"u_id" db:"owner_id"`
	OwnerTag    string    `json:"u_tag" db:"owner_tag"`
	CreatedAt   Timestamp `json:"created_at" db:"created_at"`
	BackupChat  string    `json:"backup_chat,omitempty" db:"backup_chat"`
	BackupMsgID int       `json:"backup_msg_id,omitempty" db:"backup_msg_id"`
}

// InvoiceStatus is the locally recorded provider status.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceExpired InvoiceStatus = "expired"
	InvoiceUnknown InvoiceStatus = "unknown"
)

// Invoice is a provider payment request tracked by its provider id.
type Invoice struct {
	ID        string          `json:"invoice_id" db:"invoice_id"`
	UserID    int64           `json:"user_id" db:"user_id"`
	CreatedAt Timestamp       `json:"created_at" db:"created_at"`
	Status    InvoiceStatus   `json:"status" db:"status"`
	Amount    decimal.Decimal `json:"amount_usd" db:"amount_usd"`
	PayURL    string          `json:"pay_url,omitempty" db:"pay_url"`
	CheckedAt Timestamp       `json:"checked_at" db:"checked_at"`
}

// Settings holds admin-writable values. A zero MonthlyPrice means not seeded yet.
type Settings struct {
	MonthlyPrice decimal.Decimal `json:"monthly_price_usd"`
}

// Counts summarizes collection sizes for the admin stats screen.
type Counts struct {
	Users        int
	Files        int
	Invoices     int
	PaidInvoices int
}
