package cryptopay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the provider-side invoice status.
type Status string

const (
	StatusActive  Status = "active"
	StatusPaid    Status = "paid"
	StatusExpired Status = "expired"
)

// Invoice is the subset of the provider invoice object the bot uses.
type Invoice struct {
	ID        string
	Status    Status
	Amount    decimal.Decimal
	Fiat      string
	PayURL    string
	Payload   string
	CreatedAt time.Time
	PaidAt    time.Time
}

type wireInvoice struct {
	InvoiceID         json.Number     `json:"invoice_id"`
	Status            Status          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	Fiat              string          `json:"fiat"`
	PayURL            string          `json:"pay_url"`
	BotInvoiceURL     string          `json:"bot_invoice_url"`
	MiniAppInvoiceURL string          `json:"mini_app_invoice_url"`
	Payload           string          `json:"payload"`
	CreatedAt         time.Time       `json:"created_at"`
	PaidAt            time.Time       `json:"paid_at"`
}

func (w wireInvoice) invoice() Invoice {
	url := w.BotInvoiceURL
	if url == "" {
		url = w.PayURL
	}
	if url == "" {
		url = w.MiniAppInvoiceURL
	}
	return Invoice{
		ID:        w.InvoiceID.String(),
		Status:    w.Status,
		Amount:    w.Amount,
		Fiat:      w.Fiat,
		PayURL:    url,
		Payload:   w.Payload,
		CreatedAt: w.CreatedAt,
		PaidAt:    w.PaidAt,
	}
}

// CreateInvoiceParams describes a fiat-denominated invoice.
type CreateInvoiceParams struct {
	Amount      decimal.Decimal
	Fiat        string
	Description string
	Payload     string
	ExpiresIn   time.Duration
}

type createInvoiceRequest struct {
	CurrencyType   string `json:"currency_type"`
	Fiat           string `json:"fiat"`
	Amount         string `json:"amount"`
	Description    string `json:"description,omitempty"`
	Payload        string `json:"payload,omitempty"`
	ExpiresIn      int    `json:"expires_in,omitempty"`
	AllowComments  bool   `json:"allow_comments"`
	AllowAnonymous bool   `json:"allow_anonymous"`
}

// CreateInvoice issues a new invoice. Fiat defaults to USD.
func (c *Client) CreateInvoice(ctx context.Context, p CreateInvoiceParams) (Invoice, error) {
	fiat := p.Fiat
	if fiat == "" {
		fiat = "USD"
	}
	req := createInvoiceRequest{
		CurrencyType: "fiat",
		Fiat:         fiat,
		Amount:       p.Amount.StringFixed(2),
		Description:  p.Description,
		Payload:      p.Payload,
		ExpiresIn:    int(p.ExpiresIn / time.Second),
	}
	var w wireInvoice
	if err := c.call(ctx, c.writes, "createInvoice", req, &w); err != nil {
		return Invoice{}, err
	}
	return w.invoice(), nil
}

// GetInvoice fetches one invoice by id. found is false when the provider
// returned no matching item.
func (c *Client) GetInvoice(ctx context.Context, id string) (inv Invoice, found bool, err error) {
	params := map[string]string{"invoice_ids": id}
	var res struct {
		Items []wireInvoice `json:"items"`
	}
	if err := c.call(ctx, c.reads, "getInvoices", params, &res); err != nil {
		return Invoice{}, false, err
	}
	for _, item := range res.Items {
		if item.InvoiceID.String() == id {
			return item.invoice(), true, nil
		}
	}
	return Invoice{}, false, nil
}
