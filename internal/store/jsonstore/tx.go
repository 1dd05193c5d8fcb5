package jsonstore

import (
	"sort"
	"strconv"

	"github.com/m3rciful/filehost/internal/store"
)

type tx struct {
	doc   *document
	dirty bool
}

func userKey(id int64) string { return strconv.FormatInt(id, 10) }

func (t *tx) User(id int64) (store.User, error) {
	u, ok := t.doc.Users[userKey(id)]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (t *tx) PutUser(u store.User) error {
	t.doc.Users[userKey(u.ID)] = u
	t.dirty = true
	return nil
}

func (t *tx) Users() ([]store.User, error) {
	out := make([]store.User, 0, len(t.doc.Users))
	for _, u := range t.doc.Users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) File(code string) (store.File, error) {
	f, ok := t.doc.Files[code]
	if !ok {
		return store.File{}, store.ErrNotFound
	}
	return f, nil
}

func (t *tx) InsertFile(f store.File) error {
	if _, taken := t.doc.Files[f.Code]; taken {
		return store.ErrCodeTaken
	}
	t.doc.Files[f.Code] = f
	t.dirty = true
	return nil
}

func (t *tx) Invoice(id string) (store.Invoice, error) {
	inv, ok := t.doc.Invoices[id]
	if !ok {
		return store.Invoice{}, store.ErrNotFound
	}
	return inv, nil
}

func (t *tx) PutInvoice(inv store.Invoice) error {
	t.doc.Invoices[inv.ID] = inv
	t.dirty = true
	return nil
}

func (t *tx) Settings() (store.Settings, error) {
	return t.doc.Settings, nil
}

func (t *tx) PutSettings(s store.Settings) error {
	t.doc.Settings = s
	t.dirty = true
	return nil
}

func (t *tx) Counts() (store.Counts, error) {
	c := store.Counts{
		Users:    len(t.doc.Users),
		Files:    len(t.doc.Files),
		Invoices: len(t.doc.Invoices),
	}
	for _, inv := range t.doc.Invoices {
		if inv.Status == store.InvoicePaid {
			c.PaidInvoices++
		}
	}
	return c, nil
}
