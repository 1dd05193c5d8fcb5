package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/filehost/core/logger"
	"github.com/m3rciful/filehost/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/filehost/core/telegram/helpers"
	"github.com/m3rciful/filehost/internal/apperr"
	"github.com/m3rciful/filehost/internal/files"

	tele "gopkg.in/telebot.v4"
)

func (b *Bot) onStart(c tele.Context) error {
	code := strings.TrimSpace(c.Message().Payload)
	if code == "" {
		return tghelpers.SendHTML(c, msgStart, menuKeyboard(b.isAdmin(c)))
	}

	f, err := b.files.Lookup(b.ctx(c), code)
	if errors.Is(err, apperr.NotFound) {
		return tghelpers.SendHTML(c, msgLinkNotFound, menuKeyboard(b.isAdmin(c)))
	}
	if err != nil {
		return b.fail(c, err)
	}
	doc := &tele.Document{File: tele.File{FileID: f.FileID}, FileName: f.FileName, MIME: f.MimeType}
	return tghelpers.SendSequence(c, downloadText(f), doc)
}

func (b *Bot) onMenu(c tele.Context) error {
	return tghelpers.SendHTML(c, msgMenu, menuKeyboard(b.isAdmin(c)))
}

func (b *Bot) onPay(c tele.Context) error {
	u := currentUser(c)
	inv, err := b.tracker.Create(b.ctx(c), u.ID)
	if err != nil {
		_ = tghelpers.SendHTML(c, msgPayFailed)
		return err
	}
	return tghelpers.SendHTML(c, payText(inv.Amount), payKeyboard(inv.ID, inv.PayURL))
}

func (b *Bot) onFile(c tele.Context) error {
	return b.showFile(c, false, msgFileUsage)
}

func (b *Bot) onInfo(c tele.Context) error {
	return b.showFile(c, true, msgInfoUsage)
}

func (b *Bot) showFile(c tele.Context, forAdmin bool, usage string) error {
	code := strings.TrimSpace(c.Message().Payload)
	if code == "" {
		return tghelpers.SendHTML(c, usage)
	}
	f, err := b.files.Lookup(b.ctx(c), code)
	if errors.Is(err, apperr.NotFound) {
		return tghelpers.SendHTML(c, msgFileNotFound)
	}
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendHTML(c, fileText(f, forAdmin))
}

func (b *Bot) onProfile(c tele.Context) error {
	_ = c.Respond()
	u := currentUser(c)
	return tghelpers.SendHTML(c, profileText(u, b.ledger.Now()), menuKeyboard(b.isAdmin(c)))
}

// onCheckPayment reconciles the invoice named in the button payload.
func (b *Bot) onCheckPayment(c tele.Context) error {
	invoiceID, err := callbacks.PayloadString(c)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgInvoiceNotFound, ShowAlert: true})
	}

	u := currentUser(c)
	res, err := b.tracker.Reconcile(b.ctx(c), invoiceID, u.ID)
	switch {
	case errors.Is(err, apperr.InvoiceNotFound):
		return c.Respond(&tele.CallbackResponse{Text: msgInvoiceNotFound, ShowAlert: true})
	case err != nil:
		_ = c.Respond(&tele.CallbackResponse{Text: msgCheckFailed, ShowAlert: true})
		return err
	}

	if !res.Extended {
		return c.Respond(&tele.CallbackResponse{Text: checkStatusText(res.Invoice.Status), ShowAlert: true})
	}
	_ = c.Respond(&tele.CallbackResponse{Text: "Оплата найдена ✅", ShowAlert: true})
	owner, _, err := b.ledger.Status(b.ctx(c), res.Invoice.UserID)
	if err != nil {
		return err
	}
	return tghelpers.SendHTML(c, activatedText(owner, b.ledger.Now()))
}

// onDocument stores an upload. The backup forward is mandatory: without it
// nothing is registered.
func (b *Bot) onDocument(c tele.Context) error {
	ctx := b.ctx(c)
	u := currentUser(c)
	if !files.CanUpload(u, b.isAdmin(c), b.ledger.Now()) {
		price, err := b.tracker.Price(ctx)
		if err != nil {
			return b.fail(c, err)
		}
		return tghelpers.SendHTML(c, lockedText(price))
	}

	msg := c.Message()
	doc := msg.Document
	fwd, err := c.Bot().Forward(b.backup, msg)
	if err != nil {
		logger.Error(ctx, logger.CompFiles, "files.backup",
			slog.String("status", "fail"),
			slog.String("target", b.backup.Recipient()),
			slog.String("err", err.Error()),
		)
		_ = tghelpers.SendHTML(c, msgBackupFailed)
		return fmt.Errorf("forward to backup chat: %w", err)
	}

	backup := files.Backup{Chat: b.backup.Recipient(), MessageID: fwd.ID}
	if fwd.Document != nil {
		backup.FileID = fwd.Document.FileID
	}
	f, err := b.files.Register(ctx, u, files.Document{
		FileID:   doc.FileID,
		FileName: doc.FileName,
		MimeType: doc.MIME,
	}, backup)
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendHTML(c, savedText(files.ShareLink(b.username, f.Code)))
}

// fail tells the user something broke and hands err to the summary log.
func (b *Bot) fail(c tele.Context, err error) error {
	if c.Callback() != nil {
		_ = c.Respond(&tele.CallbackResponse{Text: msgInternal, ShowAlert: true})
	} else {
		_ = tghelpers.SendHTML(c, msgInternal)
	}
	return err
}
