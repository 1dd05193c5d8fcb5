package bot

import (
	"errors"

	tghelpers "github.com/m3rciful/filehost/core/telegram/helpers"
	"github.com/m3rciful/filehost/internal/admin"
	"github.com/m3rciful/filehost/internal/apperr"

	tele "gopkg.in/telebot.v4"
)

func (b *Bot) onAdmin(c tele.Context) error {
	return tghelpers.SendHTML(c, msgAdminPanel, adminKeyboard())
}

func (b *Bot) onAdminPanel(c tele.Context) error {
	_ = c.Respond()
	return tghelpers.SendHTML(c, msgAdminPanel, adminKeyboard())
}

func (b *Bot) onAdminUsers(c tele.Context) error {
	_ = c.Respond()
	users, err := b.admin.Users(b.ctx(c))
	if err != nil {
		return b.fail(c, err)
	}
	parts := userListMessages(users)
	items := make([]any, len(parts))
	for i, p := range parts {
		items[i] = p
	}
	return tghelpers.SendSequence(c, items...)
}

func (b *Bot) onAdminStats(c tele.Context) error {
	_ = c.Respond()
	stats, err := b.admin.Stats(b.ctx(c))
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendHTML(c, statsText(stats))
}

func (b *Bot) onAdminPrice(c tele.Context) error {
	_ = c.Respond()
	ctx := b.ctx(c)
	price, err := b.tracker.Price(ctx)
	if err != nil {
		return b.fail(c, err)
	}
	b.admin.BeginSetPrice(ctx, c.Chat().ID)
	return tghelpers.SendHTML(c, pricePromptText(price))
}

func (b *Bot) onAdminGrant(c tele.Context) error {
	_ = c.Respond()
	b.admin.BeginGrant(b.ctx(c), c.Chat().ID)
	return tghelpers.SendHTML(c, msgGrantPrompt)
}

func (b *Bot) onCancel(c tele.Context) error {
	if b.admin.Cancel(c.Chat().ID) {
		return tghelpers.SendHTML(c, msgCancelled, adminKeyboard())
	}
	return tghelpers.SendHTML(c, msgNothingToCancel)
}

// onAdminInput feeds the admin's text to the prompt machine. Invalid input
// re-prompts and keeps the state.
func (b *Bot) onAdminInput(c tele.Context) error {
	chatID := c.Chat().ID
	pending := b.admin.State(chatID)
	out, err := b.admin.HandleInput(b.ctx(c), chatID, c.Text())
	if errors.Is(err, apperr.Validation) {
		if pending == admin.StateAwaitGrant {
			return tghelpers.SendHTML(c, msgBadUserID)
		}
		return tghelpers.SendHTML(c, msgBadPrice)
	}
	if err != nil {
		return b.fail(c, err)
	}

	switch out.Action {
	case admin.ActionPriceSet:
		return tghelpers.SendHTML(c, priceSetText(out.Price), adminKeyboard())
	case admin.ActionGranted:
		return tghelpers.SendHTML(c, grantedText(out.TargetID, out.SubUntil), adminKeyboard())
	}
	return nil
}
