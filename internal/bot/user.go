package bot

import (
	"log/slog"

	"github.com/m3rciful/filehost/core/logger"
	tghelpers "github.com/m3rciful/filehost/core/telegram/helpers"
	"github.com/m3rciful/filehost/internal/store"
	"github.com/m3rciful/filehost/internal/subscription"

	tele "gopkg.in/telebot.v4"
)

const userKey = "store_user"

// EnsureUserMiddleware records the sender on every update and caches the
// stored user for the handlers. A store failure is logged and the update
// proceeds with a bare record.
func (b *Bot) EnsureUserMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil || sender.IsBot {
			return next(c)
		}
		u, err := b.ledger.EnsureUser(tghelpers.BuildContext(c), subscription.Profile{
			ID:        sender.ID,
			Username:  sender.Username,
			FirstName: sender.FirstName,
			LastName:  sender.LastName,
		})
		if err != nil {
			logger.Warn(tghelpers.BuildContext(c), logger.CompLedger, "user.ensure",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			u = store.User{ID: sender.ID}
		}
		c.Set(userKey, u)
		return next(c)
	}
}

// currentUser returns the user cached by EnsureUserMiddleware.
func currentUser(c tele.Context) store.User {
	if u, ok := c.Get(userKey).(store.User); ok {
		return u
	}
	if s := c.Sender(); s != nil {
		return store.User{ID: s.ID}
	}
	return store.User{}
}
