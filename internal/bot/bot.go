// Package bot is the Telegram surface: commands, callbacks, uploads and the
// admin prompt, rendered as HTML messages.
package bot

import (
	"context"
	"log/slog"

	"github.com/m3rciful/filehost/core/logger"
	tg "github.com/m3rciful/filehost/core/telegram"
	"github.com/m3rciful/filehost/core/telegram/commands"
	tghelpers "github.com/m3rciful/filehost/core/telegram/helpers"
	"github.com/m3rciful/filehost/core/telegram/router"
	"github.com/m3rciful/filehost/internal/admin"
	"github.com/m3rciful/filehost/internal/files"
	"github.com/m3rciful/filehost/internal/invoice"
	"github.com/m3rciful/filehost/internal/subscription"

	tele "gopkg.in/telebot.v4"
)

// Callback keys.
const (
	cbProfile    = "profile"
	cbAdmin      = "admin"
	cbCheck      = "chk"
	cbAdminUsers = "adm_users"
	cbAdminStats = "adm_stats"
	cbAdminPrice = "adm_price"
	cbAdminGrant = "adm_grant"
)

// Deps are the services the handlers call.
type Deps struct {
	Ledger  *subscription.Ledger
	Tracker *invoice.Tracker
	Files   *files.Registry
	Admin   *admin.Service
	// BackupChat is a numeric chat id or an @channel username.
	BackupChat string
}

// Bot wires handlers to the registry.
type Bot struct {
	ledger   *subscription.Ledger
	tracker  *invoice.Tracker
	files    *files.Registry
	admin    *admin.Service
	backup   chatRecipient
	username string
}

func New(d Deps) *Bot {
	return &Bot{
		ledger:  d.Ledger,
		tracker: d.Tracker,
		files:   d.Files,
		admin:   d.Admin,
		backup:  chatRecipient(d.BackupChat),
	}
}

// chatRecipient addresses a chat by numeric id or @username.
type chatRecipient string

func (r chatRecipient) Recipient() string { return string(r) }

// Register adds every command and callback to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{Handler: b.onStart, Description: "Начать", Hidden: true})
	reg.RegisterCommand("/menu", commands.Command{Handler: b.onMenu, Description: "Меню", Aliases: []string{"menu", "меню"}})
	reg.RegisterCommand("/pay", commands.Command{Handler: b.onPay, Description: "Оплатить подписку"})
	reg.RegisterCommand("/file", commands.Command{Handler: b.onFile, Description: "Информация о файле по коду"})
	reg.RegisterCommand("/cancel", commands.Command{Handler: b.onCancel, Description: "Отменить ввод", AdminOnly: true})
	reg.RegisterCommand("/admin", commands.Command{Handler: b.onAdmin, Description: "Админ-панель", AdminOnly: true})
	reg.RegisterCommand("/info", commands.Command{Handler: b.onInfo, Description: "Файл по коду (админ)", AdminOnly: true})

	for key, h := range map[string]tele.HandlerFunc{
		cbProfile:    b.onProfile,
		cbAdmin:      b.adminOnly(b.onAdminPanel),
		cbCheck:      b.onCheckPayment,
		cbAdminUsers: b.adminOnly(b.onAdminUsers),
		cbAdminStats: b.adminOnly(b.onAdminStats),
		cbAdminPrice: b.adminOnly(b.onAdminPrice),
		cbAdminGrant: b.adminOnly(b.onAdminGrant),
	} {
		if err := reg.RegisterCallback(key, h); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(func(c tele.Context) error { return c.Respond() })
	return nil
}

// Routes binds the registry to telebot endpoints. It also captures the bot
// username used in share links, so it must run before the bot starts.
func (b *Bot) Routes(rt tg.Runtime, adminID int64) []tg.Route {
	if rt.Bot != nil && rt.Bot.Me != nil {
		b.username = rt.Bot.Me.Username
	}
	routes := router.CommandRoutes(rt.Registry, router.CommandRouteOptions{AdminID: adminID})
	routes = append(routes, router.CallbackRoute(rt.Registry))
	return append(routes, router.TextRoutes(adminPrompt{b}, rt.Registry, router.TextOptions{
		OnDocument: b.onDocument,
	})...)
}

// OnRateLimited answers throttled senders.
func OnRateLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgSlowDown})
	}
	return tghelpers.SendHTML(c, msgSlowDown)
}

func (b *Bot) ctx(c tele.Context) context.Context {
	return tghelpers.BuildContext(c)
}

func (b *Bot) isAdmin(c tele.Context) bool {
	s := c.Sender()
	return s != nil && b.admin.IsAdmin(s.ID)
}

// adminOnly guards admin callbacks with an alert for everyone else.
func (b *Bot) adminOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if !b.isAdmin(c) {
			logger.Warn(b.ctx(c), logger.CompAdmin, "admin.reject",
				slog.String("cause", "not_admin"),
			)
			return c.Respond(&tele.CallbackResponse{Text: msgNoAccess, ShowAlert: true})
		}
		return next(c)
	}
}

// adminPrompt lets the admin prompt machine claim the admin's next text.
type adminPrompt struct{ b *Bot }

func (p adminPrompt) Claims(c tele.Context) bool {
	msg := c.Message()
	if msg == nil || msg.Document != nil || c.Chat() == nil {
		return false
	}
	return p.b.isAdmin(c) && p.b.admin.Awaiting(c.Chat().ID)
}

func (p adminPrompt) Handle(c tele.Context) error {
	return p.b.onAdminInput(c)
}
