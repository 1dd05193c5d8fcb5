package router

import (
	"time"

	tg "github.com/m3rciful/filehost/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// FSM is a conversation machine that may claim the next message of a chat.
type FSM interface {
	// Claims reports whether the machine consumes this update.
	Claims(c tele.Context) bool
	Handle(c tele.Context) error
}

// TextOptions supplies handlers for messages no command or FSM consumed.
type TextOptions struct {
	OnText     tele.HandlerFunc
	OnDocument tele.HandlerFunc
}

// TextRoutes builds the text and document routes: FSM first, then command
// aliases, then the registry fallback and finally the given handlers.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()

		if fsm != nil && fsm.Claims(c) {
			return handleWithSummary(c, "fsm", start, "", "", func() error {
				return fsm.Handle(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return handleWithSummary(c, normalizeHandlerName(key), start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.OnText != nil {
			return handleWithSummary(c, "text", start, "", "", func() error {
				return opts.OnText(c)
			})
		}
		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if fsm != nil && fsm.Claims(c) {
			return handleWithSummary(c, "fsm_document", start, "", "", func() error {
				return fsm.Handle(c)
			})
		}
		if opts.OnDocument != nil {
			return handleWithSummary(c, "document", start, "", "", func() error {
				return opts.OnDocument(c)
			})
		}
		logHandlerSummary(c, "unexpected_document", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: handler},
		{Endpoint: tele.OnDocument, Handler: docHandler},
	}
}
