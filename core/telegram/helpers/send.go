package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/filehost/core/logger"
	"github.com/m3rciful/filehost/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// sendAsync queues run on the dispatcher; without one, or when the queue is
// saturated, it runs inline.
func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

func htmlOptions(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, DisableWebPagePreview: true}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}

// SendHTML queues an HTML message with an optional keyboard to the current chat.
// Callers escape user supplied strings with format.HTML.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := htmlOptions(markup)
	return sendAsync(c, "send.html", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// SendSequence sends items in order inside one queued job, so they cannot be
// reordered by concurrent workers. Strings go out as HTML; other values are
// passed to Send as is.
func SendSequence(c tele.Context, items ...any) error {
	opts := htmlOptions(nil)
	return sendAsync(c, "send.sequence", "sendMessage", func() error {
		for _, item := range items {
			var err error
			if text, ok := item.(string); ok {
				err = c.Send(text, opts)
			} else {
				err = c.Send(item)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
