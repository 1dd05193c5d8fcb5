// Package admin implements the admin prompt machine and the admin-only
// read operations. Prompt state is kept per chat in a state.Manager.
package admin

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/filehost/core/logger"
	"github.com/m3rciful/filehost/core/telegram/state"
	"github.com/m3rciful/filehost/internal/apperr"
	"github.com/m3rciful/filehost/internal/invoice"
	"github.com/m3rciful/filehost/internal/metrics"
	"github.com/m3rciful/filehost/internal/store"
	"github.com/m3rciful/filehost/internal/subscription"
)

// Prompt states. state.StateIdle is NONE.
const (
	StateAwaitPrice state.State = "AWAIT_PRICE"
	StateAwaitGrant state.State = "AWAIT_GRANT_USER_ID"
)

// Action tells the caller what an accepted input did.
type Action int

const (
	ActionNone Action = iota
	ActionPriceSet
	ActionGranted
)

// Outcome of HandleInput.
type Outcome struct {
	Action   Action
	Price    decimal.Decimal
	TargetID int64
	SubUntil time.Time
}

// Stats backs the admin statistics screen.
type Stats struct {
	store.Counts
	ActiveSubscriptions int
	Price               decimal.Decimal
}

// Service owns the admin identity and prompt states.
type Service struct {
	adminID int64
	states  *state.Manager
	store   store.Store
	tracker *invoice.Tracker
	ledger  *subscription.Ledger
}

func NewService(adminID int64, states *state.Manager, st store.Store, tracker *invoice.Tracker, ledger *subscription.Ledger) *Service {
	return &Service{
		adminID: adminID,
		states:  states,
		store:   st,
		tracker: tracker,
		ledger:  ledger,
	}
}

func (s *Service) IsAdmin(userID int64) bool {
	return s.adminID != 0 && userID == s.adminID
}

func (s *Service) State(chatID int64) state.State {
	return s.states.Get(chatID)
}

// Awaiting reports whether the chat's next text belongs to a prompt.
func (s *Service) Awaiting(chatID int64) bool {
	return s.states.Active(chatID)
}

func (s *Service) BeginSetPrice(ctx context.Context, chatID int64) {
	s.begin(ctx, chatID, StateAwaitPrice)
}

func (s *Service) BeginGrant(ctx context.Context, chatID int64) {
	s.begin(ctx, chatID, StateAwaitGrant)
}

func (s *Service) begin(ctx context.Context, chatID int64, st state.State) {
	s.states.Set(chatID, st)
	logger.Debug(ctx, logger.CompAdmin, "admin.prompt",
		slog.Int64("chat_id", chatID),
		slog.String("op", string(st)),
	)
}

// Cancel drops any pending prompt and reports whether one was open.
func (s *Service) Cancel(chatID int64) bool {
	was := s.states.Active(chatID)
	s.states.Reset(chatID)
	return was
}

// HandleInput interprets text according to the chat's prompt state. Invalid
// input returns a validation error and leaves the state unchanged. In NONE
// nothing is consumed and the outcome is ActionNone.
func (s *Service) HandleInput(ctx context.Context, chatID int64, text string) (Outcome, error) {
	switch s.states.Get(chatID) {
	case StateAwaitPrice:
		price, err := ParsePrice(text)
		if err != nil {
			return Outcome{}, err
		}
		if err := s.tracker.SetPrice(ctx, price); err != nil {
			return Outcome{}, err
		}
		s.states.Transition(chatID, StateAwaitPrice, state.StateIdle)
		return Outcome{Action: ActionPriceSet, Price: price}, nil

	case StateAwaitGrant:
		target, err := ParseUserID(text)
		if err != nil {
			return Outcome{}, err
		}
		until, err := s.ledger.Extend(ctx, target, subscription.PeriodDays, metrics.SourceGrant)
		if err != nil {
			return Outcome{}, err
		}
		s.states.Transition(chatID, StateAwaitGrant, state.StateIdle)
		logger.Info(ctx, logger.CompAdmin, "admin.grant",
			slog.String("status", "ok"),
			slog.Int64("target_id", target),
			slog.Time("sub_until", until),
		)
		return Outcome{Action: ActionGranted, TargetID: target, SubUntil: until}, nil
	}
	return Outcome{}, nil
}

// ParsePrice accepts a positive decimal with '.' or ',' as separator and at
// most two significant decimal places.
func ParsePrice(text string) (decimal.Decimal, error) {
	const op = "admin.parse_price"
	raw := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.Errorf(apperr.KindValidation, op, "not a number: %q", text)
	}
	if !price.Equal(price.Round(2)) {
		return decimal.Zero, apperr.Errorf(apperr.KindValidation, op, "more than two decimals: %q", text)
	}
	if !price.IsPositive() {
		return decimal.Zero, apperr.Errorf(apperr.KindValidation, op, "price must be positive: %q", text)
	}
	return price, nil
}

// ParseUserID accepts a positive Telegram user id.
func ParseUserID(text string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Errorf(apperr.KindValidation, "admin.parse_user_id", "not a user id: %q", text)
	}
	return id, nil
}

// Stats gathers counters for the stats screen.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var counts store.Counts
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		counts, err = tx.Counts()
		return err
	})
	if err != nil {
		return Stats{}, err
	}
	active, err := s.ledger.ActiveCount(ctx)
	if err != nil {
		return Stats{}, err
	}
	price, err := s.tracker.Price(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Counts: counts, ActiveSubscriptions: active, Price: price}, nil
}

// Users lists every known user ordered by id.
func (s *Service) Users(ctx context.Context) ([]store.User, error) {
	var users []store.User
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		users, err = tx.Users()
		return err
	})
	return users, err
}
