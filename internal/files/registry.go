// Package files stores uploaded documents under random share codes.
package files

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/m3rciful/filehost/core/logger"
	"github.com/m3rciful/filehost/internal/apperr"
	"github.com/m3rciful/filehost/internal/metrics"
	"github.com/m3rciful/filehost/internal/store"
	"github.com/m3rciful/filehost/internal/subscription"
)

const (
	// CodeLength is the number of characters in a share code.
	CodeLength = 16

	alphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	maxAttempts = 5
)

// ErrNoFreeCode is returned when every generated code collided.
var ErrNoFreeCode = errors.New("files: no free code")

// Document is the uploaded Telegram document.
type Document struct {
	FileID   string
	FileName string
	MimeType string
}

// Backup is the copy kept in the backup chat. FileID is empty when the
// forwarded message carried no document.
type Backup struct {
	Chat      string
	MessageID int
	FileID    string
}

// Registry creates and resolves file records.
type Registry struct {
	store   store.Store
	now     func() time.Time
	metrics *metrics.Metrics
	newCode func() (string, error)
}

// Option configures a Registry.
type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(r *Registry) { r.newCode = gen }
}

func NewRegistry(st store.Store, opts ...Option) *Registry {
	r := &Registry{
		store:   st,
		now:     time.Now,
		newCode: func() (string, error) { return GenerateCode(CodeLength) },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GenerateCode returns n characters drawn uniformly from [A-Za-z0-9].
func GenerateCode(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	base := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("files: random: %w", err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

// CanUpload is true for the admin and for users with an active subscription.
func CanUpload(u store.User, isAdmin bool, now time.Time) bool {
	return isAdmin || subscription.HasActive(u, now)
}

// ShareLink is the deep link that opens the bot with the code as /start payload.
func ShareLink(botUsername, code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", strings.TrimPrefix(botUsername, "@"), code)
}

// Register stores doc for owner under a fresh code. The backup copy's file
// id is preferred when present.
func (r *Registry) Register(ctx context.Context, owner store.User, doc Document, backup Backup) (store.File, error) {
	fileID := backup.FileID
	if fileID == "" {
		fileID = doc.FileID
	}
	if fileID == "" {
		return store.File{}, apperr.Errorf(apperr.KindValidation, "files.register", "document has no file id")
	}

	f := store.File{
		FileID:      fileID,
		FileName:    doc.FileName,
		MimeType:    doc.MimeType,
		OwnerID:     owner.ID,
		OwnerTag:    owner.Tag,
		CreatedAt:   store.At(r.now()),
		BackupChat:  backup.Chat,
		BackupMsgID: backup.MessageID,
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code, err := r.newCode()
		if err != nil {
			return store.File{}, err
		}
		f.Code = code
		err = r.store.Atomic(ctx, func(tx store.Tx) error { return tx.InsertFile(f) })
		if errors.Is(err, store.ErrCodeTaken) {
			logger.Debug(ctx, logger.CompFiles, "files.code_collision",
				slog.Int("attempts", attempt),
			)
			continue
		}
		if err != nil {
			return store.File{}, err
		}

		r.metrics.FileRegistered()
		logger.Info(ctx, logger.CompFiles, "files.register",
			slog.String("status", "ok"),
			slog.String("code", f.Code),
			slog.Int64("target_id", owner.ID),
			slog.Int("attempts", attempt),
		)
		return f, nil
	}
	return store.File{}, ErrNoFreeCode
}

// Lookup resolves a share code.
func (r *Registry) Lookup(ctx context.Context, code string) (store.File, error) {
	code = strings.TrimSpace(code)
	var f store.File
	err := r.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		f, err = tx.File(code)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return store.File{}, apperr.Errorf(apperr.KindNotFound, "files.lookup", "code %q", code)
	}
	return f, err
}
