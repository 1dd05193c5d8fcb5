package files

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/filehost/internal/apperr"
	"github.com/m3rciful/filehost/internal/store"
	"github.com/m3rciful/filehost/internal/store/jsonstore"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) store.Store {
	t.Helper()
	st, err := jsonstore.Open(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	return st
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := GenerateCode(CodeLength)
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, r := range code {
			assert.Contains(t, alphabet, string(r))
		}
		assert.False(t, seen[code])
		seen[code] = true
	}
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry(openStore(t), WithClock(func() time.Time { return now }))
	owner := store.User{ID: 9, Tag: "@owner"}

	f, err := r.Register(context.Background(), owner,
		Document{FileID: "orig", FileName: "a.pdf", MimeType: "application/pdf"},
		Backup{Chat: "@backup", MessageID: 77, FileID: "copy"},
	)
	require.NoError(t, err)
	assert.Len(t, f.Code, CodeLength)
	assert.Equal(t, "copy", f.FileID)
	assert.Equal(t, "@owner", f.OwnerTag)
	assert.True(t, f.CreatedAt.Equal(now))

	got, err := r.Lookup(context.Background(), f.Code)
	require.NoError(t, err)
	assert.Equal(t, f.FileName, got.FileName)
	assert.Equal(t, 77, got.BackupMsgID)

	_, err = r.Lookup(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestRegisterFallsBackToOriginalFileID(t *testing.T) {
	r := NewRegistry(openStore(t))
	f, err := r.Register(context.Background(), store.User{ID: 1}, Document{FileID: "orig"}, Backup{Chat: "-100"})
	require.NoError(t, err)
	assert.Equal(t, "orig", f.FileID)

	_, err = r.Register(context.Background(), store.User{ID: 1}, Document{}, Backup{})
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestRegisterRetriesOnCollision(t *testing.T) {
	codes := []string{"dup", "dup", "fresh"}
	r := NewRegistry(openStore(t), WithCodeGenerator(func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}))
	ctx := context.Background()

	first, err := r.Register(ctx, store.User{ID: 1}, Document{FileID: "a"}, Backup{})
	require.NoError(t, err)
	assert.Equal(t, "dup", first.Code)

	second, err := r.Register(ctx, store.User{ID: 1}, Document{FileID: "b"}, Backup{})
	require.NoError(t, err)
	assert.Equal(t, "fresh", second.Code)
}

func TestRegisterGivesUp(t *testing.T) {
	r := NewRegistry(openStore(t), WithCodeGenerator(func() (string, error) { return "same", nil }))
	ctx := context.Background()
	_, err := r.Register(ctx, store.User{ID: 1}, Document{FileID: "a"}, Backup{})
	require.NoError(t, err)
	_, err = r.Register(ctx, store.User{ID: 1}, Document{FileID: "b"}, Backup{})
	assert.ErrorIs(t, err, ErrNoFreeCode)
}

func TestCanUpload(t *testing.T) {
	active := store.User{SubUntil: store.At(now.Add(time.Hour))}
	lapsed := store.User{SubUntil: store.At(now.Add(-time.Hour))}

	assert.True(t, CanUpload(store.User{}, true, now))
	assert.True(t, CanUpload(active, false, now))
	assert.False(t, CanUpload(lapsed, false, now))
	assert.False(t, CanUpload(store.User{}, false, now))
}

func TestShareLink(t *testing.T) {
	assert.Equal(t, "https://t.me/filebot?start=Ab12", ShareLink("@filebot", "Ab12"))
}
