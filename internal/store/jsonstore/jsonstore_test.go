package jsonstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/filehost/internal/store"
	"github.com/m3rciful/filehost/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(filepath.Join(t.TempDir(), "db.json"))
		require.NoError(t, err)
		return s
	})
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)

	sub := store.At(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, s.Atomic(context.Background(), func(tx store.Tx) error {
		if err := tx.PutUser(store.User{ID: 7, Tag: "@bob", SubUntil: sub}); err != nil {
			return err
		}
		if err := tx.InsertFile(store.File{Code: "abc", FileID: "F1", FileName: "a.txt"}); err != nil {
			return err
		}
		return tx.PutSettings(store.Settings{MonthlyPrice: decimal.RequireFromString("0.50")})
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, reopened.Atomic(context.Background(), func(tx store.Tx) error {
		u, err := tx.User(7)
		require.NoError(t, err)
		assert.Equal(t, "@bob", u.Tag)
		assert.True(t, u.SubUntil.Equal(sub.Time))

		f, err := tx.File("abc")
		require.NoError(t, err)
		assert.Equal(t, "abc", f.Code)
		assert.Equal(t, "F1", f.FileID)

		st, err := tx.Settings()
		require.NoError(t, err)
		assert.Equal(t, "0.50", st.MonthlyPrice.StringFixed(2))
		return nil
	}))
}

func TestReadOnlyScopeDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Atomic(context.Background(), func(tx store.Tx) error {
		_, err := tx.Users()
		return err
	}))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file should not be created by reads")
}

func TestMigratesLegacyFlatLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	legacy := `{
  "Xy12": {"file_id": "BQAC1", "file_name": "a.zip", "u_id": 5, "u_tag": "@eve"},
  "Zz99": {"file_id": "BQAC2", "file_name": "b.zip", "u_id": 6, "u_tag": "@mal"}
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Atomic(context.Background(), func(tx store.Tx) error {
		f, err := tx.File("Xy12")
		require.NoError(t, err)
		assert.Equal(t, "BQAC1", f.FileID)
		assert.Equal(t, int64(5), f.OwnerID)
		assert.Equal(t, "@eve", f.OwnerTag)

		c, err := tx.Counts()
		require.NoError(t, err)
		assert.Equal(t, 2, c.Files)
		assert.Equal(t, 0, c.Users)
		return nil
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &top))
	assert.Contains(t, top, "files")
	assert.Contains(t, top, "users")
}

func TestDecodesLegacyTimestampsAndKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	doc := `{
  "users": {"12": {"tag": "@old", "sub_until": "2024-05-01 10:30 UTC", "last_seen": 1714559400}},
  "files": {},
  "invoices": {"77": {"user_id": 12, "status": "paid", "amount_usd": 0.5}},
  "settings": {"monthly_price_usd": "1.00"}
}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Atomic(context.Background(), func(tx store.Tx) error {
		u, err := tx.User(12)
		require.NoError(t, err)
		assert.Equal(t, int64(12), u.ID)
		assert.True(t, u.SubUntil.Equal(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)))
		assert.True(t, u.LastSeen.Set())

		inv, err := tx.Invoice("77")
		require.NoError(t, err)
		assert.Equal(t, "77", inv.ID)
		assert.Equal(t, "0.50", inv.Amount.StringFixed(2))
		return nil
	}))
}

func TestFlushFailureKeepsPreviousState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Atomic(context.Background(), func(tx store.Tx) error {
		return tx.PutUser(store.User{ID: 1})
	}))

	// A directory in place of the target makes the rename fail.
	s.path = filepath.Join(dir, "blocked")
	require.NoError(t, os.MkdirAll(filepath.Join(s.path, "child"), 0o755))

	err = s.Atomic(context.Background(), func(tx store.Tx) error {
		return tx.PutUser(store.User{ID: 2})
	})
	require.Error(t, err)

	require.NoError(t, s.Atomic(context.Background(), func(tx store.Tx) error {
		_, err := tx.User(2)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = tx.User(1)
		assert.NoError(t, err)
		return nil
	}))
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Open(path)
	assert.Error(t, err)
}
