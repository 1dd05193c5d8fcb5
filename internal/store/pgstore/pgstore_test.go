package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/filehost/core/database"
	"github.com/m3rciful/filehost/internal/store"
	"github.com/m3rciful/filehost/internal/store/storetest"
)

// Set FILEHOST_TEST_PG=1 together with DB_HOST, DB_PORT, DB_USER, DB_PASSWORD
// and DB_NAME to run against a disposable database.
func TestConformance(t *testing.T) {
	if os.Getenv("FILEHOST_TEST_PG") == "" {
		t.Skip("FILEHOST_TEST_PG not set")
	}
	var cfg database.Config
	require.NoError(t, envconfig.Process("", &cfg))

	ctx := context.Background()
	s, err := Open(ctx, cfg, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	storetest.Run(t, func(t *testing.T) store.Store {
		_, err := s.DB().ExecContext(ctx, `TRUNCATE users, files, invoices, settings`)
		require.NoError(t, err)
		return nopClose{s}
	})
}

// nopClose keeps the shared pool open between subtests.
type nopClose struct{ *Store }

func (nopClose) Close() error { return nil }
