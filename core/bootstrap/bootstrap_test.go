package bootstrap

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/filehost/core/config"
)

type memStorage struct {
	seeded []string
	closed bool
}

func (m *memStorage) Close() error {
	m.closed = true
	return nil
}

func noLogger(*coreconfig.Config) error { return nil }

func TestRunSeedsInOrder(t *testing.T) {
	st := &memStorage{}
	got, err := Run(context.Background(), Options[*memStorage]{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Open:       func(context.Context) (*memStorage, error) { return st, nil },
		Seeders: []Seeder[*memStorage]{
			SeederFunc[*memStorage](func(_ context.Context, s *memStorage) error { s.seeded = append(s.seeded, "a"); return nil }),
			SeederFunc[*memStorage](func(_ context.Context, s *memStorage) error { s.seeded = append(s.seeded, "b"); return nil }),
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != st || len(st.seeded) != 2 || st.seeded[0] != "a" || st.seeded[1] != "b" {
		t.Fatalf("seeded = %v", st.seeded)
	}
}

func TestRunClosesStorageOnSeedFailure(t *testing.T) {
	st := &memStorage{}
	boom := errors.New("boom")
	_, err := Run(context.Background(), Options[*memStorage]{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Open:       func(context.Context) (*memStorage, error) { return st, nil },
		Seeders: []Seeder[*memStorage]{
			SeederFunc[*memStorage](func(context.Context, *memStorage) error { return boom }),
		},
	})
	if !errors.Is(err, boom) || !st.closed {
		t.Fatalf("err=%v closed=%v", err, st.closed)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if _, err := Run(context.Background(), Options[*memStorage]{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
