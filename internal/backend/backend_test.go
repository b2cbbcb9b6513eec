package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := FromAppConfig(nil)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := FromAppConfig(&config.Config{DataBackend: "sheets"})
		assert.ErrorContains(t, err, "invalid backend type")
	})

	t.Run("copies storage settings", func(t *testing.T) {
		cfg, err := FromAppConfig(&config.Config{
			DataBackend:  "sqlite",
			SQLiteDBPath: "/tmp/x.db",
			SeedFile:     "seed.json",
			FXCache:      "redis",
			RedisURL:     "redis://localhost:6379/0",
		})
		require.NoError(t, err)
		assert.Equal(t, SQLiteBackend, cfg.Type)
		assert.Equal(t, "/tmp/x.db", cfg.SQLiteDBPath)
		assert.Equal(t, "seed.json", cfg.SeedFile)
		assert.Equal(t, "redis", cfg.FXCache)
		assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "memory", cfg: Config{Type: MemoryBackend}},
		{name: "sqlite", cfg: Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}},
		{name: "sqlite without path", cfg: Config{Type: SQLiteBackend}, wantErr: "database path is required"},
		{name: "bad type", cfg: Config{Type: "postgres"}, wantErr: "invalid backend type"},
		{name: "redis without url", cfg: Config{Type: MemoryBackend, FXCache: "redis"}, wantErr: "Redis URL is required"},
		{name: "unknown fx cache", cfg: Config{Type: MemoryBackend, FXCache: "disk"}, wantErr: "invalid fx cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func TestFactory_Memory(t *testing.T) {
	ctx := context.Background()
	seed := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(`[
		{"id":"a","name":"Netflix","category":"ENTERTAIN","amount":13500,"currency":"KRW",
		 "billingCycle":"MONTHLY","billingDay":25,"isActive":true,
		 "createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}
	]`), 0o644))

	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend, SeedFile: seed})
	require.NoError(t, err)
	defer res.Cleanup()

	subs, err := res.Backend.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Netflix", subs[0].Name)
	assert.Same(t, res.Backend, res.Rates)
	assert.NoError(t, res.Backend.Ping(ctx))
}

func TestFactory_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "subtrack.db")

	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	defer res.Cleanup()

	assert.NoError(t, res.Backend.Ping(ctx))
	_, ok, err := res.Rates.LoadRates(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFactory_RejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	assert.Error(t, err)
}
