package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecrets(t *testing.T) {
	t.Setenv("GCQ_JWT_SECRET", "")
	t.Setenv("GCQ_JWT_REFRESH_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("GCQ_JWT_SECRET", "access")
	t.Setenv("GCQ_JWT_REFRESH_SECRET", "refresh")
	t.Setenv("GCQ_CACHE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "GC Quest API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL)
	require.Equal(t, 20*time.Second, cfg.LiveAwayAfter)
	require.Equal(t, "memory", cfg.CacheDriver)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("GCQ_JWT_SECRET", "access")
	t.Setenv("GCQ_JWT_REFRESH_SECRET", "refresh")
	t.Setenv("GCQ_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownCacheDriver(t *testing.T) {
	t.Setenv("GCQ_JWT_SECRET", "access")
	t.Setenv("GCQ_JWT_REFRESH_SECRET", "refresh")
	t.Setenv("GCQ_CACHE_DRIVER", "memcached")

	_, err := Load()
	require.Error(t, err)
}
