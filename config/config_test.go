package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "database/dataset.db", cfg.SQLitePath)
	assert.Equal(t, 1, cfg.HeaderRow)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join("staging", "03_final"), cfg.FinalDir())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_STORE_DRIVER", "postgres")
	t.Setenv("APP_POSTGRES_HOST", "db")
	t.Setenv("APP_FOREST_TREES", "7")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 7, cfg.ForestTrees)
	assert.Contains(t, cfg.DSN(), "host=db")
	assert.Contains(t, cfg.DSN(), "sslmode=disable")
}

func TestFromEnvRejectsInvalid(t *testing.T) {
	tests := []struct {
		key, val string
	}{
		{"APP_STORE_DRIVER", "mysql"},
		{"APP_LOG_LEVEL", "loud"},
		{"APP_MAX_CONCURRENCY", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnvRejectsUnparseable(t *testing.T) {
	t.Setenv("APP_HEADER_ROW", "second")
	_, err := FromEnv()
	assert.Error(t, err)
}
