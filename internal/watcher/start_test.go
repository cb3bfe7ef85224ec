package watcher

import (
	"context"
	"testing"

	"marketwatcher/config"
	"marketwatcher/pkg/storage/file"
	"marketwatcher/pkg/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// go test -v --run TestOpenStore
func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	cfg := &config.Config{Storage: config.StorageConfig{Enabled: false, Backend: config.BackendFile, Path: t.TempDir()}}
	store, closeStore, err := OpenStore(ctx, cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, store)
	closeStore()

	cfg.Storage.Enabled = true
	store, _, err = OpenStore(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, store)

	cfg.Storage.Path = ""
	store, _, err = OpenStore(ctx, cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, store, "an empty path disables file persistence")

	cfg.Storage.Backend = config.BackendMemory
	store, _, err = OpenStore(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)

	cfg.Storage.Backend = "tape"
	_, _, err = OpenStore(ctx, cfg, logger)
	assert.Error(t, err)
}

// go test -v --run TestBuildCalendar
func TestBuildCalendar(t *testing.T) {
	cfg := config.CalendarConfig{
		Timezone: "UTC",
		Markets: []config.MarketConfig{{
			Name:  "CFFEX",
			Codes: []string{"IF", "IC"},
			Rules: []config.RuleConfig{{Pattern: `I[FC]\d{4}`, Sessions: []string{"09:30-11:30", "13:00-15:00"}}},
		}},
	}
	cal, err := BuildCalendar(cfg, []string{"IF2503", "cu2501"})
	require.NoError(t, err)

	sessions, err := cal.SessionsFor("IF2503")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, "CFFEX", cal.MarketOf("IF2503"))

	_, err = cal.SessionsFor("cu2501")
	assert.Error(t, err)

	_, err = BuildCalendar(config.CalendarConfig{Timezone: "Mars/Olympus"}, nil)
	assert.Error(t, err)
}
