package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"marketwatcher/internal/memorystore"
	"marketwatcher/pkg/storage"
	"marketwatcher/pkg/storage/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run ^TestPostgresInvalidDSN$
func TestPostgresInvalidDSN(t *testing.T) {
	invalidDSN := "host=invalid port=5432 user=fail password=fail dbname=fail sslmode=disable connect_timeout=1"

	_, err := postgres.NewClient(invalidDSN)
	assert.Error(t, err)
}

// go test -v --run ^TestToTickRecords$
func TestToTickRecords(t *testing.T) {
	ticks := []memorystore.Tick{
		{
			InstrumentID: "IF2503",
			Seconds:      34200,
			LastPrice:    3912.4,
			Volume:       120,
			Bids:         [2]memorystore.Level{{Price: 3912.2, Volume: 3}, {Price: 3912.0, Volume: 7}},
			Asks:         [2]memorystore.Level{{Price: 3912.6, Volume: 2}, {Price: 3912.8, Volume: 9}},
		},
		{InstrumentID: "IF2503", Seconds: 41399, LastPrice: 3915.0, Volume: 160},
	}

	records := postgres.ToTickRecords("IF2503", "IF2503/20250310_113300_000.data", ticks)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].Seq)
	assert.Equal(t, 1, records[1].Seq)
	assert.Equal(t, "IF2503/20250310_113300_000.data", records[1].ArtifactKey)
	assert.Equal(t, 3912.2, records[0].Bid1Price)
	assert.Equal(t, int64(9), records[0].Ask2Volume)

	assert.Equal(t, ticks, postgres.FromTickRecords(records))
}

// go test -v --run ^TestTickArtifactRoundTrip$
// Requires a reachable database in MARKETWATCHER_TEST_DSN.
func TestTickArtifactRoundTrip(t *testing.T) {
	dsn := os.Getenv("MARKETWATCHER_TEST_DSN")
	if dsn == "" {
		t.Skip("MARKETWATCHER_TEST_DSN not set")
	}

	client, err := postgres.NewClient(dsn)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.True(t, client.IsHealthy(ctx))
	require.NoError(t, client.AutoMigrateTickRecord())

	key := storage.ArtifactKey("TEST", time.Now())
	ticks := []memorystore.Tick{
		{InstrumentID: "TEST", Seconds: 1, LastPrice: 1.5, Volume: 1},
		{InstrumentID: "TEST", Seconds: 2, LastPrice: 1.6, Volume: 2},
	}
	require.NoError(t, client.Write(ctx, "TEST", key, ticks))
	assert.Error(t, client.Write(ctx, "TEST", key, ticks), "artifacts are never overwritten")

	got, err := client.GetArtifact(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, ticks, got)

	require.NoError(t, client.DB.WithContext(ctx).Where("artifact_key = ?", key).Delete(&postgres.TickRecord{}).Error)
}
