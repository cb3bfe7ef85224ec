package memory

import (
	"context"
	"errors"
	"testing"

	"marketwatcher/internal/memorystore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestSaveAndRetrieveArtifacts
func TestSaveAndRetrieveArtifacts(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Prepare(ctx, "A"))
	require.NoError(t, store.Write(ctx, "A", "A/1.data", []memorystore.Tick{{InstrumentID: "A", Seconds: 1}}))
	require.NoError(t, store.Write(ctx, "B", "B/1.data", []memorystore.Tick{{InstrumentID: "B", Seconds: 2}}))

	assert.Equal(t, 1, store.Prepared("A"))
	assert.Len(t, store.Artifacts(), 2)
	require.Len(t, store.ArtifactsFor("A"), 1)
	assert.Equal(t, "A/1.data", store.ArtifactsFor("A")[0].Key)

	assert.Error(t, store.Write(ctx, "A", "A/1.data", []memorystore.Tick{{InstrumentID: "A"}}), "keys are never overwritten")
}

// go test -v --run TestFailWrites
func TestFailWrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("disk full")

	store.FailWrites("A", boom)
	assert.ErrorIs(t, store.Write(ctx, "A", "A/1.data", []memorystore.Tick{{InstrumentID: "A"}}), boom)
	assert.NoError(t, store.Write(ctx, "B", "B/1.data", []memorystore.Tick{{InstrumentID: "B"}}))

	store.FailWrites("A", nil)
	assert.NoError(t, store.Write(ctx, "A", "A/1.data", []memorystore.Tick{{InstrumentID: "A"}}))
}
