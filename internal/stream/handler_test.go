package stream

import (
	"context"
	"errors"
	"testing"

	"marketwatcher/internal/memorystore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	ticks []memorystore.RawTick
	err   error
}

func (s *recordingSink) OnTick(_ context.Context, raw memorystore.RawTick) error {
	s.ticks = append(s.ticks, raw)
	return s.err
}

// go test -v --run TestHandlerParsesDepth
func TestHandlerParsesDepth(t *testing.T) {
	sink := &recordingSink{}
	h := MakeMessageHandler(context.Background(), zap.NewNop(), sink)

	h([]byte(`{"topic":"depth.IF2503","ts":1741577400000,"data":{
		"update_time":"09:30:00","last_price":3912.4,"volume":120,
		"bids":[{"price":3912.2,"volume":3},{"price":3912.0,"volume":7}],
		"asks":[{"price":3912.6,"volume":2},{"price":3912.8,"volume":9}]}}`))

	require.Len(t, sink.ticks, 1)
	got := sink.ticks[0]
	assert.Equal(t, "IF2503", got.InstrumentID)
	assert.Equal(t, "09:30:00", got.UpdateTime)
	assert.Equal(t, 3912.4, got.LastPrice)
	assert.Equal(t, int64(120), got.Volume)
	assert.Equal(t, memorystore.Level{Price: 3912.0, Volume: 7}, got.Bids[1])
	assert.Equal(t, memorystore.Level{Price: 3912.6, Volume: 2}, got.Asks[0])
}

// go test -v --run TestHandlerIgnoresOtherMessages
func TestHandlerIgnoresOtherMessages(t *testing.T) {
	sink := &recordingSink{}
	h := MakeMessageHandler(context.Background(), zap.NewNop(), sink)

	h([]byte(`{"op":"subscribe","success":true}`))
	h([]byte(`{"topic":"heartbeat"}`))
	h([]byte(`not json`))
	h([]byte(`{"topic":"depth.IF2503","data":"broken"}`))

	assert.Empty(t, sink.ticks)
}

// go test -v --run TestHandlerKeepsInstrumentFromPayload
func TestHandlerKeepsInstrumentFromPayload(t *testing.T) {
	sink := &recordingSink{err: errors.New("queue full")}
	h := MakeMessageHandler(context.Background(), zap.NewNop(), sink)

	h([]byte(`{"topic":"depth.cu2501","data":{"instrument_id":"cu2502","update_time":"21:00:00"}}`))

	require.Len(t, sink.ticks, 1)
	assert.Equal(t, "cu2502", sink.ticks[0].InstrumentID)
}
