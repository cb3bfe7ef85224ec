// Package stream decodes feed messages into raw ticks.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"marketwatcher/internal/memorystore"

	"go.uber.org/zap"
)

// depthPrefix marks depth topics, e.g. "depth.IF2503".
const depthPrefix = "depth."

// DepthMessage is a feed message carrying one depth update.
type DepthMessage struct {
	Topic string              `json:"topic"`
	Data  memorystore.RawTick `json:"data"`
	Ts    int64               `json:"ts"`
}

// TickSink receives decoded ticks.
type TickSink interface {
	OnTick(ctx context.Context, raw memorystore.RawTick) error
}

// MakeMessageHandler returns a function that handles incoming WebSocket
// messages by parsing depth updates and passing them to sink.
func MakeMessageHandler(ctx context.Context, logger *zap.Logger, sink TickSink) func(msg []byte) {
	return func(msg []byte) {
		// Extract topic string for early filtering
		var meta struct {
			Topic string `json:"topic"`
		}
		if err := json.Unmarshal(msg, &meta); err != nil {
			logger.Warn("failed to extract topic", zap.Error(err))
			return
		}
		if !isDepthTopic(meta.Topic) {
			return // subscription acks, heartbeats
		}

		var parsed DepthMessage
		if err := json.Unmarshal(msg, &parsed); err != nil {
			logger.Warn("failed to parse depth payload", zap.String("topic", meta.Topic), zap.Error(err))
			return
		}

		raw := parsed.Data
		if raw.InstrumentID == "" {
			raw.InstrumentID = instrumentFromTopic(parsed.Topic)
		}

		if err := sink.OnTick(ctx, raw); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("tick not delivered", zap.String("instrument", raw.InstrumentID), zap.Error(err))
		}
	}
}

func isDepthTopic(topic string) bool {
	return strings.HasPrefix(topic, depthPrefix)
}

// instrumentFromTopic parses the instrument from a topic like "depth.IF2503".
func instrumentFromTopic(topic string) string {
	return strings.TrimPrefix(topic, depthPrefix)
}
