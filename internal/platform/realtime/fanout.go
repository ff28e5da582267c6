package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Fanout is the Broadcaster handed to domain services. It routes events to
// the local hub, or through the Redis bridge when one is configured so every
// node's hub sees them. Errors are logged and swallowed: broadcasting is a
// side channel, never part of the write's success contract.
type Fanout struct {
	hub    *Hub
	bridge *RedisBridge
	logger zerolog.Logger
}

// NewFanout builds a Fanout. bridge may be nil for single-node deployments.
func NewFanout(hub *Hub, bridge *RedisBridge, logger zerolog.Logger) *Fanout {
	return &Fanout{hub: hub, bridge: bridge, logger: logger}
}

// Publish implements Broadcaster. With a bridge configured, the event goes to
// Redis and comes back to the local hub through the relay; if the bridge is
// down the event is delivered straight to the local hub so local observers
// still see it.
func (f *Fanout) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if f.bridge != nil {
		if err := f.bridge.Publish(ctx, event); err == nil {
			return nil
		} else {
			f.logger.Error().Err(err).
				Str("type", event.Type).
				Str("department", event.Department).
				Msg("redis broadcast failed, delivering locally")
		}
	}

	if err := f.hub.Publish(ctx, event); err != nil {
		f.logger.Error().Err(err).
			Str("type", event.Type).
			Str("department", event.Department).
			Msg("broadcast failed")
	}
	return nil
}

// NewEvent builds an Event with the payload marshalled to JSON. Marshal
// failures return an event with an empty payload rather than an error.
func NewEvent(eventType, department string, payload interface{}) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return Event{
		Type:       eventType,
		Department: department,
		Timestamp:  time.Now(),
		Data:       data,
	}
}
