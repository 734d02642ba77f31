package hub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/pkg/logger"
	"github.com/camilavaldes/splitabill-backend/pkg/redis"
)

// Fabric relays session events between application instances so a broadcast
// reaches devices connected to a sibling process.
type Fabric interface {
	Publish(ctx context.Context, sessionID uuid.UUID, event Event) error
}

// NoopFabric is the single-instance fabric: events only reach local
// connections.
type NoopFabric struct{}

func (NoopFabric) Publish(context.Context, uuid.UUID, Event) error { return nil }

type fabricEnvelope struct {
	Origin    string          `json:"origin"`
	SessionID uuid.UUID       `json:"session_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// remoteEvent carries an already-serialized payload received off the fabric.
type remoteEvent struct {
	eventType string
	payload   json.RawMessage
}

func (e remoteEvent) EventType() string            { return e.eventType }
func (e remoteEvent) MarshalJSON() ([]byte, error) { return e.payload, nil }

// RedisFabric bridges session channels over Redis pub/sub. Each instance tags
// published envelopes with its own id and ignores them on the way back in.
type RedisFabric struct {
	client        *redis.Client
	channelPrefix string
	instanceID    string
	logg          *logger.Logger
}

func NewRedisFabric(client *redis.Client, channelPrefix string, logg *logger.Logger) *RedisFabric {
	return &RedisFabric{
		client:        client,
		channelPrefix: channelPrefix,
		instanceID:    uuid.NewString(),
		logg:          logg,
	}
}

func (f *RedisFabric) channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", f.channelPrefix, sessionID)
}

func (f *RedisFabric) Publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling fabric event: %w", err)
	}
	envelope, err := json.Marshal(fabricEnvelope{
		Origin:    f.instanceID,
		SessionID: sessionID,
		EventType: event.EventType(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("marshalling fabric envelope: %w", err)
	}
	return f.client.Publish(ctx, f.channel(sessionID), envelope)
}

// Listen consumes envelopes published by sibling instances and replays them
// to the local hub. It blocks until ctx is cancelled.
func (f *RedisFabric) Listen(ctx context.Context, h *Hub) error {
	sub := f.client.PSubscribe(ctx, f.channelPrefix+":*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var envelope fabricEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				f.logg.Error(ctx, "hub.fabric received malformed envelope", err)
				continue
			}
			if envelope.Origin == f.instanceID {
				continue
			}
			h.broadcastLocal(ctx, envelope.SessionID, remoteEvent{
				eventType: envelope.EventType,
				payload:   envelope.Payload,
			}, nil)
		}
	}
}
