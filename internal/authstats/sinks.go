package authstats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/backoffice-core/internal/infrastructure/mqtt"
)

// RetainedPublisher is satisfied by *mqtt.Client.
type RetainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// MQTTSink publishes snapshots as retained JSON on backoffice/auth/stats.
type MQTTSink struct {
	client RetainedPublisher
	topic  string
}

// NewMQTTSink wraps an MQTT publisher.
func NewMQTTSink(client RetainedPublisher) *MQTTSink {
	return &MQTTSink{client: client, topic: mqtt.Topics{}.AuthStats()}
}

// Publish implements Sink.
func (s *MQTTSink) Publish(_ context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding auth stats: %w", err)
	}
	if err := s.client.PublishRetained(s.topic, payload); err != nil {
		return fmt.Errorf("publishing auth stats: %w", err)
	}
	return nil
}

// PointWriter is satisfied by *influxdb.Client.
type PointWriter interface {
	WriteAuthStats(siteID string, fields map[string]any, ts time.Time)
}

// InfluxSink writes snapshots as auth_stats points.
type InfluxSink struct {
	client PointWriter
}

// NewInfluxSink wraps an InfluxDB writer.
func NewInfluxSink(client PointWriter) *InfluxSink {
	return &InfluxSink{client: client}
}

// Publish implements Sink. Writes are batched, so failures surface
// through the client's error callback instead.
func (s *InfluxSink) Publish(_ context.Context, snap Snapshot) error {
	s.client.WriteAuthStats(snap.SiteID, snap.Fields(), snap.Timestamp)
	return nil
}
