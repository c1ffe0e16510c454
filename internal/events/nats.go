package events

import (
	"encoding/json"
	"log/slog"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/metrics"
	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	conn    *nats.Conn
	prefix  string
	metrics *metrics.Metrics
}

func Connect(cfg config.NATS, metrics *metrics.Metrics) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("camper-server"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return NewNATSPublisher(conn, cfg.SubjectPrefix, metrics), nil
}

func NewNATSPublisher(conn *nats.Conn, prefix string, metrics *metrics.Metrics) *NATSPublisher {
	if prefix == "" {
		prefix = config.DefaultNATSSubjectPrefix
	}
	return &NATSPublisher{
		conn:    conn,
		prefix:  prefix,
		metrics: metrics,
	}
}

// Subject is the NATS subject an event type is published on.
func (p *NATSPublisher) Subject(eventType EventType) string {
	return p.prefix + "." + string(eventType)
}

func (p *NATSPublisher) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to encode event", "type", event.GetType(), "error", err)
		p.metrics.IncrementEventsPublished(string(event.GetType()), "error")
		return
	}
	if err := p.conn.Publish(p.Subject(event.GetType()), data); err != nil {
		slog.Warn("Failed to publish event", "type", event.GetType(), "error", err)
		p.metrics.IncrementEventsPublished(string(event.GetType()), "error")
		return
	}
	p.metrics.IncrementEventsPublished(string(event.GetType()), "ok")
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		slog.Warn("Failed to drain NATS connection", "error", err)
	}
}
