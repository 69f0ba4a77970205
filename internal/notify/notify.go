package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gigworks/marketplace-core/internal/config"
)

// Publisher is the slice of the message broker client the notifier uses.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	IsConnected() bool
}

// Event is the envelope published for every notification.
type Event struct {
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	JobID      string            `json:"job_id,omitempty"`
	WorkerID   string            `json:"worker_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
}

// Notifier publishes marketplace events to the broker. Every publish is
// best effort: a broker outage is logged and swallowed, never surfaced to
// the operation that triggered it.
type Notifier struct {
	publisher Publisher
	cfg       *config.RabbitMQConfig
	logger    *slog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(publisher Publisher, cfg *config.RabbitMQConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Notify publishes a worker- or customer-facing event.
func (n *Notifier) Notify(ctx context.Context, event Event) {
	n.publish(ctx, n.cfg.NotifyRoutingKey, event)
}

// AdminAlert publishes an event requiring operator attention, such as a
// gateway dispatch failure that left a payout on the manual path.
func (n *Notifier) AdminAlert(ctx context.Context, event Event) {
	n.publish(ctx, n.cfg.AdminRoutingKey, event)
}

// Report publishes a closed reporting period snapshot.
func (n *Notifier) Report(ctx context.Context, event Event) {
	n.publish(ctx, n.cfg.ReportRoutingKey, event)
}

func (n *Notifier) publish(ctx context.Context, routingKey string, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to marshal notification event",
			"type", event.Type,
			"error", err)
		return
	}

	if err := n.publisher.Publish(ctx, routingKey, body); err != nil {
		n.logger.Error("failed to publish notification event",
			"type", event.Type,
			"routing_key", routingKey,
			"error", err)
	}
}
