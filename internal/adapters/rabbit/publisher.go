package rabbit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/artemvolkov/auction-house/internal/observability"
)

const exchange = "auction.events"

type Publisher struct {
	ch     *amqp.Channel
	logger observability.Logger
}

func NewPublisher(conn *amqp.Connection, logger observability.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	return &Publisher{ch: ch, logger: logger}, nil
}

// Publish implements notify.Sink. Errors are absorbed: the sink is best
// effort and must never fail a committed transition.
func (p *Publisher) Publish(ctx context.Context, event string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		observability.NotifyFailures.Inc()
		p.logger.WithError(err).WithField("event", event).Error("failed to marshal event")
		return
	}
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        body,
	}
	if err := p.ch.PublishWithContext(ctx, exchange, event, false, false, msg); err != nil {
		observability.NotifyFailures.Inc()
		p.logger.WithError(err).WithField("event", event).Error("failed to publish event")
	}
}
