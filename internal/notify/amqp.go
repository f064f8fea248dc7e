package notify

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"amicus.org/internal/membership"
)

const defaultQueue = "portal.notifications"

// AMQPNotifier publishes notification events to a RabbitMQ queue, one
// connection per publish. The mail worker that consumes the queue lives
// outside this service.
type AMQPNotifier struct {
	url   string
	queue string
}

// NewAMQPNotifier builds a notifier targeting the given broker URL.
func NewAMQPNotifier(url string, queue string) *AMQPNotifier {
	if queue == "" {
		queue = defaultQueue
	}
	return &AMQPNotifier{url: url, queue: queue}
}

func (n *AMQPNotifier) SendWelcome(ctx context.Context, member *membership.Member, assoc *membership.Association) error {
	return n.publish(ctx, newEvent(KindWelcome, member, assoc))
}

func (n *AMQPNotifier) SendApproval(ctx context.Context, member *membership.Member, assoc *membership.Association) error {
	return n.publish(ctx, newEvent(KindApproved, member, assoc))
}

func (n *AMQPNotifier) publish(ctx context.Context, event Event) error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx,
		"",      // default exchange
		n.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}
