package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Clark-Hu/movie-directory/internal/domain"
)

// Broker is a RabbitMQ connection bound to a single durable queue.
type Broker struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *log.Logger
	mu     sync.Mutex
}

// Dial connects to RabbitMQ and declares queue.
func Dial(url, queue string, logger *log.Logger) (*Broker, error) {
	if logger == nil {
		logger = log.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	logger.Info("connected to broker", "queue", queue)
	return &Broker{conn: conn, ch: ch, queue: queue, logger: logger}, nil
}

// Publish encodes msg as JSON and sends it to the queue.
func (b *Broker) Publish(ctx context.Context, msg domain.EmailMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode email message: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	err = b.ch.PublishWithContext(ctx,
		"",
		b.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", b.queue, err)
	}
	return nil
}

// Delivery is one message received from the queue.
type Delivery struct {
	Message domain.EmailMessage
	raw     amqp.Delivery
}

// NewDelivery pairs a decoded message with the raw delivery it came from.
func NewDelivery(msg domain.EmailMessage, raw amqp.Delivery) Delivery {
	return Delivery{Message: msg, raw: raw}
}

// Ack acknowledges the delivery.
func (d Delivery) Ack() error {
	if err := d.raw.Ack(false); err != nil {
		return fmt.Errorf("ack message: %w", err)
	}
	return nil
}

// Requeue negatively acknowledges the delivery and asks the broker to redeliver it.
func (d Delivery) Requeue() error {
	if err := d.raw.Nack(false, true); err != nil {
		return fmt.Errorf("requeue message: %w", err)
	}
	return nil
}

// Consume streams decoded deliveries until ctx is done or the channel closes.
// Messages that are not valid JSON are logged and dropped.
func (b *Broker) Consume(ctx context.Context) (<-chan Delivery, error) {
	msgs, err := b.ch.Consume(b.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", b.queue, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-msgs:
				if !ok {
					return
				}
				var msg domain.EmailMessage
				if err := json.Unmarshal(raw.Body, &msg); err != nil {
					b.logger.Error("dropping malformed message", "err", err)
					_ = raw.Nack(false, false)
					continue
				}
				select {
				case out <- NewDelivery(msg, raw):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close tears down the channel and connection.
func (b *Broker) Close() error {
	if b == nil {
		return nil
	}
	if err := b.ch.Close(); err != nil {
		b.logger.Warn("close channel", "err", err)
	}
	return b.conn.Close()
}
