package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmitrijs2005/auctionchat/internal/logging"
)

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events as persistent JSON messages.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	log      logging.Logger
}

// DialAMQP connects with exponential backoff until ctx is done or
// maxElapsed passes, then declares a durable topic exchange.
func DialAMQP(ctx context.Context, url, exchange string, maxElapsed time.Duration, log logging.Logger) (*AMQPPublisher, error) {
	log = logging.OrNop(log)

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed

	var conn *amqp.Connection
	err := backoff.RetryNotify(func() error {
		var err error
		conn, err = amqp.Dial(url)
		return err
	}, backoff.WithContext(b, ctx), func(err error, d time.Duration) {
		log.Warn(ctx, "rabbit dial failed", "error", err, "sleep", d)
	})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := newAMQPPublisher(ch, exchange, log)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch channel, exchange string, log logging.Logger) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange, log: logging.OrNop(log)}
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, e.RoutingKey(), false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     e.ID,
		CorrelationId: e.ConversationID,
		Timestamp:     e.At,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.RoutingKey(), err)
	}
	p.log.Debug(ctx, "event published", "key", e.RoutingKey(), "exchange", p.exchange)
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
