package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is the topic exchange email events publish to, named
// after the teacher's own event exchange convention.
const DefaultExchange = "sso.email"

const publishWait = 150 * time.Millisecond

// RabbitMQSink publishes a Message as a durable, confirmed event for an
// out-of-process worker to deliver over SMTP. Grounded directly on the
// teacher's internal/infrastructure/messaging/rabbitmq/publisher.go:
// topic exchange, confirm mode, mandatory delivery, and a bounded wait
// for the broker's ack/return/timeout.
type RabbitMQSink struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewRabbitMQSink(url string) (*RabbitMQSink, error) {
	s := &RabbitMQSink{url: url, exchange: DefaultExchange}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RabbitMQSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch != nil {
		_ = s.ch.Close()
		s.ch = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	return nil
}

func (s *RabbitMQSink) connect() error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}
	s.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	s.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	s.conn = conn
	s.ch = ch
	return nil
}

func (s *RabbitMQSink) ensureConnected() error {
	if s.conn != nil && !s.conn.IsClosed() && s.ch != nil {
		return nil
	}
	return s.connect()
}

// Send publishes msg to the "sso.email.outbound" routing key and waits
// for the broker to confirm or reject delivery.
func (s *RabbitMQSink) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConnected(); err != nil {
		return err
	}

drain:
	for {
		select {
		case <-s.confirmCh:
		case <-s.returnCh:
		default:
			break drain
		}
	}

	if err := s.ch.PublishWithContext(ctx, s.exchange, "sso.email.outbound", true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}); err != nil {
		s.resetConn()
		return fmt.Errorf("publish failed: %w", err)
	}

	select {
	case ret := <-s.returnCh:
		return fmt.Errorf("rabbitmq unroutable: code=%d text=%s", ret.ReplyCode, ret.ReplyText)
	case conf := <-s.confirmCh:
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: deliveryTag=%d", conf.DeliveryTag)
		}
		return nil
	case <-time.After(publishWait):
		return fmt.Errorf("rabbitmq publish timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RabbitMQSink) resetConn() {
	if s.ch != nil {
		_ = s.ch.Close()
		s.ch = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
