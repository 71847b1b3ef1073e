package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"quiz-engine/internal/domain"
)

// RoutingKeySessionEnded is the topic under which final results are published.
const RoutingKeySessionEnded = "session.ended"

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// ResultPublisher hands final results to a topic exchange for downstream
// storage and analytics consumers.
type ResultPublisher struct {
	conn     *amqp.Connection
	exchange string

	// amqp channels are not safe for concurrent publishing.
	mu      sync.Mutex
	channel Channel
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string) (*ResultPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: declare exchange %s: %w", exchange, err)
	}
	p := NewResultPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

func NewResultPublisher(ch Channel, exchange string) *ResultPublisher {
	return &ResultPublisher{channel: ch, exchange: exchange}
}

type message struct {
	Type    string        `json:"type"`
	Payload domain.Result `json:"payload"`
}

func (p *ResultPublisher) SaveResult(_ context.Context, result domain.Result) error {
	msg, err := newPublishing(result)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.Publish(p.exchange, RoutingKeySessionEnded, false, false, msg); err != nil {
		return fmt.Errorf("amqp: publish result %s: %w", result.Key(), err)
	}
	return nil
}

func newPublishing(result domain.Result) (amqp.Publishing, error) {
	body, err := json.Marshal(message{Type: RoutingKeySessionEnded, Payload: result})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("amqp: marshal result: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    result.Key().String(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

func (p *ResultPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
