// Package service publishes booking domain events to RabbitMQ.  Publishing
// is best effort: failures are logged and returned, and callers never fail
// a request because the broker is down.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/queue"
)

var logger = log.New("publisher")

// ErrBufferFull is returned by AsyncPublisher.Publish when the event was
// dropped.  The caller decides whether to log it.
var ErrBufferFull = errors.New("publish buffer full")

// Publisher sends booking events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// NopPublisher drops every event.  It is used when queueing is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.BookingEvent) error { return nil }

// AMQPPublisher publishes each event as a persistent JSON message on the
// booking topic exchange, routed by the event type.  It dials per publish;
// booking traffic is low and this keeps no connection state to repair.
type AMQPPublisher struct {
	url         string
	exchange    string
	dialTimeout time.Duration
}

// NewAMQPPublisher publishes to cfg.Exchange on cfg.URL.
func NewAMQPPublisher(cfg config.QueueConfig) *AMQPPublisher {
	return &AMQPPublisher{url: cfg.URL, exchange: cfg.Exchange, dialTimeout: 3 * time.Second}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.BookingEvent) error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := queue.DeclareTopology(ch, p.exchange); err != nil {
		return fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.BookingID,
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// AsyncPublisher hands events to a background worker so request handlers
// return without waiting on the broker.  When the buffer is full the event
// is dropped and logged.
type AsyncPublisher struct {
	inner   Publisher
	timeout time.Duration
	ch      chan queue.BookingEvent
	wg      sync.WaitGroup
	once    sync.Once
}

// NewAsyncPublisher starts one worker draining a buffer of size buffer into
// inner.
func NewAsyncPublisher(inner Publisher, buffer int) *AsyncPublisher {
	if buffer < 1 {
		buffer = 1
	}
	p := &AsyncPublisher{inner: inner, timeout: 5 * time.Second, ch: make(chan queue.BookingEvent, buffer)}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *AsyncPublisher) run() {
	defer p.wg.Done()
	for ev := range p.ch {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.inner.Publish(ctx, ev); err != nil {
			logger.Warnf("publish %s for booking %s: %v", ev.Type, ev.BookingID, err)
		}
		cancel()
	}
}

// Publish enqueues ev.  It never blocks; when the buffer is full ev is
// dropped and ErrBufferFull returned.
func (p *AsyncPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	select {
	case p.ch <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close stops accepting events and waits for queued ones to be sent.
// Publish must not be called after Close.
func (p *AsyncPublisher) Close() {
	p.once.Do(func() { close(p.ch) })
	p.wg.Wait()
}

// New picks the publisher for cfg: a buffered AMQP publisher when queueing
// is enabled, a NopPublisher otherwise.  The returned close func flushes
// pending events.
func New(cfg config.QueueConfig) (Publisher, func()) {
	if !cfg.Enabled {
		return NopPublisher{}, func() {}
	}
	async := NewAsyncPublisher(NewAMQPPublisher(cfg), 256)
	return async, async.Close
}
