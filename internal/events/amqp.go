package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"pickup-backend/internal/metrics"
)

const (
	amqpDialTimeout = 5 * time.Second
	amqpBufferSize  = 256
)

var (
	ErrPublisherClosed = errors.New("publisher closed")
	ErrPublishBacklog  = errors.New("publish buffer full")
)

// AMQPPublisher hands events to a single worker that owns one long-lived
// connection. Publish never waits on the broker.
type AMQPPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	logger      *zap.Logger

	pending   chan Event
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// owned by the worker goroutine
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url, queue string, logger *zap.Logger) *AMQPPublisher {
	return newAMQPPublisher(url, queue, amqpDialTimeout, amqpBufferSize, logger)
}

func newAMQPPublisher(url, queue string, dialTimeout time.Duration, buffer int, logger *zap.Logger) *AMQPPublisher {
	p := &AMQPPublisher{
		url:         url,
		queue:       queue,
		dialTimeout: dialTimeout,
		logger:      logger.Named("amqp"),
		pending:     make(chan Event, buffer),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues ev. Delivery failures are logged and counted by the worker.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	select {
	case <-p.quit:
		return ErrPublisherClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.pending <- ev:
		return nil
	default:
		p.fail("dropping event", ErrPublishBacklog)
		return ErrPublishBacklog
	}
}

// Close stops the worker after it flushes what is already queued.
func (p *AMQPPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.quit) })
	<-p.done
	return nil
}

func (p *AMQPPublisher) run() {
	defer close(p.done)
	defer p.reset()
	for {
		select {
		case ev := <-p.pending:
			p.deliver(ev)
		case <-p.quit:
			p.flush()
			return
		}
	}
}

func (p *AMQPPublisher) flush() {
	for {
		select {
		case ev := <-p.pending:
			if !p.deliver(ev) {
				p.fail("dropping queued events on close", fmt.Errorf("%d left", len(p.pending)))
				return
			}
		default:
			return
		}
	}
}

func (p *AMQPPublisher) deliver(ev Event) bool {
	body, err := json.Marshal(ev)
	if err != nil {
		p.fail("marshal event failed", err)
		return true
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}

	// A broker restart leaves a dead channel behind; retry once on a fresh one.
	for attempt := 0; attempt < 2; attempt++ {
		if err = p.ensureChannel(); err != nil {
			break
		}
		ctx, cancel := context.WithTimeout(context.Background(), p.dialTimeout)
		err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, pub)
		cancel()
		if err == nil {
			return true
		}
		p.reset()
	}
	p.fail("publish failed", err)
	return false
}

func (p *AMQPPublisher) ensureChannel() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()

	conn, err := dialAMQP(p.url, p.dialTimeout)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("channel open: %w", err)
	}
	if _, err := declareQueue(ch, p.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) fail(msg string, err error) {
	metrics.EventPublishErrors.WithLabelValues("amqp").Inc()
	p.logger.Warn(msg, zap.String("queue", p.queue), zap.Error(err))
}

// dialAMQP bounds the TCP connect and the AMQP handshake by timeout.
func dialAMQP(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Dial:      amqp.DefaultDial(timeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
}

// declareQueue declares a durable queue; both publisher and ledger consumer use it.
func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(name, true, false, false, false, nil)
}
