package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// LedgerConsumer appends one line per generated report to a file.
type LedgerConsumer struct {
	url    string
	queue  string
	path   string
	logger *zap.Logger
}

func NewLedgerConsumer(url, queue, path string, logger *zap.Logger) *LedgerConsumer {
	return &LedgerConsumer{url: url, queue: queue, path: path, logger: logger.Named("ledger")}
}

// Run reconnects with backoff until ctx is cancelled.
func (lc *LedgerConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := dialAMQP(lc.url, amqpDialTimeout)
		if err != nil {
			lc.logger.Warn("dial failed, retrying", zap.Duration("backoff", backoff), zap.Error(err))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = lc.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lc.logger.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (lc *LedgerConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		lc.logger.Warn("set qos failed", zap.Error(err))
	}
	if _, err := declareQueue(ch, lc.queue); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, lc.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := lc.handle(d.Body); err != nil {
			lc.logger.Warn("handle message failed", zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (lc *LedgerConsumer) handle(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line, ok := ledgerLine(ev)
	if !ok {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(lc.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(lc.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// ledgerLine formats events that carry a report; others are skipped.
func ledgerLine(ev Event) (string, bool) {
	if ev.ReportID == "" {
		return "", false
	}
	return fmt.Sprintf("[%s] Report generated | report_id=%s | request_id=%s | collector=%s | status=%s | amount=%q | payment=%s | collection=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.ReportID, ev.RequestID, ev.AssignedTo, ev.Status, ev.Amount, ev.PaymentStatus, ev.CollectionStatus), true
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
