package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

const (
	// StreamName is the JetStream stream carrying document change events
	StreamName = "KWENTURA_DOCUMENTS"
	// SubjectPrefix prefixes every change subject: kwentura.documents.<collection>.<change>
	SubjectPrefix = "kwentura.documents"
)

// NATSConfig holds NATS connection configuration
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NATSBus publishes change events to JetStream and runs one durable
// consumer per subscribed handler
type NATSBus struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	logger  *logrus.Logger
	subs    []subscription
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	published atomic.Int64
	acked     atomic.Int64
	nakked    atomic.Int64
}

// Subject returns the subject for a change event
func Subject(event *ChangeEvent) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, event.Collection, event.Type())
}

// NewNATSBus connects to NATS and ensures the document stream exists
func NewNATSBus(ctx context.Context, cfg NATSConfig, logger *logrus.Logger) (*NATSBus, error) {
	opts := []nats.Option{
		nats.Name("kwentura-service"),
		nats.Timeout(10 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("[NATS] Disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("[NATS] Reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("[NATS] Connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.WithError(err).Error("[NATS] Error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bus := &NATSBus{
		nc:     nc,
		js:     js,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	if err := bus.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	logger.WithField("url", cfg.URL).Info("Connected to NATS")
	return bus, nil
}

func (b *NATSBus) ensureStream(ctx context.Context) error {
	_, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Document change events for triggers",
		Subjects:    []string{SubjectPrefix + ".>"},
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      72 * time.Hour,
		Discard:     jetstream.DiscardOld,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", StreamName, err)
	}
	return nil
}

// IsConnected returns true if connected to NATS
func (b *NATSBus) IsConnected() bool {
	return b.nc != nil && b.nc.IsConnected()
}

func (b *NATSBus) Publish(ctx context.Context, event *ChangeEvent) error {
	if event.ActorUID == "" {
		event.ActorUID = ActorFromContext(ctx)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	subject := Subject(event)
	ack, err := b.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID))
	if err != nil {
		b.logger.WithError(err).WithField("subject", subject).Error("Failed to publish change event")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.published.Add(1)
	b.logger.WithFields(logrus.Fields{
		"subject":  subject,
		"sequence": ack.Sequence,
	}).Debug("Published change event")
	return nil
}

func (b *NATSBus) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, handler: handler})
}

// Start creates a durable consumer per handler and begins consuming
func (b *NATSBus) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = true
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()

	stream, err := b.js.Stream(ctx, StreamName)
	if err != nil {
		return fmt.Errorf("stream %s not found: %w", StreamName, err)
	}

	for _, sub := range subs {
		consumerName := "kwentura-" + sub.name
		consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
			Name:          consumerName,
			Durable:       consumerName,
			AckPolicy:     jetstream.AckExplicitPolicy,
			DeliverPolicy: jetstream.DeliverNewPolicy,
			MaxDeliver:    5,
			FilterSubject: SubjectPrefix + ".>",
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer %s: %w", consumerName, err)
		}

		b.wg.Add(1)
		go b.consume(ctx, consumer, sub)

		b.logger.WithField("consumer", consumerName).Info("Subscribed to change stream")
	}
	return nil
}

func (b *NATSBus) consume(ctx context.Context, consumer jetstream.Consumer, sub subscription) {
	defer b.wg.Done()
	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, nats.ErrTimeout) {
				b.logger.WithError(err).WithField("subscriber", sub.name).Warn("Error fetching messages")
				select {
				case <-b.stopCh:
					return
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
			continue
		}

		for msg := range msgs.Messages() {
			var event ChangeEvent
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				b.logger.WithError(err).Warn("Dropping malformed change event")
				_ = msg.Term()
				continue
			}
			handlerCtx := WithActor(ctx, event.ActorUID)
			if err := sub.handler(handlerCtx, &event); err != nil {
				b.logger.WithError(err).WithFields(logrus.Fields{
					"subscriber": sub.name,
					"path":       event.Path,
				}).Error("Change handler failed")
				b.nakked.Add(1)
				_ = msg.Nak()
				continue
			}
			b.acked.Add(1)
			_ = msg.Ack()
		}
	}
}

// GetStats returns delivery counters and connection state
func (b *NATSBus) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]interface{}{
		"transport":   "nats",
		"connected":   b.IsConnected(),
		"subscribers": len(b.subs),
		"published":   b.published.Load(),
		"acked":       b.acked.Load(),
		"nakked":      b.nakked.Load(),
	}
}

func (b *NATSBus) Close() error {
	b.mu.Lock()
	if b.running {
		close(b.stopCh)
		b.running = false
	}
	b.mu.Unlock()
	b.wg.Wait()
	if b.nc != nil {
		return b.nc.Drain()
	}
	return nil
}

var _ Bus = (*NATSBus)(nil)
