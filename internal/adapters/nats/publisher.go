package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/adapters/config"
	"gitlab.com/lumiere-salon/api/salon-cms-service/internal/domain"
)

// PublisherAdapter publishes content and contact events to NATS JetStream.
// It implements domain.EventPublisher.
type PublisherAdapter struct {
	nc            *nats.Conn
	js            nats.JetStreamContext
	logger        domain.Logger
	subjectPrefix string
}

// NewPublisherAdapter creates a new PublisherAdapter. An empty NATS URL
// disables event publishing entirely: the constructor returns a nil adapter
// and the callers treat a nil publisher as a no-op.
func NewPublisherAdapter(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*PublisherAdapter, func(), error) {
	appFullCfg := cfgProvider.Get()
	natsCfg := appFullCfg.NATS
	appName := appFullCfg.App.ServiceName

	if natsCfg.URL == "" {
		appLogger.Warn(ctx, "NATS URL not configured; event publishing disabled")
		return nil, func() {}, nil
	}

	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-publisher-%s", appName, appFullCfg.Server.PodID)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			appLogger.Error(ctx, "NATS error", "error", err.Error())
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			appLogger.Warn(ctx, "NATS disconnected", "error", err)
		}),
	)
	if err != nil {
		appLogger.Error(ctx, "Failed to connect to NATS", "url", natsCfg.URL, "error", err.Error())
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}

	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		appLogger.Error(ctx, "Failed to get JetStream context", "error", err.Error())
		nc.Close()
		return nil, nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	adapter := &PublisherAdapter{
		nc:            nc,
		js:            js,
		logger:        appLogger,
		subjectPrefix: natsCfg.SubjectPrefix,
	}

	cleanup := func() {
		appLogger.Info(context.Background(), "Closing NATS connection...")
		adapter.Close()
	}

	return adapter, cleanup, nil
}

// Close drains and closes the NATS connection. Drain closes the connection
// once outstanding publishes are flushed.
func (a *PublisherAdapter) Close() {
	if a.nc != nil && !a.nc.IsClosed() {
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining NATS connection", "error", err.Error())
		}
	}
}

// IsConnected reports whether the underlying NATS connection is up.
func (a *PublisherAdapter) IsConnected() bool {
	return a != nil && a.nc != nil && a.nc.Status() == nats.CONNECTED
}

func (a *PublisherAdapter) publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event for subject %s: %w", subject, err)
	}
	if _, err := a.js.PublishAsync(subject, data); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}
	a.logger.Debug(ctx, "Published event", "subject", subject)
	return nil
}

// PublishContentEvent emits a record mutation to
// <prefix>.content.<collection>.<action>.
func (a *PublisherAdapter) PublishContentEvent(ctx context.Context, event domain.ContentEvent) error {
	subject := fmt.Sprintf("%s.content.%s.%s", a.subjectPrefix, event.Collection, event.Action)
	return a.publish(ctx, subject, event)
}

// PublishContactReceived emits a contact-form submission to
// <prefix>.contact.received.
func (a *PublisherAdapter) PublishContactReceived(ctx context.Context, message domain.ContactMessage) error {
	subject := fmt.Sprintf("%s.contact.received", a.subjectPrefix)
	return a.publish(ctx, subject, message)
}
