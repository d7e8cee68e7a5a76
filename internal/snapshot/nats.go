package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSConfig holds connection settings for the NATS notifier.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "bcll.snapshot",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSNotifier carries change notifications between processes, so a display
// server on another machine can follow an admin server sharing the same store.
type NATSNotifier struct {
	nc     *nats.Conn
	prefix string
}

func ConnectNATS(cfg NATSConfig, logger *zap.Logger) (*NATSNotifier, error) {
	opts := []nats.Option{
		nats.Name("bcll-draft"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewNATSNotifier(nc, cfg.SubjectPrefix), nil
}

func NewNATSNotifier(nc *nats.Conn, prefix string) *NATSNotifier {
	if prefix == "" {
		prefix = DefaultNATSConfig().SubjectPrefix
	}
	return &NATSNotifier{nc: nc, prefix: prefix}
}

func (n *NATSNotifier) subject(key string) string {
	return n.prefix + "." + key
}

func (n *NATSNotifier) Notify(_ context.Context, key string) error {
	if err := n.nc.Publish(n.subject(key), nil); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject(key), err)
	}
	return nil
}

// Subscribe relies on NATS delivering a subscription's messages in order on a
// single goroutine.
func (n *NATSNotifier) Subscribe(ctx context.Context, key string, fn func()) (func(), error) {
	sub, err := n.nc.Subscribe(n.subject(key), func(*nats.Msg) { fn() })
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", n.subject(key), err)
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = sub.Unsubscribe()
	}()

	return closeOnce(stop), nil
}

func (n *NATSNotifier) Close() error {
	return n.nc.Drain()
}
