package natsadapter

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// streams are declared on every connect so either binary can start first.
var streams = []nats.StreamConfig{
	{
		Name:       streamExtracted,
		Subjects:   []string{SubjectExtracted + ".>"},
		Retention:  nats.InterestPolicy,
		MaxAge:     24 * time.Hour,
		Storage:    nats.FileStorage,
		Duplicates: 10 * time.Minute,
	},
	{
		Name:       streamRequests,
		Subjects:   []string{SubjectTaxIDRequests},
		Retention:  nats.WorkQueuePolicy,
		MaxAge:     24 * time.Hour,
		Storage:    nats.FileStorage,
		Duplicates: 10 * time.Minute,
	},
}

// connect dials NATS with unbounded reconnects, logging connection state
// changes, and ensures the VISU streams exist.
func connect(url, name string, logger *slog.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("nats", name)

	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect %s: %w", url, err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	for i := range streams {
		cfg := streams[i]
		if _, err := js.AddStream(&cfg); err == nil {
			continue
		}
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return conn, js, nil
}
