package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

const (
	// A paced registry walk can take minutes; the worker reports progress
	// well inside the ack window so the job is not redelivered meanwhile.
	requestAckWait   = 2 * time.Minute
	progressInterval = 30 * time.Second
	maxDeliveries    = 3
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	subs   []*nats.Subscription
	logger *slog.Logger
}

// NewSubscriber connects and makes sure the request stream exists.
func NewSubscriber(url, name string, logger *slog.Logger) (*Subscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, js, err := connect(url, name, logger)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js, logger: logger}, nil
}

// SubscribeTaxIDRequests delivers extraction jobs to handler one at a time.
// Undecodable jobs and jobs rejected with a ValidationError are terminated;
// any other handler error is redelivered, up to three deliveries in total.
func (s *Subscriber) SubscribeTaxIDRequests(ctx context.Context, handler func(ctx context.Context, req *domain.TaxIDRequest) error) error {
	sub, err := s.js.Subscribe(SubjectTaxIDRequests, func(msg *nats.Msg) {
		s.handleRequest(ctx, msg, handler)
	},
		nats.Durable(requestConsumer),
		nats.ManualAck(),
		nats.AckWait(requestAckWait),
		nats.MaxDeliver(maxDeliveries),
		nats.MaxAckPending(1),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) handleRequest(ctx context.Context, msg *nats.Msg, handler func(context.Context, *domain.TaxIDRequest) error) {
	var req domain.TaxIDRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("dropping undecodable request", "error", err)
		_ = msg.Term()
		return
	}
	log := s.logger.With("request_id", req.RequestID, "tax_id", req.TaxID)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		t := time.NewTicker(progressInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				_ = msg.InProgress()
			case <-stop:
				return
			}
		}
	}()

	err := handler(ctx, &req)
	var verr *domain.ValidationError
	switch {
	case err == nil:
		_ = msg.Ack()
	case errors.As(err, &verr):
		log.Warn("dropping invalid request", "error", err)
		_ = msg.Term()
	default:
		log.Error("extraction job failed", "error", err)
		_ = msg.Nak()
	}
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
