package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/Mica14-AgCode/VISU/internal/core/domain"
)

// Header keys set on every published message so consumers can route
// without decoding the body.
const (
	HeaderSource = "Visu-Source"
	HeaderOrigin = "Visu-Origin"
)

// Publisher implements ports.EventPublisher and the HTTP job queue on JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects and ensures the streams exist. name identifies the
// process in NATS monitoring.
func NewPublisher(url, name string, logger *slog.Logger) (*Publisher, error) {
	conn, js, err := connect(url, name, logger)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, js: js}, nil
}

// publish sends v as JSON. A non-empty msgID enables JetStream deduplication.
func (p *Publisher) publish(ctx context.Context, subject, msgID string, header nats.Header, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data, Header: header}
	opts := []nats.PubOpt{nats.Context(ctx)}
	if msgID != "" {
		opts = append(opts, nats.MsgId(msgID))
	}
	if _, err := p.js.PublishMsg(msg, opts...); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// PublishExtraction publishes a result on fields.extracted.<source>, keyed by
// its batch id.
func (p *Publisher) PublishExtraction(ctx context.Context, result *domain.ExtractionResult) error {
	s := result.Summary
	h := nats.Header{}
	h.Set(HeaderSource, string(s.Source))
	h.Set(HeaderOrigin, s.Origin)
	return p.publish(ctx, ExtractedSubject(s.Source), s.BatchID, h, result)
}

// RequestTaxID enqueues an extraction job for the worker, keyed by request id.
func (p *Publisher) RequestTaxID(ctx context.Context, req *domain.TaxIDRequest) error {
	h := nats.Header{}
	h.Set(HeaderOrigin, req.TaxID)
	return p.publish(ctx, SubjectTaxIDRequests, req.RequestID, h, req)
}

// Conn exposes the connection, shared with the WebSocket relay and readiness.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close flushes pending publishes and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
