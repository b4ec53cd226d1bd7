package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/Mica14-AgCode/VISU/internal/adapters/nats"
	"github.com/Mica14-AgCode/VISU/internal/core/domain"
	"github.com/Mica14-AgCode/VISU/internal/pkg/metrics"
)

const (
	wsPingInterval = 30 * time.Second
	wsBuffer       = 64
)

// feedFilter is the only frame a client sends. Source narrows to "registry"
// or "archive"; Origin keeps results for one CUIT or archive name.
// Sending a new filter replaces the previous one.
type feedFilter struct {
	Source string `json:"source"`
	Origin string `json:"origin"`
}

type clientFrame struct {
	filter feedFilter
	err    error
}

// wsSubject maps a source filter to a NATS subject.
func wsSubject(source string) (string, bool) {
	switch source {
	case "", "all":
		return natsadapter.SubjectExtracted + ".>", true
	case string(domain.ProvenanceRegistry), string(domain.ProvenanceArchive):
		return natsadapter.ExtractedSubject(domain.ProvenanceKind(source)), true
	}
	return "", false
}

// canonicalOrigin lets clients send a CUIT in any accepted spelling.
func canonicalOrigin(origin string) string {
	if id, err := domain.NormalizeTaxID(origin); err == nil {
		return id
	}
	return origin
}

// sameOrigin reports whether a published ExtractionResult came from origin.
func sameOrigin(data []byte, origin string) bool {
	var ev struct {
		Summary struct {
			Origin string `json:"origin"`
		} `json:"summary"`
	}
	return json.Unmarshal(data, &ev) == nil && ev.Summary.Origin == origin
}

// deliverable reports whether msg belongs to the client's current filter.
// Messages still buffered from a replaced subscription are dropped.
func deliverable(msg *nats.Msg, current *nats.Subscription, origin string) bool {
	if msg.Sub != current {
		return false
	}
	return origin == "" || sameOrigin(msg.Data, origin)
}

// readFrames decodes client filters until the connection closes.
func readFrames(c *websocket.Conn, out chan<- clientFrame, done <-chan struct{}) {
	defer close(out)
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}
		var fr clientFrame
		if err := json.Unmarshal(raw, &fr.filter); err != nil {
			fr.err = fmt.Errorf("invalid filter: %w", err)
		}
		select {
		case out <- fr:
		case <-done:
			return
		}
	}
}

// WebSocketHandler streams extraction results published on NATS. A client
// starts on every source and may send {"source":"registry","origin":"20-12345678-6"}.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.Default().With("remote", c.RemoteAddr().String())

		if nc == nil {
			_ = c.WriteJSON(fiber.Map{"error": "live feed unavailable"})
			return
		}

		events := make(chan *nats.Msg, wsBuffer)
		frames := make(chan clientFrame)
		done := make(chan struct{})
		defer close(done)
		go readFrames(c, frames, done)

		var (
			sub    *nats.Subscription
			origin string
		)
		defer func() {
			if sub != nil {
				_ = sub.Unsubscribe()
			}
		}()

		apply := func(f feedFilter) error {
			subject, ok := wsSubject(f.Source)
			if !ok {
				return fmt.Errorf("unknown source %q", f.Source)
			}
			next, err := nc.ChanSubscribe(subject, events)
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", subject, err)
			}
			if sub != nil {
				_ = sub.Unsubscribe()
			}
			sub = next
			origin = canonicalOrigin(f.Origin)
			return c.WriteJSON(fiber.Map{"status": "subscribed", "subject": subject, "origin": origin})
		}

		if err := apply(feedFilter{}); err != nil {
			log.Error("ws subscribe", "error", err)
			return
		}
		log.Info("ws client connected")

		ping := time.NewTicker(wsPingInterval)
		defer ping.Stop()

		for {
			select {
			case fr, ok := <-frames:
				if !ok {
					log.Info("ws client disconnected")
					return
				}
				err := fr.err
				if err == nil {
					err = apply(fr.filter)
				}
				if err != nil && c.WriteJSON(fiber.Map{"error": err.Error()}) != nil {
					return
				}

			case msg := <-events:
				if !deliverable(msg, sub, origin) {
					continue
				}
				if err := c.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
					return
				}

			case <-ping.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
