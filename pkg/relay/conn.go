package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cuemby/nostrd/pkg/log"
	"github.com/cuemby/nostrd/pkg/metrics"
	"github.com/cuemby/nostrd/pkg/nostr"
)

// conn wraps one client WebSocket connection. Writes are serialized
// through send, since gorilla/websocket forbids concurrent writers on
// the same connection.
type conn struct {
	id     string
	server *Server
	ws     *websocket.Conn
	send   chan []byte

	mu   sync.Mutex
	subs map[string]struct{}
}

func newConn(s *Server, ws *websocket.Conn) *conn {
	return &conn{
		id:     uuid.New().String(),
		server: s,
		ws:     ws,
		send:   make(chan []byte, 32),
		subs:   make(map[string]struct{}),
	}
}

// serve runs the connection's read and write loops until the socket
// closes. It blocks; callers run it in its own goroutine per connection.
func (c *conn) serve() {
	clog := log.WithConnID(c.id)
	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	c.ws.SetReadLimit(c.server.cfg.MaxMessageBytes)

	done := make(chan struct{})
	go c.writeLoop(done)
	defer close(done)

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			clog.Debug().Err(err).Msg("connection closed")
			break
		}
		c.handleMessage(raw)
	}

	c.mu.Lock()
	n := len(c.subs)
	c.subs = make(map[string]struct{})
	c.mu.Unlock()
	metrics.SubscriptionsActive.Sub(float64(n))
}

func (c *conn) writeLoop(done <-chan struct{}) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (c *conn) write(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		// Slow reader: drop rather than block the connection's read loop.
	}
}

func (c *conn) notice(format string, args ...interface{}) {
	c.write([]interface{}{"NOTICE", fmt.Sprintf(format, args...)})
}

func (c *conn) ok(id nostr.ID, accepted bool, message string) {
	c.write([]interface{}{"OK", id.String(), accepted, message})
}

// handleMessage decodes one NIP-01 client message and dispatches it.
// Malformed frames produce a NOTICE rather than closing the connection,
// matching common relay behavior for a single bad message.
func (c *conn) handleMessage(raw []byte) {
	var frame []json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil || len(frame) == 0 {
		c.notice("invalid message: could not parse frame")
		return
	}

	var kind string
	if err := json.Unmarshal(frame[0], &kind); err != nil {
		c.notice("invalid message: missing type")
		return
	}

	switch kind {
	case "EVENT":
		metrics.WSMessagesTotal.WithLabelValues("EVENT").Inc()
		c.handleEvent(frame)
	case "REQ":
		metrics.WSMessagesTotal.WithLabelValues("REQ").Inc()
		c.handleReq(frame)
	case "CLOSE":
		metrics.WSMessagesTotal.WithLabelValues("CLOSE").Inc()
		c.handleClose(frame)
	default:
		c.notice("unknown message type: %s", kind)
	}
}

func (c *conn) handleEvent(frame []json.RawMessage) {
	if len(frame) != 2 {
		c.notice("EVENT: expected exactly one event")
		return
	}
	var e nostr.Event
	if err := json.Unmarshal(frame[1], &e); err != nil {
		c.notice("EVENT: %v", err)
		return
	}

	if e.Kind == nostr.KindDeletion {
		c.handleDeletion(&e)
		return
	}

	timer := metrics.NewTimer()
	_, err := c.server.store.Append(&e)
	timer.ObserveDuration(metrics.AppendDuration)
	if err != nil {
		metrics.EventsRejected.WithLabelValues("store_error").Inc()
		log.WithEventID(e.ID.String()).Warn().Err(err).Msg("event rejected")
		c.ok(e.ID, false, "error: "+err.Error())
		return
	}

	metrics.EventsAppended.Inc()
	c.ok(e.ID, true, "")
}

// handleDeletion marks every id a NIP-09 kind-5 event references as
// deleted, in place of appending the deletion event itself to the log.
func (c *conn) handleDeletion(e *nostr.Event) {
	var failed error
	for _, id := range e.DeletionTargets() {
		if err := c.server.store.MarkDeleted(id); err != nil {
			failed = err
			continue
		}
		metrics.EventsDeleted.Inc()
	}
	if failed != nil {
		c.ok(e.ID, false, "error: "+failed.Error())
		return
	}
	c.ok(e.ID, true, "")
}

func (c *conn) handleReq(frame []json.RawMessage) {
	if len(frame) < 2 {
		c.notice("REQ: missing subscription id")
		return
	}
	var subID string
	if err := json.Unmarshal(frame[1], &subID); err != nil {
		c.notice("REQ: invalid subscription id")
		return
	}

	c.mu.Lock()
	newSub := false
	if _, exists := c.subs[subID]; !exists {
		if len(c.subs) >= c.server.cfg.MaxSubscriptions {
			c.mu.Unlock()
			c.notice("REQ: too many open subscriptions")
			return
		}
		c.subs[subID] = struct{}{}
		newSub = true
	}
	c.mu.Unlock()
	if newSub {
		metrics.SubscriptionsActive.Inc()
	}

	filters, err := decodeFilters(frame[2:])
	if err != nil {
		log.WithSubID(subID).Debug().Err(err).Msg("REQ: could not decode filters")
		c.notice("REQ: %v", err)
		return
	}

	seen := make(map[nostr.ID]struct{})
	for _, f := range filters {
		events, err := c.server.runFilter(f)
		if err != nil {
			log.WithSubID(subID).Warn().Err(err).Msg("REQ: filter scan failed")
			c.notice("REQ: %v", err)
			continue
		}
		for _, e := range events {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			c.write([]interface{}{"EVENT", subID, e})
		}
	}
	c.write([]interface{}{"EOSE", subID})
}

func (c *conn) handleClose(frame []json.RawMessage) {
	if len(frame) != 2 {
		c.notice("CLOSE: expected exactly one subscription id")
		return
	}
	var subID string
	if err := json.Unmarshal(frame[1], &subID); err != nil {
		c.notice("CLOSE: invalid subscription id")
		return
	}

	c.mu.Lock()
	_, existed := c.subs[subID]
	delete(c.subs, subID)
	c.mu.Unlock()
	if existed {
		metrics.SubscriptionsActive.Dec()
	}
}
