package realtime

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"converse/internal/metrics"
	"converse/internal/models"
)

// MessageStore is the persistence boundary the hub writes through. Messages
// are the only durable artifact; every event around them is best-effort.
type MessageStore interface {
	Save(ctx context.Context, msg *models.Message) error
}

// TokenVerifier resolves a bearer token to a user ID. The hub treats the
// resulting identity as opaque.
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// Hub owns the presence registry and routes events between live connections.
// It is safe for use from any goroutine.
type Hub struct {
	registry *Registry
	store    MessageStore
	verifier TokenVerifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHub(registry *Registry, store MessageStore, verifier TokenVerifier, m *metrics.Metrics, logger *zap.Logger) *Hub {
	return &Hub{
		registry: registry,
		store:    store,
		verifier: verifier,
		metrics:  m,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from a different origin in
			// development; auth happens via the token, not the origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Registry exposes the presence registry for read-side collaborators.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ServeWS upgrades the connection and runs its lifecycle. Identity comes from
// the token query parameter; a missing or invalid token yields an anonymous
// connection that participates in nothing.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	userID := ""
	if token := r.URL.Query().Get("token"); token != "" {
		id, err := h.verifier.VerifyAccessToken(token)
		if err != nil {
			h.logger.Warn("websocket token rejected", zap.Error(err))
		} else {
			userID = id
		}
	}

	client := newClient(h, conn, userID)
	go client.writePump()

	if userID != "" {
		// Snapshot before registering so the new connection's view of who is
		// online never includes itself.
		online := h.registry.Snapshot()
		// The gauge tracks registered users, so a second-device takeover
		// replaces rather than adds.
		if prior := h.registry.Register(userID, client); prior == nil {
			h.metrics.ConnectionsActive.Inc()
		}

		h.broadcast(EventUserStatus, UserStatusPayload{UserID: userID, Status: StatusOnline})
		h.sendTo(client, EventOnlineUsers, OnlineUsersPayload{UserIDs: online})
		h.logger.Info("user connected", zap.String("user_id", userID))
	}

	client.readPump()
}

// Deliver routes a named event to the target user's live connection. When the
// target is offline the event is dropped; callers must not assume delivery.
func (h *Hub) Deliver(targetID, event string, payload interface{}) {
	client, ok := h.registry.Lookup(targetID)
	if !ok {
		h.metrics.EventsDropped.Inc()
		return
	}
	h.sendTo(client, event, payload)
}

func (h *Hub) sendTo(client *Client, event string, payload interface{}) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("event", event), zap.Error(err))
		return
	}
	if !client.enqueue(frame) {
		h.metrics.EventsDropped.Inc()
		h.logger.Warn("send buffer full, event dropped",
			zap.String("event", event), zap.String("user_id", client.userID))
		return
	}
	h.metrics.EventsDelivered.WithLabelValues(event).Inc()
}

func (h *Hub) broadcast(event string, payload interface{}) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("event", event), zap.Error(err))
		return
	}
	for _, client := range h.registry.all() {
		if client.enqueue(frame) {
			h.metrics.EventsDelivered.WithLabelValues(event).Inc()
		} else {
			h.metrics.EventsDropped.Inc()
		}
	}
}

func (h *Hub) dropClient(c *Client) {
	// Unregister before tearing down the send channel, so no router can look
	// this client up and write into a closed channel.
	owned := c.userID != "" && h.registry.Unregister(c.userID, c)
	c.closeSend()
	if !owned {
		// Anonymous connection, or a stale disconnect from a superseded
		// connection; neither changes presence.
		return
	}
	h.metrics.ConnectionsActive.Dec()
	h.broadcast(EventUserStatus, UserStatusPayload{UserID: c.userID, Status: StatusOffline})
	h.logger.Info("user disconnected", zap.String("user_id", c.userID))
}

func (h *Hub) handleEvent(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.logger.Warn("malformed frame", zap.String("user_id", c.userID), zap.Error(err))
		return
	}

	switch env.Event {
	case EventTypingStart:
		h.handleTyping(c, env.Data, EventUserTyping)
	case EventTypingStop:
		h.handleTyping(c, env.Data, EventUserStoppedTyping)
	case EventSendMessage:
		h.handleSendMessage(c, env.Data)
	default:
		h.logger.Warn("unknown event", zap.String("event", env.Event), zap.String("user_id", c.userID))
	}
}

func (h *Hub) handleTyping(c *Client, data json.RawMessage, outEvent string) {
	if c.userID == "" {
		return
	}
	var p TypingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ReceiverID == "" {
		h.logger.Warn("malformed typing payload", zap.String("user_id", c.userID))
		return
	}
	h.Deliver(p.ReceiverID, outEvent, UserRef{UserID: c.userID})
}

func (h *Hub) handleSendMessage(c *Client, data json.RawMessage) {
	if c.userID == "" {
		return
	}
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.logger.Warn("malformed send_message payload", zap.String("user_id", c.userID))
		return
	}
	if p.ReceiverID == "" || p.Content == "" {
		h.logger.Warn("send_message missing fields", zap.String("user_id", c.userID))
		return
	}

	// The payload's senderId is ignored; the connection's authenticated
	// identity is the sender.
	msg := &models.Message{
		Content:    p.Content,
		SenderID:   c.userID,
		ReceiverID: p.ReceiverID,
	}
	if err := h.store.Save(context.Background(), msg); err != nil {
		// Nothing was persisted, so nothing is routed or acknowledged.
		h.logger.Error("failed to persist message",
			zap.String("sender_id", c.userID), zap.String("receiver_id", p.ReceiverID), zap.Error(err))
		return
	}
	h.metrics.MessagesPersisted.Inc()

	h.Deliver(p.ReceiverID, EventReceiveMessage, msg)
	// The ack goes to this connection, not to whichever connection currently
	// owns the sender's registry slot.
	h.sendTo(c, EventMessageSent, msg)
}
