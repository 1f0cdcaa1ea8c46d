package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"converse/internal/metrics"
	"converse/internal/models"
)

type fakeStore struct {
	mu     sync.Mutex
	nextID uint
	saved  []*models.Message
	err    error
}

func (f *fakeStore) Save(_ context.Context, msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	msg.ID = f.nextID
	msg.CreatedAt = time.Now()
	f.saved = append(f.saved, msg)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

// fakeVerifier accepts tokens of the form "user:<id>".
type fakeVerifier struct{}

func (fakeVerifier) VerifyAccessToken(token string) (string, error) {
	if id := strings.TrimPrefix(token, "user:"); id != token && id != "" {
		return id, nil
	}
	return "", errors.New("bad token")
}

func newTestHub(store MessageStore) *Hub {
	return NewHub(NewRegistry(), store, fakeVerifier{}, metrics.New(prometheus.NewRegistry()), zap.NewNop())
}

// addClient registers a client without a network connection; frames land in
// its send channel.
func addClient(h *Hub, userID string) *Client {
	c := newClient(h, nil, userID)
	h.registry.Register(userID, c)
	return c
}

func recvEvent(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Envelope{}
	}
}

func requireNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected event: %s", frame)
		}
	default:
	}
}

func inbound(t *testing.T, event string, payload interface{}) []byte {
	t.Helper()
	frame, err := encodeEvent(event, payload)
	require.NoError(t, err)
	return frame
}

func TestDeliverToOfflineUserIsNoop(t *testing.T) {
	h := newTestHub(&fakeStore{})
	// Nothing to assert beyond "does not panic and queues nothing anywhere".
	h.Deliver("ghost", EventUserTyping, UserRef{UserID: "alice"})
}

func TestTypingRelay(t *testing.T) {
	h := newTestHub(&fakeStore{})
	alice := addClient(h, "alice")
	bob := addClient(h, "bob")

	h.handleEvent(alice, inbound(t, EventTypingStart, TypingPayload{ReceiverID: "bob"}))
	env := recvEvent(t, bob)
	assert.Equal(t, EventUserTyping, env.Event)

	var ref UserRef
	require.NoError(t, json.Unmarshal(env.Data, &ref))
	assert.Equal(t, "alice", ref.UserID)

	h.handleEvent(alice, inbound(t, EventTypingStop, TypingPayload{ReceiverID: "bob"}))
	env = recvEvent(t, bob)
	assert.Equal(t, EventUserStoppedTyping, env.Event)

	requireNoEvent(t, alice)
}

// A route racing a disconnect must degrade to a drop, never a panic: the
// send channel may already be closed by the time the frame arrives.
func TestDeliverAfterSendChannelClosed(t *testing.T) {
	h := newTestHub(&fakeStore{})
	alice := addClient(h, "alice")

	alice.closeSend()
	assert.NotPanics(t, func() {
		h.Deliver("alice", EventUserTyping, UserRef{UserID: "bob"})
	})
	assert.False(t, alice.enqueue([]byte("late frame")))
}

func TestDeliverRacingDisconnect(t *testing.T) {
	h := newTestHub(&fakeStore{})

	for i := 0; i < 200; i++ {
		c := addClient(h, "alice")
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Deliver("alice", EventUserTyping, UserRef{UserID: "bob"})
		}()
		go func() {
			defer wg.Done()
			h.dropClient(c)
		}()
		wg.Wait()
	}
}

func TestTypingFromAnonymousConnectionIgnored(t *testing.T) {
	h := newTestHub(&fakeStore{})
	anon := newClient(h, nil, "")
	bob := addClient(h, "bob")

	h.handleEvent(anon, inbound(t, EventTypingStart, TypingPayload{ReceiverID: "bob"}))
	requireNoEvent(t, bob)
}

func TestSendMessagePersistsBeforeDelivery(t *testing.T) {
	store := &fakeStore{}
	h := newTestHub(store)
	alice := addClient(h, "alice")
	bob := addClient(h, "bob")

	h.handleEvent(alice, inbound(t, EventSendMessage, SendMessagePayload{
		SenderID:   "alice",
		ReceiverID: "bob",
		Content:    "hi",
	}))

	env := recvEvent(t, bob)
	require.Equal(t, EventReceiveMessage, env.Event)
	var received models.Message
	require.NoError(t, json.Unmarshal(env.Data, &received))
	assert.NotZero(t, received.ID, "delivered row must carry the server-assigned id")
	assert.False(t, received.CreatedAt.IsZero())
	assert.Equal(t, "alice", received.SenderID)
	assert.Equal(t, "hi", received.Content)

	env = recvEvent(t, alice)
	require.Equal(t, EventMessageSent, env.Event)
	var echoed models.Message
	require.NoError(t, json.Unmarshal(env.Data, &echoed))
	assert.Equal(t, received.ID, echoed.ID)

	assert.Equal(t, 1, store.count())
}

func TestSendMessageToOfflineReceiver(t *testing.T) {
	store := &fakeStore{}
	h := newTestHub(store)
	alice := addClient(h, "alice")

	h.handleEvent(alice, inbound(t, EventSendMessage, SendMessagePayload{
		ReceiverID: "bob",
		Content:    "hi",
	}))

	// The row is durable even though bob hears nothing.
	assert.Equal(t, 1, store.count())
	env := recvEvent(t, alice)
	assert.Equal(t, EventMessageSent, env.Event)
}

func TestSendMessagePersistenceFailureEmitsNothing(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	h := newTestHub(store)
	alice := addClient(h, "alice")
	bob := addClient(h, "bob")

	h.handleEvent(alice, inbound(t, EventSendMessage, SendMessagePayload{
		ReceiverID: "bob",
		Content:    "hi",
	}))

	requireNoEvent(t, alice)
	requireNoEvent(t, bob)
}

func TestSendMessageUsesConnectionIdentity(t *testing.T) {
	store := &fakeStore{}
	h := newTestHub(store)
	alice := addClient(h, "alice")
	addClient(h, "bob")

	// The payload claims another sender; the authenticated identity wins.
	h.handleEvent(alice, inbound(t, EventSendMessage, SendMessagePayload{
		SenderID:   "mallory",
		ReceiverID: "bob",
		Content:    "hi",
	}))

	require.Equal(t, 1, store.count())
	assert.Equal(t, "alice", store.saved[0].SenderID)
}

func TestSendMessageFromAnonymousConnectionIgnored(t *testing.T) {
	store := &fakeStore{}
	h := newTestHub(store)
	anon := newClient(h, nil, "")
	bob := addClient(h, "bob")

	// Unauthenticated sockets cannot write into anyone's history, whatever
	// sender the payload claims.
	h.handleEvent(anon, inbound(t, EventSendMessage, SendMessagePayload{
		SenderID:   "mallory",
		ReceiverID: "bob",
		Content:    "hi",
	}))

	assert.Equal(t, 0, store.count())
	requireNoEvent(t, bob)
}

func TestMalformedFramesIgnored(t *testing.T) {
	h := newTestHub(&fakeStore{})
	alice := addClient(h, "alice")

	h.handleEvent(alice, []byte("not json"))
	h.handleEvent(alice, inbound(t, "unknown_event", struct{}{}))
	h.handleEvent(alice, []byte(`{"event":"typing_start","data":"garbage"}`))

	requireNoEvent(t, alice)
}

func TestDisconnectBroadcastsOffline(t *testing.T) {
	h := newTestHub(&fakeStore{})
	alice := addClient(h, "alice")
	bob := addClient(h, "bob")

	h.dropClient(alice)

	env := recvEvent(t, bob)
	require.Equal(t, EventUserStatus, env.Event)
	var status UserStatusPayload
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "alice", status.UserID)
	assert.Equal(t, StatusOffline, status.Status)

	_, ok := h.registry.Lookup("alice")
	assert.False(t, ok)
}

func TestStaleDisconnectDoesNotBroadcast(t *testing.T) {
	h := newTestHub(&fakeStore{})
	old := newClient(h, nil, "alice")
	h.registry.Register("alice", old)
	current := addClient(h, "alice") // supersedes old
	bob := addClient(h, "bob")

	h.dropClient(old)

	requireNoEvent(t, bob)
	got, ok := h.registry.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, current, got)
}

// End-to-end presence over a real WebSocket: the first connection sees an
// empty snapshot, then learns about the second connection coming online.
func TestServeWSPresenceSnapshot(t *testing.T) {
	h := newTestHub(&fakeStore{})
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	alice := dialWS(t, srv, "user:alice")
	defer alice.Close()

	env := readWSEvent(t, alice)
	require.Equal(t, EventUserStatus, env.Event)
	env = readWSEvent(t, alice)
	require.Equal(t, EventOnlineUsers, env.Event)
	var online OnlineUsersPayload
	require.NoError(t, json.Unmarshal(env.Data, &online))
	assert.Empty(t, online.UserIDs, "first connection sees nobody online")

	bob := dialWS(t, srv, "user:bob")
	defer bob.Close()

	env = readWSEvent(t, alice)
	require.Equal(t, EventUserStatus, env.Event)
	var status UserStatusPayload
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "bob", status.UserID)
	assert.Equal(t, StatusOnline, status.Status)

	// Bob's snapshot excludes himself but includes alice.
	env = readWSEvent(t, bob)
	require.Equal(t, EventUserStatus, env.Event)
	env = readWSEvent(t, bob)
	require.Equal(t, EventOnlineUsers, env.Event)
	require.NoError(t, json.Unmarshal(env.Data, &online))
	assert.Equal(t, []string{"alice"}, online.UserIDs)
}

// A second device for the same user replaces the first in the registry; the
// active-connections gauge must not count the superseded socket forever.
func TestConnectionGaugeOnSecondDeviceTakeover(t *testing.T) {
	h := newTestHub(&fakeStore{})
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	first := dialWS(t, srv, "user:alice")
	defer first.Close()
	readWSEvent(t, first) // user_status
	readWSEvent(t, first) // online_users
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.ConnectionsActive))

	second := dialWS(t, srv, "user:alice")
	defer second.Close()
	readWSEvent(t, second)
	readWSEvent(t, second)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.ConnectionsActive))
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("?token=%s", token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readWSEvent(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}
