package realtime

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DonShan/GeoTask/pkg/codec"
	"github.com/DonShan/GeoTask/pkg/logger"
)

var upgrader = websocket.Upgrader{}

// fakeServer is a websocket endpoint that acks connect envelopes and records
// everything else it receives.
type fakeServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	authz    []string
	received []Envelope
	conns    []*websocket.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.authz = append(f.authz, r.Header.Get("Authorization"))
		f.mu.Unlock()

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns = append(f.conns, ws)
		f.mu.Unlock()

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			text := string(data)
			if text == "ping" {
				_ = ws.WriteMessage(websocket.TextMessage, []byte("pong"))
				continue
			}

			var env Envelope
			if codec.Decode(data, &env) != nil {
				continue
			}
			f.mu.Lock()
			f.received = append(f.received, env)
			f.mu.Unlock()

			if env.Type == TypeConnect {
				ack := NewEnvelope(TypeAck)
				out, _ := codec.Encode(ack)
				_ = ws.WriteMessage(websocket.TextMessage, out)
			}
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) wsURL() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fakeServer) push(t *testing.T, env Envelope) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.conns, "no client connected")
	out, err := codec.Encode(env)
	require.NoError(t, err)
	require.NoError(t, f.conns[len(f.conns)-1].WriteMessage(websocket.TextMessage, out))
}

func (f *fakeServer) messagesOfType(mt MessageType) []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Envelope
	for _, env := range f.received {
		if env.Type == mt {
			out = append(out, env)
		}
	}
	return out
}

func testConfig(url string) Config {
	cfg := DefaultConfig(url)
	cfg.HeartbeatInterval = 50 * time.Millisecond
	cfg.TypingTTL = 100 * time.Millisecond
	cfg.ReconnectBaseDelay = 20 * time.Millisecond
	cfg.ReconnectMaxDelay = 100 * time.Millisecond
	cfg.MaxReconnectAttempts = 2
	return cfg
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c := NewClient(cfg, logger.NewWithWriter("test", "error", io.Discard))
	t.Cleanup(c.Disconnect)
	return c
}

func waitForState(t *testing.T, c *Client, want ConnState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Status().State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client never reached %v, stuck at %v", want, c.Status().State)
}

func TestConnect_ReachesConnectedAfterAck(t *testing.T) {
	server := newFakeServer(t)
	c := newTestClient(t, testConfig(server.wsURL()))

	var statuses []ConnState
	var statusMu sync.Mutex
	c.OnStatus(func(s Status) {
		statusMu.Lock()
		statuses = append(statuses, s.State)
		statusMu.Unlock()
	})

	require.NoError(t, c.Connect(context.Background(), "tok-1"))
	waitForState(t, c, StateConnected)

	statusMu.Lock()
	assert.Equal(t, []ConnState{StateConnecting, StateConnected}, statuses)
	statusMu.Unlock()

	server.mu.Lock()
	assert.Equal(t, []string{"Bearer tok-1"}, server.authz)
	server.mu.Unlock()

	connects := server.messagesOfType(TypeConnect)
	require.Len(t, connects, 1)
	assert.NotEmpty(t, connects[0].ID)
}

func TestConnect_NoOpWhenAlreadyConnected(t *testing.T) {
	server := newFakeServer(t)
	c := newTestClient(t, testConfig(server.wsURL()))

	require.NoError(t, c.Connect(context.Background(), "tok-1"))
	waitForState(t, c, StateConnected)

	require.NoError(t, c.Connect(context.Background(), "tok-1"))

	server.mu.Lock()
	dials := len(server.authz)
	server.mu.Unlock()
	assert.Equal(t, 1, dials)
}

func TestConnect_DialFailureSchedulesReconnect(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1/realtime")
	c := newTestClient(t, cfg)

	err := c.Connect(context.Background(), "tok-1")
	require.Error(t, err)
	var rtErr *Error
	require.ErrorAs(t, err, &rtErr)
	assert.Equal(t, KindConnectionFailed, rtErr.Kind)

	// The first failure arms a reconnect; exhaustion eventually parks the
	// client in Failed with no timer.
	waitForState(t, c, StateFailed)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		done := c.attempts >= cfg.MaxReconnectAttempts && c.reconnect == nil &&
			c.status.State == StateFailed
		c.mu.Unlock()
		if done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("reconnect attempts never exhausted")
}

func TestReconnect_AfterConnectionLost(t *testing.T) {
	server := newFakeServer(t)
	c := newTestClient(t, testConfig(server.wsURL()))

	require.NoError(t, c.Connect(context.Background(), "tok-1"))
	waitForState(t, c, StateConnected)

	// Server drops the connection out from under the client.
	server.mu.Lock()
	_ = server.conns[0].Close()
	server.mu.Unlock()

	require.Eventually(t, func() bool {
		server.mu.Lock()
		defer server.mu.Unlock()
		return len(server.authz) >= 2
	}, 2*time.Second, 10*time.Millisecond, "client should have redialed")

	waitForState(t, c, StateConnected)
}

func TestDisconnect_IsDeliberate(t *testing.T) {
	server := newFakeServer(t)
	c := newTestClient(t, testConfig(server.wsURL()))

	require.NoError(t, c.Connect(context.Background(), "tok-1"))
	waitForState(t, c, StateConnected)

	c.Disconnect()
	assert.Equal(t, StateDisconnected, c.Status().State)

	// No reconnect after a deliberate disconnect.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, StateDisconnected, c.Status().State)

	server.mu.Lock()
	dials := len(server.authz)
	server.mu.Unlock()
	assert.Equal(t, 1, dials)
}

func TestSend_FailsWhenNotConnected(t *testing.T) {
	c := newTestClient(t, testConfig("ws://127.0.0.1:1/realtime"))

	err := c.SendMessage(context.Background(), "room-1", "hello")
	require.Error(t, err)
	var rtErr *Error
	require.ErrorAs(t, err, &rtErr)
	assert.Equal(t, KindMessageSendFailed, rtErr.Kind)
}

func TestSendMessage_DeliversEnvelope(t *testing.T) {
	server := newFakeServer(t)
	c := newTestClient(t, testConfig(server.wsURL()))

	require.NoError(t, c.Connect(context.Background(), "tok-1"))
	waitForState(t, c, StateConnected)

	require.NoError(t, c.SendMessage(context.Background(), "room-1", "hello there"))

	require.Eventually(t, func() bool {
		return len(server.messagesOfType(TypeMessage)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	msg := server.messagesOfType(TypeMessage)[0]
	assert.Equal(t, "room-1", msg.Room)
	var payload ChatPayload
	require.NoError(t, codec.Decode(msg.Payload, &payload))
	assert.Equal(t, "hello there", payload.Text)
}

func TestJoinAndLeaveRoom(t *testing.T) {
	server := newFakeServer(t)
	c := newTestClient(t, testConfig(server.wsURL()))

	require.NoError(t, c.Connect(context.Background(), "tok-1"))
	waitForState(t, c, StateConnected)

	require.NoError(t, c.JoinRoom(context.Background(), "room-1"))
	require.NoError(t, c.LeaveRoom(context.Background(), "room-1"))

	require.Eventually(t, func() bool {
		return len(server.messagesOfType(TypeJoin)) == 1 &&
			len(server.messagesOfType(TypeLeave)) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "room-1", server.messagesOfType(TypeJoin)[0].Room)
}

func TestInboundMessage_DispatchedToObservers(t *testing.T) {
	server := newFakeServer(t)
	c := newTestClient(t, testConfig(server.wsURL()))

	received := make(chan Envelope, 1)
	c.OnMessage(func(env Envelope) { received <- env })

	require.NoError(t, c.Connect(context.Background(), "tok-1"))
	waitForState(t, c, StateConnected)

	inbound := NewEnvelope(TypeMessage)
	inbound.Sender = "u2"
	inbound.Room = "room-1"
	inbound.Payload, _ = codec.Encode(ChatPayload{Text: "hi"})
	server.push(t, inbound)

	select {
	case env := <-received:
		assert.Equal(t, "u2", env.Sender)
		assert.Equal(t, inbound.ID, env.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("message never dispatched")
	}

	last, ok := c.LastMessage()
	require.True(t, ok)
	assert.Equal(t, inbound.ID, last.ID)
}

func TestTypingIndicator_ExpiresAfterTTL(t *testing.T) {
	server := newFakeServer(t)
	c := newTestClient(t, testConfig(server.wsURL()))

	require.NoError(t, c.Connect(context.Background(), "tok-1"))
	waitForState(t, c, StateConnected)

	typing := NewEnvelope(TypeTyping)
	typing.Sender = "u2"
	server.push(t, typing)

	require.Eventually(t, func() bool {
		users := c.TypingUsers()
		return len(users) == 1 && users[0] == "u2"
	}, 2*time.Second, 10*time.Millisecond)

	// TTL elapses without a refresh.
	require.Eventually(t, func() bool {
		return len(c.TypingUsers()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTypingRegistry_RefreshRestartsClock(t *testing.T) {
	reg := newTypingRegistry(80 * time.Millisecond)

	reg.upsert("u1")
	time.Sleep(50 * time.Millisecond)
	reg.upsert("u1")
	time.Sleep(50 * time.Millisecond)

	// 100ms after the first upsert, but only 50ms after the refresh.
	assert.Equal(t, []string{"u1"}, reg.active())

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, reg.active())
}

func TestTypingRegistry_SortsUsers(t *testing.T) {
	reg := newTypingRegistry(time.Second)
	defer reg.stopAll()

	reg.upsert("zoe")
	reg.upsert("amir")
	reg.upsert("kim")
	assert.Equal(t, []string{"amir", "kim", "zoe"}, reg.active())
}

func TestHeartbeat_KeepsConnectionAlive(t *testing.T) {
	server := newFakeServer(t)
	c := newTestClient(t, testConfig(server.wsURL()))

	require.NoError(t, c.Connect(context.Background(), "tok-1"))
	waitForState(t, c, StateConnected)

	// A few heartbeat intervals pass; the pong replies must not surface as
	// messages and the connection must stay up.
	var got []Envelope
	var gotMu sync.Mutex
	c.OnMessage(func(env Envelope) {
		gotMu.Lock()
		got = append(got, env)
		gotMu.Unlock()
	})

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, StateConnected, c.Status().State)
	gotMu.Lock()
	assert.Empty(t, got)
	gotMu.Unlock()
}

func TestReconnectDelay_DoublesAndCaps(t *testing.T) {
	c := newTestClient(t, Config{
		ReconnectBaseDelay: 2 * time.Second,
		ReconnectMaxDelay:  30 * time.Second,
	})

	assert.Equal(t, 2*time.Second, c.reconnectDelay(1))
	assert.Equal(t, 4*time.Second, c.reconnectDelay(2))
	assert.Equal(t, 8*time.Second, c.reconnectDelay(3))
	assert.Equal(t, 16*time.Second, c.reconnectDelay(4))
	assert.Equal(t, 30*time.Second, c.reconnectDelay(5))
}

func TestEnvelope_NewEnvelopeStampsIdentity(t *testing.T) {
	a := NewEnvelope(TypeMessage)
	b := NewEnvelope(TypeMessage)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, TypeMessage, a.Type)
	assert.False(t, a.Timestamp.IsZero())
}
