package client_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crewboard/backend/pkg/client"
	"github.com/crewboard/backend/pkg/wire"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// newWSServer runs script once per accepted connection; n is 1 for the first
// connection, 2 for the second and so on.
func newWSServer(t *testing.T, script func(n int, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	count := 0
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		script(n, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// holdOpen blocks until the peer goes away.
func holdOpen(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func sendFrame(conn *websocket.Conn, msg wire.Message) {
	payload, _ := json.Marshal(msg)
	conn.WriteMessage(websocket.TextMessage, payload)
}

func outputMsg(taskID string, agentID uint, seq int) *wire.AgentOutputMessage {
	return &wire.AgentOutputMessage{
		Type:    wire.KindAgentOutput,
		AgentID: agentID,
		TaskID:  taskID,
		Seq:     seq,
		Content: "output",
	}
}

func nextEvent(t *testing.T, c *client.Client) wire.Message {
	t.Helper()
	select {
	case msg, ok := <-c.Events():
		require.True(t, ok, "events channel closed unexpectedly")
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestQueuedSendFlushedOnOpen(t *testing.T) {
	received := make(chan []byte, 1)
	srv := newWSServer(t, func(_ int, conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err == nil {
			received <- data
		}
		holdOpen(conn)
	})

	c := client.New(client.Config{URL: wsURL(srv), SendTimeout: 5 * time.Second})
	defer c.Close()

	// Send before the connection exists: it must queue, then flush on open.
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Send(&wire.TaskSubmitMessage{Type: wire.KindTaskSubmit, Content: "queued"})
	}()
	time.Sleep(20 * time.Millisecond)
	c.Connect()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("queued send never resolved")
	}

	select {
	case data := <-received:
		msg, err := wire.Decode(data)
		require.NoError(t, err)
		sub, ok := msg.(*wire.TaskSubmitMessage)
		require.True(t, ok)
		require.Equal(t, "queued", sub.Content)
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the queued frame")
	}
}

func TestSendTimesOutWhenConnectionNeverOpens(t *testing.T) {
	// Nothing listens on port 9; every dial fails and the send stays queued.
	c := client.New(client.Config{
		URL:         "ws://127.0.0.1:9/ws",
		RetryDelay:  time.Hour,
		SendTimeout: 50 * time.Millisecond,
	})
	defer c.Close()
	c.Connect()

	err := c.Send(&wire.TaskSubmitMessage{Type: wire.KindTaskSubmit, Content: "doomed"})
	require.ErrorIs(t, err, client.ErrSendTimeout)
}

func TestRedialsAfterUnexpectedClose(t *testing.T) {
	second := make(chan struct{})
	srv := newWSServer(t, func(n int, conn *websocket.Conn) {
		if n == 1 {
			return // drop the first connection immediately
		}
		close(second)
		holdOpen(conn)
	})

	var mu sync.Mutex
	var statuses []client.Status
	c := client.New(client.Config{
		URL:        wsURL(srv),
		RetryDelay: 10 * time.Millisecond,
		OnStatus: func(s client.Status) {
			mu.Lock()
			statuses = append(statuses, s)
			mu.Unlock()
		},
	})
	defer c.Close()
	c.Connect()

	select {
	case <-second:
	case <-time.After(5 * time.Second):
		t.Fatal("client never redialed")
	}

	// The redial walked through closed -> connecting -> open again.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		opens := 0
		for _, s := range statuses {
			if s == client.StatusOpen {
				opens++
			}
		}
		return opens >= 2
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCloseStopsRedialing(t *testing.T) {
	var mu sync.Mutex
	conns := 0
	srv := newWSServer(t, func(_ int, conn *websocket.Conn) {
		mu.Lock()
		conns++
		mu.Unlock()
		holdOpen(conn)
	})

	c := client.New(client.Config{URL: wsURL(srv), RetryDelay: 10 * time.Millisecond})
	c.Connect()

	require.Eventually(t, func() bool {
		return c.Status() == client.StatusOpen
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())
	require.Equal(t, client.StatusClosed, c.Status())

	// Events drains and closes; no new connection is attempted.
	require.Eventually(t, func() bool {
		_, ok := <-c.Events()
		return !ok
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, conns)

	require.ErrorIs(t, c.Send(wire.NewSystemMessage("too late")), client.ErrClientClosed)
}

func TestReconnectDeliversOnlyUnseenEvents(t *testing.T) {
	const taskID = "reconnect-task-01"
	srv := newWSServer(t, func(n int, conn *websocket.Conn) {
		if n == 1 {
			// First connection dies after two of four outputs.
			sendFrame(conn, outputMsg(taskID, 1, 1))
			sendFrame(conn, outputMsg(taskID, 2, 2))
			return
		}
		// After the reconnect the full history is replayed.
		for i := 1; i <= 4; i++ {
			sendFrame(conn, outputMsg(taskID, uint(i), i))
		}
		sendFrame(conn, wire.NewTaskStatusMessage(taskID, "completed"))
		holdOpen(conn)
	})

	c := client.New(client.Config{URL: wsURL(srv), RetryDelay: 10 * time.Millisecond})
	defer c.Close()
	c.Connect()

	// Each output surfaces exactly once despite the replay, in seq order,
	// followed by the terminal status.
	for want := 1; want <= 4; want++ {
		msg := nextEvent(t, c)
		out, ok := msg.(*wire.AgentOutputMessage)
		require.True(t, ok, "expected agent_output, got %s", msg.Kind())
		require.Equal(t, want, out.Seq)
		require.Equal(t, taskID, out.TaskID)
	}

	msg := nextEvent(t, c)
	status, ok := msg.(*wire.TaskStatusMessage)
	require.True(t, ok)
	require.Equal(t, "completed", status.Status)
}

func TestResetSeenRedeliversOldEvents(t *testing.T) {
	const taskID = "reset-epoch-task"
	srv := newWSServer(t, func(_ int, conn *websocket.Conn) {
		// Echo the same output for every inbound frame.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			sendFrame(conn, outputMsg(taskID, 1, 1))
		}
	})

	c := client.New(client.Config{URL: wsURL(srv), RetryDelay: 10 * time.Millisecond})
	defer c.Close()
	c.Connect()

	trigger := func() {
		require.NoError(t, c.Send(&wire.TaskSubmitMessage{Type: wire.KindTaskSubmit, Content: "ping"}))
	}

	trigger()
	first := nextEvent(t, c)
	require.Equal(t, wire.KindAgentOutput, first.Kind())

	// The duplicate is swallowed; give it time to arrive and be dropped.
	trigger()
	time.Sleep(200 * time.Millisecond)
	select {
	case msg := <-c.Events():
		t.Fatalf("duplicate surfaced: %s", msg.Kind())
	default:
	}

	c.ResetSeen()
	trigger()
	again := nextEvent(t, c)
	require.Equal(t, wire.KindAgentOutput, again.Kind())
}
