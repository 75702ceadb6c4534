package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/crewboard/backend/internal/infrastructure/logger"
	"github.com/crewboard/backend/pkg/wire"
	"github.com/stretchr/testify/require"
)

// fakeConn records every frame written to it; failAfter > 0 makes writes
// start failing once that many frames went through.
type fakeConn struct {
	mu        sync.Mutex
	frames    [][]byte
	failAfter int
	closed    bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAfter > 0 && len(c.frames) >= c.failAfter {
		return errors.New("write: broken pipe")
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestHub() *Hub {
	return NewHub(logger.Nop())
}

func TestBroadcastReachesEveryConnection(t *testing.T) {
	hub := newTestHub()
	conns := []*fakeConn{{}, {}, {}}
	for _, c := range conns {
		hub.Register(c)
	}

	hub.Broadcast(wire.NewSystemMessage("hello"))

	for _, c := range conns {
		frames := c.received()
		require.Len(t, frames, 1)

		var msg wire.SystemMessage
		require.NoError(t, json.Unmarshal(frames[0], &msg))
		require.Equal(t, wire.KindSystemMessage, msg.Type)
		require.Equal(t, "hello", msg.Content)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	hub := newTestHub()
	c := &fakeConn{}

	hub.Register(c)
	hub.Register(c)
	require.Equal(t, 1, hub.Count())

	hub.Broadcast(wire.NewTaskStatusMessage("t-1", "pending"))
	require.Len(t, c.received(), 1)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := newTestHub()
	c := &fakeConn{}

	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)
	require.Equal(t, 0, hub.Count())

	hub.Broadcast(wire.NewSystemMessage("after unregister"))
	require.Empty(t, c.received())
}

func TestFailingConnectionDroppedOthersDelivered(t *testing.T) {
	hub := newTestHub()
	healthy := []*fakeConn{{}, {}}
	broken := &fakeConn{failAfter: 1}

	hub.Register(healthy[0])
	hub.Register(broken)
	hub.Register(healthy[1])

	hub.Broadcast(wire.NewTaskStatusMessage("t-1", "pending"))
	hub.Broadcast(wire.NewTaskStatusMessage("t-1", "processing"))

	require.Equal(t, 2, hub.Count())
	require.True(t, broken.isClosed())
	require.Len(t, broken.received(), 1)

	for _, c := range healthy {
		require.Len(t, c.received(), 2)
	}

	// The dropped peer stays gone.
	hub.Broadcast(wire.NewTaskStatusMessage("t-1", "completed"))
	require.Len(t, broken.received(), 1)
	for _, c := range healthy {
		require.Len(t, c.received(), 3)
	}
}

func TestBroadcastPreservesPerConnectionOrder(t *testing.T) {
	hub := newTestHub()
	c := &fakeConn{}
	hub.Register(c)

	statuses := []string{"pending", "processing", "completed"}
	for _, status := range statuses {
		hub.Broadcast(wire.NewTaskStatusMessage("t-1", status))
	}

	frames := c.received()
	require.Len(t, frames, len(statuses))
	for i, frame := range frames {
		var msg wire.TaskStatusMessage
		require.NoError(t, json.Unmarshal(frame, &msg))
		require.Equal(t, statuses[i], msg.Status)
	}
}

func TestSendTargetsOnlyOneConnection(t *testing.T) {
	hub := newTestHub()
	target := &fakeConn{}
	other := &fakeConn{}
	hub.Register(target)
	hub.Register(other)

	require.NoError(t, hub.Send(target, wire.NewSystemMessage("just you")))

	require.Len(t, target.received(), 1)
	require.Empty(t, other.received())
}

func TestSendToUnregisteredConnectionIsNoop(t *testing.T) {
	hub := newTestHub()
	c := &fakeConn{}

	require.NoError(t, hub.Send(c, wire.NewSystemMessage("nobody home")))
	require.Empty(t, c.received())
}

func TestConcurrentBroadcastsDeliverEverything(t *testing.T) {
	hub := newTestHub()
	conns := []*fakeConn{{}, {}, {}, {}}
	for _, c := range conns {
		hub.Register(c)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(wire.NewSystemMessage("burst"))
		}()
	}
	wg.Wait()

	for _, c := range conns {
		require.Len(t, c.received(), n)
	}
}
