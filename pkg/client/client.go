// Package client is a reconnecting websocket consumer for the crew stream.
// It queues outbound sends while a connection is being established, redials
// with a flat delay after an unexpected close, and filters inbound events
// through a de-duplication tracker so a reconnect never surfaces an event
// twice.
package client

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/crewboard/backend/pkg/dedupe"
	"github.com/crewboard/backend/pkg/wire"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
	StatusError      Status = "error"
)

var (
	ErrClientClosed = errors.New("client: closed")
	ErrSendTimeout  = errors.New("client: send abandoned, connection did not open in time")
)

type Config struct {
	URL    string
	Logger *zap.Logger

	// RetryDelay is the flat wait before redialing after an error or an
	// unexpected close. Not exponential on purpose.
	RetryDelay time.Duration
	// SendTimeout bounds how long a send queued during connection
	// establishment waits before being abandoned.
	SendTimeout      time.Duration
	HandshakeTimeout time.Duration
	// EventBuffer is the capacity of the Events channel.
	EventBuffer int
	// OnStatus, when set, is called on every state transition.
	OnStatus func(Status)
}

type pendingSend struct {
	payload []byte
	result  chan error
}

type Client struct {
	url              string
	log              *zap.Logger
	retryDelay       time.Duration
	sendTimeout      time.Duration
	handshakeTimeout time.Duration
	onStatus         func(Status)

	mu      sync.Mutex
	status  Status
	conn    *websocket.Conn
	queue   []*pendingSend
	started bool
	closed  bool
	done    chan struct{}

	writeMu sync.Mutex

	seen   *dedupe.Tracker
	events chan wire.Message
}

func New(cfg Config) *Client {
	retry := cfg.RetryDelay
	if retry == 0 {
		retry = 3 * time.Second
	}
	sendTimeout := cfg.SendTimeout
	if sendTimeout == 0 {
		sendTimeout = 10 * time.Second
	}
	handshake := cfg.HandshakeTimeout
	if handshake == 0 {
		handshake = 10 * time.Second
	}
	buffer := cfg.EventBuffer
	if buffer == 0 {
		buffer = 64
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		url:              cfg.URL,
		log:              log,
		retryDelay:       retry,
		sendTimeout:      sendTimeout,
		handshakeTimeout: handshake,
		onStatus:         cfg.OnStatus,
		status:           StatusClosed,
		done:             make(chan struct{}),
		seen:             dedupe.NewTracker(),
		events:           make(chan wire.Message, buffer),
	}
}

// Connect starts the connection loop. Subsequent calls are no-ops.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.status = StatusConnecting
	c.mu.Unlock()
	c.notify(StatusConnecting)

	go c.run()
}

func (c *Client) run() {
	defer close(c.events)

	for {
		if c.isClosed() {
			return
		}

		dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
		conn, resp, err := dialer.Dial(c.url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			c.log.Warn("client_dial_failed", zap.String("url", c.url), zap.Error(err))
			c.setStatus(StatusError)
			if !c.waitRetry() {
				return
			}
			c.setStatus(StatusConnecting)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.status = StatusOpen
		pending := c.queue
		c.queue = nil
		c.mu.Unlock()
		c.notify(StatusOpen)
		c.log.Info("client_connected", zap.String("url", c.url))

		for _, p := range pending {
			p.result <- c.write(conn, p.payload)
		}

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		intentional := c.closed
		c.status = StatusClosed
		c.mu.Unlock()
		c.notify(StatusClosed)

		if intentional {
			return
		}
		c.log.Warn("client_connection_lost", zap.String("url", c.url))
		if !c.waitRetry() {
			return
		}
		c.setStatus(StatusConnecting)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := wire.Decode(data)
		if err != nil {
			c.log.Warn("client_malformed_frame", zap.Error(err))
			continue
		}

		if key, ok := msg.DedupeKey(); ok && c.seen.Seen(key) {
			c.log.Debug("client_duplicate_dropped", zap.String("key", key))
			continue
		}

		select {
		case c.events <- msg:
		case <-c.done:
			return
		}
	}
}

// Send delivers a message, queueing it while the connection is still being
// established. A queued send waits at most SendTimeout before being
// abandoned with ErrSendTimeout.
func (c *Client) Send(msg wire.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.status == StatusOpen && c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		return c.write(conn, payload)
	}
	p := &pendingSend{payload: payload, result: make(chan error, 1)}
	c.queue = append(c.queue, p)
	c.mu.Unlock()

	timer := time.NewTimer(c.sendTimeout)
	defer timer.Stop()
	select {
	case err := <-p.result:
		return err
	case <-timer.C:
		c.mu.Lock()
		for i, q := range c.queue {
			if q == p {
				c.queue = append(c.queue[:i], c.queue[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
		// The flush may have raced the timer.
		select {
		case err := <-p.result:
			return err
		default:
		}
		return ErrSendTimeout
	}
}

// SubmitTask sends a task_submit carrying a fresh client-generated
// correlation id, so a replay of the same frame after a reconnect is
// recognized server-side. Returns the id for correlating later events.
func (c *Client) SubmitTask(content string) (string, error) {
	taskID := uuid.New().String()
	err := c.Send(&wire.TaskSubmitMessage{
		Type:    wire.KindTaskSubmit,
		Content: content,
		TaskID:  taskID,
	})
	if err != nil {
		return "", err
	}
	return taskID, nil
}

// Events delivers de-duplicated inbound messages. Closed once the client
// shuts down for good.
func (c *Client) Events() <-chan wire.Message {
	return c.events
}

// ResetSeen starts a fresh de-duplication epoch; previously-seen events
// will surface again (used when the viewer clears its display).
func (c *Client) ResetSeen() {
	c.seen.Reset()
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Close shuts the client down for good: queued sends fail, no redial.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	pending := c.queue
	c.queue = nil
	started := c.started
	c.status = StatusClosed
	c.mu.Unlock()

	close(c.done)
	for _, p := range pending {
		p.result <- ErrClientClosed
	}
	if conn != nil {
		conn.Close()
	}
	if !started {
		close(c.events)
	}
	c.notify(StatusClosed)
	return nil
}

func (c *Client) write(conn *websocket.Conn, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// waitRetry sleeps the flat retry delay; false means the client was closed
// while waiting.
func (c *Client) waitRetry() bool {
	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.status = s
	c.mu.Unlock()
	c.notify(s)
}

func (c *Client) notify(s Status) {
	if c.onStatus != nil {
		c.onStatus(s)
	}
}
