package vedika

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// connectAttempt is the single shared in-flight connect. Concurrent callers
// of Connect await the same attempt instead of dialing in parallel.
type connectAttempt struct {
	done chan struct{}
	err  error
}

// Connection owns the process's one live WebSocket and hides reconnection
// from callers. State machine: closed -> connecting -> open; an unexpected
// closure moves to reconnecting with exponential backoff until either the
// dial succeeds or the retry budget is spent (given_up). Only an explicit
// Connect leaves given_up.
type Connection struct {
	cfg    *Config
	router *Router
	logger *Logger

	mu            sync.Mutex
	conn          *websocket.Conn
	state         ConnectionState
	openCh        chan struct{}
	attempts      int
	intentional   bool
	pending       *connectAttempt
	retryTimer    *time.Timer
	readGen       int
	nextID        int
	stateOrder    []int
	stateHandlers map[int]ConnectionHandler
	errOrder      []int
	errHandlers   map[int]ErrorHandler
}

func NewConnection(cfg *Config, router *Router, logger *Logger) *Connection {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	return &Connection{
		cfg:           cfg,
		router:        router,
		logger:        logger.WithComponent("connection"),
		state:         StateClosed,
		openCh:        make(chan struct{}),
		stateHandlers: make(map[int]ConnectionHandler),
		errHandlers:   make(map[int]ErrorHandler),
	}
}

// backoffDelay returns the wait before reconnect attempt n (zero-based):
// base, 2*base, 4*base, ... capped at max.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// Connect is idempotent: open is a no-op, and a caller arriving while a
// connect is in flight awaits that same attempt. From closed or given_up it
// resets the retry budget and dials.
func (c *Connection) Connect() error {
	c.mu.Lock()
	switch c.state {
	case StateOpen:
		c.mu.Unlock()
		return nil
	case StateConnecting, StateReconnecting:
		attempt := c.ensurePendingLocked()
		c.mu.Unlock()
		<-attempt.done
		return attempt.err
	}

	c.intentional = false
	c.attempts = 0
	c.setStateLocked(StateConnecting)
	attempt := c.ensurePendingLocked()
	c.mu.Unlock()

	c.tryDial()
	<-attempt.done
	return attempt.err
}

// Send writes one JSON frame. Without an open connection it first triggers
// Connect and waits, bounded by the configured send timeout.
func (c *Connection) Send(frame any) error {
	timer := time.NewTimer(c.cfg.SendTimeout)
	defer timer.Stop()

	for {
		c.mu.Lock()
		if c.state == StateOpen && c.conn != nil {
			if c.cfg.DebugWebsocket {
				c.logger.Debugf("Sending frame: %+v", frame)
			}
			err := c.conn.WriteJSON(frame)
			c.mu.Unlock()
			if err != nil {
				return WrapError(err, ErrCodeWebSocket)
			}
			return nil
		}
		openCh := c.openCh
		state := c.state
		c.mu.Unlock()

		if state == StateClosed || state == StateGivenUp {
			go func() { _ = c.Connect() }()
		}

		select {
		case <-openCh:
		case <-timer.C:
			return NewConnectionTimeoutError(c.cfg.SendTimeout)
		}
	}
}

// Disconnect closes the transport. An intentional disconnect records a
// sentinel so the closure handler does not reconnect; a non-intentional one
// leaves recovery to the normal reconnect path.
func (c *Connection) Disconnect(intentional bool) {
	c.mu.Lock()
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	conn := c.conn
	if intentional {
		c.intentional = true
		c.conn = nil
		c.readGen++
		c.setStateLocked(StateClosed)
		c.resolvePendingLocked(NewVedikaError("connection closed", ErrCodeConnectionFailed))
	}
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) IsConnected() bool {
	return c.State() == StateOpen
}

// ReconnectAttempts returns the failed attempt count since the last open.
func (c *Connection) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Connection) AddStateHandler(handler ConnectionHandler) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.stateHandlers[id] = handler
	c.stateOrder = append(c.stateOrder, id)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.stateHandlers, id)
		for i, v := range c.stateOrder {
			if v == id {
				c.stateOrder = append(c.stateOrder[:i], c.stateOrder[i+1:]...)
				break
			}
		}
	}
}

func (c *Connection) AddErrorHandler(handler ErrorHandler) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.errHandlers[id] = handler
	c.errOrder = append(c.errOrder, id)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.errHandlers, id)
		for i, v := range c.errOrder {
			if v == id {
				c.errOrder = append(c.errOrder[:i], c.errOrder[i+1:]...)
				break
			}
		}
	}
}

func (c *Connection) ensurePendingLocked() *connectAttempt {
	if c.pending == nil {
		c.pending = &connectAttempt{done: make(chan struct{})}
	}
	return c.pending
}

func (c *Connection) resolvePendingLocked(err error) {
	if c.pending == nil {
		return
	}
	c.pending.err = err
	close(c.pending.done)
	c.pending = nil
}

func (c *Connection) setStateLocked(state ConnectionState) {
	if c.state == state {
		return
	}
	prev := c.state
	c.state = state
	if state == StateOpen {
		close(c.openCh)
	} else if prev == StateOpen {
		c.openCh = make(chan struct{})
	}
	c.logger.LogConnectionEvent("state_change", state, map[string]interface{}{
		"previous": string(prev),
		"attempts": c.attempts,
	})
	for _, id := range c.stateOrder {
		go c.stateHandlers[id](state)
	}
}

func (c *Connection) handleError(err *VedikaError) {
	c.logger.LogError(err)
	c.mu.Lock()
	handlers := make([]ErrorHandler, 0, len(c.errOrder))
	for _, id := range c.errOrder {
		handlers = append(handlers, c.errHandlers[id])
	}
	c.mu.Unlock()
	for _, handler := range handlers {
		go handler(err)
	}
}

// tryDial performs one dial attempt and resolves any waiting Connect callers.
func (c *Connection) tryDial() {
	header := make(http.Header)
	for k, v := range c.cfg.Headers {
		header.Set(k, v)
	}
	conn, _, err := websocket.DefaultDialer.Dial(c.cfg.WsEndpoint, header)

	c.mu.Lock()
	if c.intentional {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		if c.cfg.DebugWebsocket {
			c.logger.WithError(err).Debugf("Dial attempt %d failed", c.attempts)
		}
		willGiveUp := c.attempts >= c.cfg.MaxReconnectAttempts
		if !willGiveUp {
			c.resolvePendingLocked(WrapError(err, ErrCodeConnectionFailed))
		}
		c.scheduleRetryLocked()
		c.mu.Unlock()
		return
	}

	c.conn = conn
	c.attempts = 0
	c.readGen++
	gen := c.readGen
	c.setStateLocked(StateOpen)
	c.resolvePendingLocked(nil)
	c.mu.Unlock()

	go c.readLoop(conn, gen)
}

// scheduleRetryLocked books the next dial with exponential backoff, or gives
// up once the budget is spent. Leaving given_up requires an explicit Connect.
func (c *Connection) scheduleRetryLocked() {
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.setStateLocked(StateGivenUp)
		err := NewMaxReconnectError(c.attempts)
		c.resolvePendingLocked(err)
		go c.handleError(err)
		return
	}

	delay := backoffDelay(c.attempts, c.cfg.ReconnectDelay, c.cfg.ReconnectMaxDelay)
	c.attempts++
	c.logger.Debugf("Scheduling reconnect attempt %d in %s", c.attempts, delay)
	c.retryTimer = time.AfterFunc(delay, c.retryDial)
}

func (c *Connection) retryDial() {
	c.mu.Lock()
	if c.intentional || (c.state != StateConnecting && c.state != StateReconnecting) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.tryDial()
}

func (c *Connection) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadClosed(conn, gen, err)
			return
		}
		if c.cfg.DebugWebsocket {
			c.logger.Debugf("Received %d bytes", len(data))
		}
		c.router.Dispatch(data)
	}
}

func (c *Connection) handleReadClosed(conn *websocket.Conn, gen int, err error) {
	c.mu.Lock()
	if gen != c.readGen || conn != c.conn {
		// A stale loop: the connection was already replaced or shut down.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.intentional {
		c.setStateLocked(StateClosed)
		c.mu.Unlock()
		return
	}
	c.logger.WithError(err).Warn("Connection closed unexpectedly")
	c.setStateLocked(StateReconnecting)
	c.scheduleRetryLocked()
	c.mu.Unlock()
}
