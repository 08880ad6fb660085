package vedika

import (
	"context"
	"path/filepath"
	"strings"
)

// Client is the composition root tying the connection, the router, the
// session cache, and the stream assembler together. Construct one per
// process; every component hangs off it instead of package-level singletons.
type Client struct {
	cfg       *Config
	logger    *Logger
	api       *APIClient
	sessions  *SessionCache
	router    *Router
	conn      *Connection
	assembler *Assembler
}

// NewClient wires up a client from config. A nil store resolves to the
// default on-disk identity store.
func NewClient(cfg *Config, store IdentityStore) (*Client, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if issues := cfg.Validate(); len(issues) > 0 {
		return nil, NewConfigError(strings.Join(issues, "; "))
	}

	logger := NewLogger(&LogConfig{
		Level:  cfg.DebugLevel,
		Pretty: true,
		Output: DefaultLogConfig().Output,
	})

	if store == nil {
		path := cfg.StateDir
		if path == "" {
			var err error
			path, err = DefaultIdentityPath()
			if err != nil {
				return nil, err
			}
		} else {
			path = filepath.Join(path, "identity.json")
		}
		store = NewFileIdentityStore(path)
	}

	api := NewAPIClient(cfg.APIBaseURL, logger)
	router := NewRouter(logger)
	conn := NewConnection(cfg, router, logger)
	sessions := NewSessionCache(api, store, cfg.SessionTTL, logger)
	assembler := NewAssembler(cfg.StreamTimeout, logger)

	c := &Client{
		cfg:       cfg,
		logger:    logger.WithComponent("client"),
		api:       api,
		sessions:  sessions,
		router:    router,
		conn:      conn,
		assembler: assembler,
	}

	// Internal subscribers: the assembler consumes stream frames, and credit
	// frames reconcile the cached balance (server values win).
	router.Subscribe(assembler.HandleFrame)
	router.Subscribe(c.reconcileCredits)

	if cfg.AutoConnect {
		go func() {
			if err := conn.Connect(); err != nil {
				c.logger.WithError(err).Warn("Auto-connect failed")
			}
		}()
	}

	return c, nil
}

func (c *Client) reconcileCredits(frame Frame) {
	switch f := frame.(type) {
	case *CreditsInfo:
		c.sessions.ReconcileCredits(f.CoinsRemaining, f.DailyCredits)
	case *CreditsExhausted:
		c.sessions.ReconcileCredits(0, f.DailyCredits)
		c.logger.Warn("Credit balance exhausted")
	case *StreamCompleted:
		if f.Credits != nil {
			c.sessions.ReconcileCredits(*f.Credits, 0)
		}
	}
}

// Connect opens the streaming connection.
func (c *Client) Connect() error {
	return c.conn.Connect()
}

// Disconnect closes the streaming connection without scheduling a reconnect.
func (c *Client) Disconnect() {
	c.conn.Disconnect(true)
}

// ConnectionState returns the current transport state.
func (c *Client) ConnectionState() ConnectionState {
	return c.conn.State()
}

// SendChat ensures a valid session, optimistically burns one credit, and
// sends the chat request over the streaming connection. The reply arrives as
// frames; subscribe via OnFrame or OnStream.
func (c *Client) SendChat(ctx context.Context, message, conversationID string) error {
	if message == "" {
		return NewConfigError("message cannot be empty")
	}

	sess, err := c.sessions.GetSession(ctx)
	if err != nil {
		return err
	}
	if sess.RemainingCredits <= 0 {
		return NewVedikaError("no credits remaining", ErrCodeCreditsExhausted)
	}

	req := NewChatRequest(sess, message, conversationID, c.cfg.RequestType, c.cfg.ModelID)
	c.sessions.UpdateUsageOptimistically(1)
	if err := c.conn.Send(req); err != nil {
		return err
	}
	c.logger.Debugf("Sent chat request for conversation %q", conversationID)
	return nil
}

// StartConversation creates a conversation over REST and returns its id.
func (c *Client) StartConversation(ctx context.Context) (string, error) {
	sess, err := c.sessions.GetSession(ctx)
	if err != nil {
		return "", err
	}
	return c.api.StartChat(ctx, sess)
}

// Session returns the current session, validating or creating one if needed.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	return c.sessions.GetSession(ctx)
}

// RefreshSession revalidates unconditionally to get authoritative credits.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	return c.sessions.Refresh(ctx)
}

// Coins returns the cached credit balance, nil before the first session.
func (c *Client) Coins() *CoinsSnapshot {
	return c.sessions.Coins()
}

// OnFrame subscribes to every inbound frame; returns an unsubscribe func.
func (c *Client) OnFrame(handler FrameHandler) func() {
	return c.router.Subscribe(handler)
}

// OnStream subscribes to terminal stream results; returns an unsubscribe func.
func (c *Client) OnStream(handler StreamHandler) func() {
	return c.assembler.AddStreamHandler(handler)
}

// OnConnectionState subscribes to transport state changes.
func (c *Client) OnConnectionState(handler ConnectionHandler) func() {
	return c.conn.AddStateHandler(handler)
}

// OnError subscribes to terminal connection errors.
func (c *Client) OnError(handler ErrorHandler) func() {
	return c.conn.AddErrorHandler(handler)
}

// StreamText returns the partial text of an in-flight stream.
func (c *Client) StreamText(conversationID string) (string, bool) {
	return c.assembler.Text(conversationID)
}

// AbandonStream stops tracking a conversation's in-flight stream.
func (c *Client) AbandonStream(conversationID string) {
	c.assembler.Abandon(conversationID)
}

// API exposes the REST client for conversation and model management.
func (c *Client) API() *APIClient {
	return c.api
}

// Close tears the client down.
func (c *Client) Close() {
	c.conn.Disconnect(true)
	c.logger.Debug("Client closed")
}
