package vedika

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DeviceSession is the backend's view of an anonymous session, returned by
// both the create and validate endpoints.
type DeviceSession struct {
	SessionID      string `json:"session_id"`
	DeviceID       string `json:"device_id"`
	ExpiresAt      int64  `json:"expires_at"` // unix milliseconds
	Valid          bool   `json:"valid"`
	CoinsRemaining int    `json:"vedika_coins_remaining"`
	DailyCredits   int    `json:"daily_credits"`
	UsedCredits    int    `json:"used_credits"`
}

// CoinsBalance is the response of the coins balance endpoint.
type CoinsBalance struct {
	UsedCredits      int `json:"used_credits"`
	TotalCredits     int `json:"total_credits"`
	RemainingCredits int `json:"remaining_credits"`
}

// ChatResponse is the non-streaming chat reply.
type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
	Tokens         int    `json:"tokens,omitempty"`
}

// ConversationDetail is one conversation with its messages.
type ConversationDetail struct {
	Conversation
	Messages []ConversationMessage `json:"messages"`
}

// APIClient talks to the Vedika REST backend.
type APIClient struct {
	http   *resty.Client
	logger *Logger
}

func NewAPIClient(baseURL string, logger *Logger) *APIClient {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "vedika-sdk-go/1.0")

	return &APIClient{
		http:   client,
		logger: logger.WithComponent("api"),
	}
}

// SetTimeout overrides the default request timeout.
func (ac *APIClient) SetTimeout(timeout time.Duration) {
	ac.http.SetTimeout(timeout)
}

// SetHeader sets a header on every outgoing request.
func (ac *APIClient) SetHeader(key, value string) {
	ac.http.SetHeader(key, value)
}

// CreateDeviceSession registers the device and mints a new session.
func (ac *APIClient) CreateDeviceSession(ctx context.Context, deviceID string) (*DeviceSession, error) {
	var out DeviceSession
	resp, err := ac.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"device_id": deviceID}).
		SetResult(&out).
		Post("/auth/device-session")
	if err != nil {
		return nil, WrapError(err, ErrCodeSessionCreation)
	}
	if resp.IsError() {
		return nil, ac.httpError(resp, ErrCodeSessionCreation)
	}
	if out.SessionID == "" {
		return nil, NewSessionCreationError("backend returned no session id")
	}
	return &out, nil
}

// ValidateDeviceSession checks an existing session id. A backend rejection
// comes back as a SESSION_VALIDATION_FAILED error so callers can distinguish
// it from transient transport failures.
func (ac *APIClient) ValidateDeviceSession(ctx context.Context, deviceID, sessionID string) (*DeviceSession, error) {
	var out DeviceSession
	resp, err := ac.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"device_id":  deviceID,
			"session_id": sessionID,
		}).
		SetResult(&out).
		Get("/auth/device-session/validate")
	if err != nil {
		return nil, WrapError(err, ErrCodeConnectionFailed)
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusNotFound {
		return nil, NewSessionValidationError(fmt.Sprintf("session rejected: %s", resp.Status()))
	}
	if resp.IsError() {
		// Only an explicit rejection invalidates the stored session; a 5xx is
		// transient and must not cost the caller a still-valid session id.
		return nil, ac.httpError(resp, ErrCodeConnectionFailed)
	}
	if !out.Valid {
		return nil, NewSessionValidationError("session reported invalid")
	}
	return &out, nil
}

// CoinsBalance fetches authoritative credit counts.
func (ac *APIClient) CoinsBalance(ctx context.Context, deviceID, sessionID string) (*CoinsBalance, error) {
	var out CoinsBalance
	resp, err := ac.http.R().
		SetContext(ctx).
		SetQueryParam("device_id", deviceID).
		SetHeader("X-Session-ID", sessionID).
		SetResult(&out).
		Get("/coins/balance")
	if err != nil {
		return nil, WrapError(err, ErrCodeConnectionFailed)
	}
	if resp.IsError() {
		return nil, ac.httpError(resp, ErrCodeUnknown)
	}
	return &out, nil
}

// StartChat creates a conversation ahead of streaming and returns its id.
func (ac *APIClient) StartChat(ctx context.Context, sess *Session) (string, error) {
	var out struct {
		ConversationID string `json:"conversation_id"`
	}
	resp, err := ac.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"device_id":  sess.DeviceID,
			"session_id": sess.SessionID,
		}).
		SetResult(&out).
		Post("/ai/chat/start")
	if err != nil {
		return "", WrapError(err, ErrCodeConnectionFailed)
	}
	if resp.IsError() {
		return "", ac.httpError(resp, ErrCodeUnknown)
	}
	return out.ConversationID, nil
}

// Chat sends one message over REST, the non-streaming fallback path.
func (ac *APIClient) Chat(ctx context.Context, sess *Session, message, conversationID string) (*ChatResponse, error) {
	var out ChatResponse
	resp, err := ac.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"device_id":       sess.DeviceID,
			"session_id":      sess.SessionID,
			"message":         message,
			"conversation_id": conversationID,
		}).
		SetResult(&out).
		Post("/ai/chat")
	if err != nil {
		return nil, WrapError(err, ErrCodeConnectionFailed)
	}
	if resp.StatusCode() == http.StatusPaymentRequired {
		return nil, NewVedikaError("credits exhausted", ErrCodeCreditsExhausted)
	}
	if resp.IsError() {
		return nil, ac.httpError(resp, ErrCodeUnknown)
	}
	return &out, nil
}

// ListConversations returns the device's conversation summaries.
func (ac *APIClient) ListConversations(ctx context.Context, sess *Session) ([]Conversation, error) {
	var out []Conversation
	resp, err := ac.http.R().
		SetContext(ctx).
		SetQueryParam("device_id", sess.DeviceID).
		SetHeader("X-Session-ID", sess.SessionID).
		SetResult(&out).
		Get("/ai/conversations")
	if err != nil {
		return nil, WrapError(err, ErrCodeConnectionFailed)
	}
	if resp.IsError() {
		return nil, ac.httpError(resp, ErrCodeUnknown)
	}
	return out, nil
}

// GetConversation returns one conversation with its messages.
func (ac *APIClient) GetConversation(ctx context.Context, sess *Session, id string) (*ConversationDetail, error) {
	if id == "" {
		return nil, NewConfigError("conversation id cannot be empty")
	}
	var out ConversationDetail
	resp, err := ac.http.R().
		SetContext(ctx).
		SetHeader("X-Session-ID", sess.SessionID).
		SetResult(&out).
		Get("/ai/conversations/" + id)
	if err != nil {
		return nil, WrapError(err, ErrCodeConnectionFailed)
	}
	if resp.IsError() {
		return nil, ac.httpError(resp, ErrCodeUnknown)
	}
	return &out, nil
}

// DeleteConversation removes a conversation.
func (ac *APIClient) DeleteConversation(ctx context.Context, sess *Session, id string) error {
	if id == "" {
		return NewConfigError("conversation id cannot be empty")
	}
	resp, err := ac.http.R().
		SetContext(ctx).
		SetHeader("X-Session-ID", sess.SessionID).
		Delete("/ai/conversations/" + id)
	if err != nil {
		return WrapError(err, ErrCodeConnectionFailed)
	}
	if resp.IsError() {
		return ac.httpError(resp, ErrCodeUnknown)
	}
	return nil
}

// ListModels returns the models available through the router.
func (ac *APIClient) ListModels(ctx context.Context) ([]Model, error) {
	var out []Model
	resp, err := ac.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/routing/models")
	if err != nil {
		return nil, WrapError(err, ErrCodeConnectionFailed)
	}
	if resp.IsError() {
		return nil, ac.httpError(resp, ErrCodeUnknown)
	}
	return out, nil
}

// DeepgramToken fetches a short-lived token for the dictation integration.
func (ac *APIClient) DeepgramToken(ctx context.Context, sess *Session) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	resp, err := ac.http.R().
		SetContext(ctx).
		SetHeader("X-Session-ID", sess.SessionID).
		SetResult(&out).
		Get("/deepgram/token")
	if err != nil {
		return "", WrapError(err, ErrCodeConnectionFailed)
	}
	if resp.IsError() {
		return "", ac.httpError(resp, ErrCodeUnknown)
	}
	return out.Token, nil
}

func (ac *APIClient) httpError(resp *resty.Response, code string) *VedikaError {
	msg := string(resp.Body())
	if msg == "" {
		msg = resp.Status()
	}
	ac.logger.Warnf("%s %s -> %d", resp.Request.Method, resp.Request.URL, resp.StatusCode())
	return NewVedikaError(msg, code).
		AddDetail("status_code", resp.StatusCode()).
		AddDetail("http_code", fmt.Sprintf("HTTP_%d", resp.StatusCode()))
}
