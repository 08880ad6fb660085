package vedika

import "time"

// ConnectionState enum
type ConnectionState string

const (
	StateClosed       ConnectionState = "closed"
	StateConnecting   ConnectionState = "connecting"
	StateOpen         ConnectionState = "open"
	StateReconnecting ConnectionState = "reconnecting"
	StateGivenUp      ConnectionState = "given_up"
)

// StreamPhase enum
type StreamPhase string

const (
	StreamActive   StreamPhase = "active"
	StreamComplete StreamPhase = "complete"
	StreamErrored  StreamPhase = "errored"
)

// Session is the anonymous identity record served by the session cache.
// DeviceID is stable and never expires; SessionID carries a server-issued
// expiry that is checked locally before every use.
type Session struct {
	DeviceID         string
	SessionID        string
	ExpiresAt        time.Time
	RemainingCredits int
	DailyCredits     int
	UsedCredits      int
}

// CoinsSnapshot is the cached credit balance with optimistic local updates.
type CoinsSnapshot struct {
	UsedCredits      int       `json:"used_credits"`
	TotalCredits     int       `json:"total_credits"`
	RemainingCredits int       `json:"remaining_credits"`
	LastUpdated      time.Time `json:"last_updated"`
}

// StreamResult is the assembler's view of one conversation's stream. Terminal
// results (complete or errored) are what stream handlers receive.
type StreamResult struct {
	ConversationID string
	Text           string
	Phase          StreamPhase
	ChunkCount     int
	Model          string
	Tokens         int
	Err            *VedikaError
}

// Model describes one entry from the routing models endpoint.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider,omitempty"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

// Conversation summarizes one chat thread from the conversations endpoint.
type Conversation struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

// ConversationMessage is one turn inside a conversation.
type ConversationMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Handler types
type FrameHandler func(Frame)
type ConnectionHandler func(ConnectionState)
type ErrorHandler func(*VedikaError)
type StreamHandler func(*StreamResult)
