package vedika

import "encoding/json"

// FrameType discriminates inbound frames
type FrameType string

const (
	FrameStreamStart      FrameType = "stream_start"
	FrameContentChunk     FrameType = "content_chunk"
	FrameStreamComplete   FrameType = "stream_complete"
	FrameStreamError      FrameType = "stream_error"
	FrameCreditsInfo      FrameType = "credits_info"
	FrameCreditsExhausted FrameType = "credits_exhausted"
)

// Frame is one inbound JSON message from the streaming endpoint, decoded into
// its concrete variant. Unrecognized types decode to UnknownFrame so new
// server-side events still reach subscribers.
type Frame interface {
	FrameType() FrameType
	Conversation() string
}

type StreamStart struct {
	ConversationID string  `json:"conversation_id"`
	Model          string  `json:"model,omitempty"`
	Timestamp      float64 `json:"timestamp,omitempty"`
}

func (f *StreamStart) FrameType() FrameType { return FrameStreamStart }
func (f *StreamStart) Conversation() string { return f.ConversationID }

type ContentChunk struct {
	ConversationID string  `json:"conversation_id"`
	Content        string  `json:"content"`
	ChunkID        int     `json:"chunk_id"`
	Timestamp      float64 `json:"timestamp,omitempty"`
}

func (f *ContentChunk) FrameType() FrameType { return FrameContentChunk }
func (f *ContentChunk) Conversation() string { return f.ConversationID }

type StreamCompleted struct {
	ConversationID string `json:"conversation_id"`
	FullResponse   string `json:"full_response"`
	TotalChunks    int    `json:"total_chunks,omitempty"`
	Tokens         int    `json:"tokens,omitempty"`
	Credits        *int   `json:"credits,omitempty"`
}

func (f *StreamCompleted) FrameType() FrameType { return FrameStreamComplete }
func (f *StreamCompleted) Conversation() string { return f.ConversationID }

type StreamFailed struct {
	ConversationID string `json:"conversation_id"`
	ErrorMessage   string `json:"error"`
}

func (f *StreamFailed) FrameType() FrameType { return FrameStreamError }
func (f *StreamFailed) Conversation() string { return f.ConversationID }

type CreditsInfo struct {
	ConversationID string `json:"conversation_id,omitempty"`
	CoinsRemaining int    `json:"vedika_coins_remaining"`
	DailyCredits   int    `json:"daily_credits"`
	Message        string `json:"message,omitempty"`
}

func (f *CreditsInfo) FrameType() FrameType { return FrameCreditsInfo }
func (f *CreditsInfo) Conversation() string { return f.ConversationID }

type CreditsExhausted struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message,omitempty"`
	ActionRequired string `json:"action_required,omitempty"`
	DailyCredits   int    `json:"daily_credits,omitempty"`
}

func (f *CreditsExhausted) FrameType() FrameType { return FrameCreditsExhausted }
func (f *CreditsExhausted) Conversation() string { return f.ConversationID }

// UnknownFrame carries any unrecognized type through to subscribers.
type UnknownFrame struct {
	Type           FrameType
	ConversationID string
	Raw            json.RawMessage
}

func (f *UnknownFrame) FrameType() FrameType { return f.Type }
func (f *UnknownFrame) Conversation() string { return f.ConversationID }

// ParseFrame decodes one inbound message into its variant. A missing or
// unparseable type discriminator is a malformed frame; callers drop those.
func ParseFrame(data []byte) (Frame, error) {
	var envelope struct {
		Type           string `json:"type"`
		ConversationID string `json:"conversation_id"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, NewMalformedFrameError(err.Error())
	}
	if envelope.Type == "" {
		return nil, NewMalformedFrameError("frame has no type discriminator")
	}

	var frame Frame
	switch FrameType(envelope.Type) {
	case FrameStreamStart:
		frame = &StreamStart{}
	case FrameContentChunk:
		frame = &ContentChunk{}
	case FrameStreamComplete:
		frame = &StreamCompleted{}
	case FrameStreamError, "error": // older backends send a bare "error" type
		frame = &StreamFailed{}
	case FrameCreditsInfo:
		frame = &CreditsInfo{}
	case FrameCreditsExhausted:
		frame = &CreditsExhausted{}
	default:
		return &UnknownFrame{
			Type:           FrameType(envelope.Type),
			ConversationID: envelope.ConversationID,
			Raw:            append(json.RawMessage(nil), data...),
		}, nil
	}

	if err := json.Unmarshal(data, frame); err != nil {
		return nil, NewMalformedFrameError(err.Error())
	}
	return frame, nil
}

// ChatRequest is the outbound frame that starts or continues a streamed chat.
type ChatRequest struct {
	RouteKey       string `json:"routeKey"`
	DeviceID       string `json:"device_id"`
	SessionID      string `json:"session_id"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	RequestType    string `json:"request_type"`
	ModelID        string `json:"model_id,omitempty"`
	QueryType      string `json:"query_type,omitempty"`
}

const chatRouteKey = "stream_chat"

// NewChatRequest builds the outbound frame for one message using the session's
// identity. ConversationID is empty for a brand-new conversation.
func NewChatRequest(sess *Session, message, conversationID, requestType, modelID string) *ChatRequest {
	return &ChatRequest{
		RouteKey:       chatRouteKey,
		DeviceID:       sess.DeviceID,
		SessionID:      sess.SessionID,
		Message:        message,
		ConversationID: conversationID,
		RequestType:    requestType,
		ModelID:        modelID,
	}
}
