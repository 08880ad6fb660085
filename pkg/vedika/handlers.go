package vedika

// Factory functions for common frame handlers.

// NewLoggingFrameHandler logs every inbound frame.
func NewLoggingFrameHandler(logger *Logger, verbose bool) FrameHandler {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	return func(frame Frame) {
		if verbose {
			logger.Infof("Received %s frame for conversation %q: %+v",
				frame.FrameType(), frame.Conversation(), frame)
		} else {
			logger.LogFrameEvent(frame.FrameType(), map[string]interface{}{
				"conversation_id": frame.Conversation(),
			})
		}
	}
}

// NewChunkHandler invokes callback with each content chunk for one
// conversation; an empty conversationID matches every conversation.
func NewChunkHandler(conversationID string, callback func(content string)) FrameHandler {
	return func(frame Frame) {
		chunk, ok := frame.(*ContentChunk)
		if !ok {
			return
		}
		if conversationID != "" && chunk.ConversationID != conversationID {
			return
		}
		callback(chunk.Content)
	}
}

// NewCompletionHandler invokes callback when a stream completes.
func NewCompletionHandler(callback func(conversationID, fullResponse string)) FrameHandler {
	return func(frame Frame) {
		if done, ok := frame.(*StreamCompleted); ok {
			callback(done.ConversationID, done.FullResponse)
		}
	}
}

// NewStreamErrorHandler invokes callback on backend-signaled stream failures.
func NewStreamErrorHandler(callback func(conversationID, message string)) FrameHandler {
	return func(frame Frame) {
		if failed, ok := frame.(*StreamFailed); ok {
			callback(failed.ConversationID, failed.ErrorMessage)
		}
	}
}

// NewCreditsHandler invokes callback with server-reported credit counts.
func NewCreditsHandler(callback func(remaining, daily int, message string)) FrameHandler {
	return func(frame Frame) {
		if info, ok := frame.(*CreditsInfo); ok {
			callback(info.CoinsRemaining, info.DailyCredits, info.Message)
		}
	}
}

// NewCreditsExhaustedHandler invokes callback when the backend reports the
// balance is spent. Distinct from a generic error so the caller can show the
// dedicated affordance.
func NewCreditsExhaustedHandler(callback func(*CreditsExhausted)) FrameHandler {
	return func(frame Frame) {
		if exhausted, ok := frame.(*CreditsExhausted); ok {
			callback(exhausted)
		}
	}
}

// NewFrameTypeFilter forwards only frames of the given type.
func NewFrameTypeFilter(frameType FrameType, handler FrameHandler) FrameHandler {
	return func(frame Frame) {
		if frame.FrameType() == frameType {
			handler(frame)
		}
	}
}

// NewConversationFilter forwards only frames for one conversation.
func NewConversationFilter(conversationID string, handler FrameHandler) FrameHandler {
	return func(frame Frame) {
		if frame.Conversation() == conversationID {
			handler(frame)
		}
	}
}

// ChainFrameHandlers runs handlers sequentially on each frame.
func ChainFrameHandlers(handlers ...FrameHandler) FrameHandler {
	return func(frame Frame) {
		for _, h := range handlers {
			if h != nil {
				h(frame)
			}
		}
	}
}

// NewConnectionStatusHandler logs state transitions and forwards them to an
// optional callback, for a connected/reconnecting/disconnected indicator.
func NewConnectionStatusHandler(logger *Logger, callback func(ConnectionState)) ConnectionHandler {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	return func(state ConnectionState) {
		logger.LogConnectionEvent("status", state, nil)
		if callback != nil {
			callback(state)
		}
	}
}

// NewErrorLoggingHandler logs errors with a prefix.
func NewErrorLoggingHandler(logger *Logger, prefix string) ErrorHandler {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	return func(err *VedikaError) {
		if err != nil {
			logger.Errorf("%s: %v", prefix, err)
		}
	}
}
