package vedika

import (
	"strings"
	"sync"
	"time"
)

type streamState struct {
	text   strings.Builder
	chunks int
	model  string
	timer  *time.Timer
}

// Assembler folds ordered content chunks into one assembled response per
// conversation. Chunks append in arrival order; the transport delivers them
// in generation order over the single connection. A stream with no terminal
// frame within the inactivity timeout is failed with a stream-timeout error
// so the caller is never left showing a spinner forever.
type Assembler struct {
	timeout time.Duration
	logger  *Logger

	mu       sync.Mutex
	streams  map[string]*streamState
	nextID   int
	order    []int
	handlers map[int]StreamHandler
}

// NewAssembler creates an assembler. timeout <= 0 disables the inactivity
// watchdog.
func NewAssembler(timeout time.Duration, logger *Logger) *Assembler {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	return &Assembler{
		timeout:  timeout,
		logger:   logger.WithComponent("assembler"),
		streams:  make(map[string]*streamState),
		handlers: make(map[int]StreamHandler),
	}
}

// AddStreamHandler registers a handler for terminal stream results and
// returns a function that removes it.
func (a *Assembler) AddStreamHandler(handler StreamHandler) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.handlers[id] = handler
	a.order = append(a.order, id)
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.handlers, id)
		for i, v := range a.order {
			if v == id {
				a.order = append(a.order[:i], a.order[i+1:]...)
				break
			}
		}
	}
}

// HandleFrame feeds one inbound frame into the assembler. Wire it as a
// router subscriber.
func (a *Assembler) HandleFrame(frame Frame) {
	switch f := frame.(type) {
	case *StreamStart:
		a.start(f.ConversationID, f.Model)
	case *ContentChunk:
		a.appendChunk(f.ConversationID, f.Content)
	case *StreamCompleted:
		a.complete(f)
	case *StreamFailed:
		a.fail(f.ConversationID, f.ErrorMessage)
	}
}

// Text returns the partial accumulated text for an active conversation.
func (a *Assembler) Text(conversationID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.streams[conversationID]
	if !ok {
		return "", false
	}
	return st.text.String(), true
}

// ActiveStreams returns the conversation ids with a stream in flight.
func (a *Assembler) ActiveStreams() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.streams))
	for id := range a.streams {
		ids = append(ids, id)
	}
	return ids
}

// Abandon drops an in-flight stream without emitting a terminal result, for
// callers navigating away from a conversation.
func (a *Assembler) Abandon(conversationID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.streams[conversationID]; ok {
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(a.streams, conversationID)
	}
}

func (a *Assembler) start(conversationID, model string) {
	if conversationID == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if old, ok := a.streams[conversationID]; ok {
		// At most one active stream per conversation; a fresh start replaces
		// whatever was left behind.
		if old.timer != nil {
			old.timer.Stop()
		}
	}
	st := &streamState{model: model}
	if a.timeout > 0 {
		st.timer = time.AfterFunc(a.timeout, func() { a.expire(conversationID, st) })
	}
	a.streams[conversationID] = st
}

func (a *Assembler) appendChunk(conversationID, content string) {
	if conversationID == "" {
		return
	}
	a.mu.Lock()
	st, ok := a.streams[conversationID]
	if !ok {
		// Chunk without a stream_start: tolerate it, some backends skip the
		// start frame on resumed conversations.
		st = &streamState{}
		if a.timeout > 0 {
			st.timer = time.AfterFunc(a.timeout, func() { a.expire(conversationID, st) })
		}
		a.streams[conversationID] = st
	}
	st.text.WriteString(content)
	st.chunks++
	if st.timer != nil {
		st.timer.Reset(a.timeout)
	}
	a.mu.Unlock()
}

func (a *Assembler) complete(f *StreamCompleted) {
	a.mu.Lock()
	st := a.takeLocked(f.ConversationID)
	text := f.FullResponse
	result := &StreamResult{
		ConversationID: f.ConversationID,
		Phase:          StreamComplete,
		Tokens:         f.Tokens,
	}
	if st != nil {
		result.ChunkCount = st.chunks
		result.Model = st.model
		if text == "" {
			// No authoritative full response from the server: fall back to
			// the locally accumulated chunks.
			text = st.text.String()
		}
	}
	result.Text = text
	a.mu.Unlock()
	a.emit(result)
}

func (a *Assembler) fail(conversationID, message string) {
	a.mu.Lock()
	st := a.takeLocked(conversationID)
	result := &StreamResult{
		ConversationID: conversationID,
		Phase:          StreamErrored,
		Err:            NewStreamError(conversationID, message),
	}
	if st != nil {
		// Partial text is kept for display alongside the error.
		result.Text = st.text.String()
		result.ChunkCount = st.chunks
		result.Model = st.model
	}
	a.mu.Unlock()
	a.emit(result)
}

func (a *Assembler) expire(conversationID string, st *streamState) {
	a.mu.Lock()
	current, ok := a.streams[conversationID]
	if !ok || current != st {
		a.mu.Unlock()
		return
	}
	delete(a.streams, conversationID)
	result := &StreamResult{
		ConversationID: conversationID,
		Phase:          StreamErrored,
		Text:           st.text.String(),
		ChunkCount:     st.chunks,
		Model:          st.model,
		Err:            NewStreamTimeoutError(conversationID, a.timeout),
	}
	a.mu.Unlock()
	a.logger.Warnf("Stream %s timed out after %s of silence", conversationID, a.timeout)
	a.emit(result)
}

func (a *Assembler) takeLocked(conversationID string) *streamState {
	st, ok := a.streams[conversationID]
	if !ok {
		return nil
	}
	if st.timer != nil {
		st.timer.Stop()
	}
	delete(a.streams, conversationID)
	return st
}

func (a *Assembler) emit(result *StreamResult) {
	a.mu.Lock()
	handlers := make([]StreamHandler, 0, len(a.order))
	for _, id := range a.order {
		handlers = append(handlers, a.handlers[id])
	}
	a.mu.Unlock()

	for _, handler := range handlers {
		a.invoke(handler, result)
	}
}

func (a *Assembler) invoke(handler StreamHandler, result *StreamResult) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Errorf("Stream handler panicked for %s: %v", result.ConversationID, rec)
		}
	}()
	handler(result)
}
