package vedika

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectResults(a *Assembler) *[]*StreamResult {
	results := &[]*StreamResult{}
	a.AddStreamHandler(func(res *StreamResult) {
		*results = append(*results, res)
	})
	return results
}

func TestAssemblerConcatenatesChunksInArrivalOrder(t *testing.T) {
	a := NewAssembler(0, nil)
	results := collectResults(a)

	a.HandleFrame(&StreamStart{ConversationID: "c1", Model: "vedika-fast"})
	a.HandleFrame(&ContentChunk{ConversationID: "c1", Content: "Hel", ChunkID: 0})
	a.HandleFrame(&ContentChunk{ConversationID: "c1", Content: "lo", ChunkID: 1})
	a.HandleFrame(&StreamCompleted{ConversationID: "c1", FullResponse: ""})

	require.Len(t, *results, 1)
	res := (*results)[0]
	assert.Equal(t, StreamComplete, res.Phase)
	assert.Equal(t, "Hello", res.Text)
	assert.Equal(t, 2, res.ChunkCount)
	assert.Equal(t, "vedika-fast", res.Model)
}

func TestAssemblerServerFullResponseWins(t *testing.T) {
	a := NewAssembler(0, nil)
	results := collectResults(a)

	a.HandleFrame(&StreamStart{ConversationID: "c1"})
	a.HandleFrame(&ContentChunk{ConversationID: "c1", Content: "Hel"})
	// A chunk was lost locally; the server's authoritative text still wins.
	a.HandleFrame(&StreamCompleted{ConversationID: "c1", FullResponse: "Hello there"})

	require.Len(t, *results, 1)
	assert.Equal(t, "Hello there", (*results)[0].Text)
}

func TestAssemblerErrorKeepsPartialText(t *testing.T) {
	a := NewAssembler(0, nil)
	results := collectResults(a)

	a.HandleFrame(&StreamStart{ConversationID: "c1"})
	a.HandleFrame(&ContentChunk{ConversationID: "c1", Content: "partial "})
	a.HandleFrame(&ContentChunk{ConversationID: "c1", Content: "answer"})
	a.HandleFrame(&StreamFailed{ConversationID: "c1", ErrorMessage: "model crashed"})

	require.Len(t, *results, 1)
	res := (*results)[0]
	assert.Equal(t, StreamErrored, res.Phase)
	assert.Equal(t, "partial answer", res.Text)
	require.NotNil(t, res.Err)
	assert.Equal(t, ErrCodeStream, res.Err.Code)
}

func TestAssemblerIndependentConversations(t *testing.T) {
	a := NewAssembler(0, nil)
	results := collectResults(a)

	a.HandleFrame(&StreamStart{ConversationID: "c1"})
	a.HandleFrame(&StreamStart{ConversationID: "c2"})
	a.HandleFrame(&ContentChunk{ConversationID: "c1", Content: "one"})
	a.HandleFrame(&ContentChunk{ConversationID: "c2", Content: "two"})

	text, ok := a.Text("c1")
	require.True(t, ok)
	assert.Equal(t, "one", text)

	a.HandleFrame(&StreamCompleted{ConversationID: "c2", FullResponse: ""})

	require.Len(t, *results, 1)
	assert.Equal(t, "c2", (*results)[0].ConversationID)
	assert.Equal(t, "two", (*results)[0].Text)

	// c1 is still in flight.
	_, ok = a.Text("c1")
	assert.True(t, ok)
}

func TestAssemblerChunkWithoutStartTolerated(t *testing.T) {
	a := NewAssembler(0, nil)
	results := collectResults(a)

	a.HandleFrame(&ContentChunk{ConversationID: "c1", Content: "hi"})
	a.HandleFrame(&StreamCompleted{ConversationID: "c1", FullResponse: ""})

	require.Len(t, *results, 1)
	assert.Equal(t, "hi", (*results)[0].Text)
}

func TestAssemblerInactivityTimeout(t *testing.T) {
	a := NewAssembler(30*time.Millisecond, nil)
	done := make(chan *StreamResult, 1)
	a.AddStreamHandler(func(res *StreamResult) { done <- res })

	a.HandleFrame(&StreamStart{ConversationID: "c1"})
	a.HandleFrame(&ContentChunk{ConversationID: "c1", Content: "stuck "})

	select {
	case res := <-done:
		assert.Equal(t, StreamErrored, res.Phase)
		assert.Equal(t, "stuck ", res.Text)
		require.NotNil(t, res.Err)
		assert.Equal(t, ErrCodeStreamTimeout, res.Err.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a stream timeout result")
	}

	_, ok := a.Text("c1")
	assert.False(t, ok)
}

func TestAssemblerChunksResetInactivityTimer(t *testing.T) {
	a := NewAssembler(60*time.Millisecond, nil)
	done := make(chan *StreamResult, 1)
	a.AddStreamHandler(func(res *StreamResult) { done <- res })

	a.HandleFrame(&StreamStart{ConversationID: "c1"})
	for i := 0; i < 4; i++ {
		time.Sleep(25 * time.Millisecond)
		a.HandleFrame(&ContentChunk{ConversationID: "c1", Content: "x"})
	}
	a.HandleFrame(&StreamCompleted{ConversationID: "c1", FullResponse: ""})

	select {
	case res := <-done:
		assert.Equal(t, StreamComplete, res.Phase)
		assert.Equal(t, "xxxx", res.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("expected completion")
	}
}

func TestAssemblerAbandonEmitsNothing(t *testing.T) {
	a := NewAssembler(20*time.Millisecond, nil)
	results := collectResults(a)

	a.HandleFrame(&StreamStart{ConversationID: "c1"})
	a.Abandon("c1")

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, *results)
	_, ok := a.Text("c1")
	assert.False(t, ok)
}

func TestAssemblerHandlerUnsubscribe(t *testing.T) {
	a := NewAssembler(0, nil)

	var got int
	remove := a.AddStreamHandler(func(*StreamResult) { got++ })

	a.HandleFrame(&StreamStart{ConversationID: "c1"})
	a.HandleFrame(&StreamCompleted{ConversationID: "c1", FullResponse: "x"})
	assert.Equal(t, 1, got)

	remove()
	a.HandleFrame(&StreamStart{ConversationID: "c2"})
	a.HandleFrame(&StreamCompleted{ConversationID: "c2", FullResponse: "y"})
	assert.Equal(t, 1, got)
}
