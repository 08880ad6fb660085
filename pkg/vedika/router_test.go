package vedika

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatchOrder(t *testing.T) {
	router := NewRouter(nil)

	var calls []string
	router.Subscribe(func(Frame) { calls = append(calls, "first") })
	router.Subscribe(func(Frame) { calls = append(calls, "second") })
	router.Subscribe(func(Frame) { calls = append(calls, "third") })

	router.Dispatch([]byte(`{"type":"stream_start","conversation_id":"c1"}`))

	assert.Equal(t, []string{"first", "second", "third"}, calls)
}

func TestRouterUnsubscribe(t *testing.T) {
	router := NewRouter(nil)

	var got int
	unsubscribe := router.Subscribe(func(Frame) { got++ })
	require.Equal(t, 1, router.SubscriberCount())

	router.Dispatch([]byte(`{"type":"stream_start","conversation_id":"c1"}`))
	assert.Equal(t, 1, got)

	unsubscribe()
	assert.Equal(t, 0, router.SubscriberCount())

	router.Dispatch([]byte(`{"type":"stream_start","conversation_id":"c1"}`))
	assert.Equal(t, 1, got)

	// Unsubscribing twice is harmless.
	unsubscribe()
}

func TestRouterHandlerPanicIsolated(t *testing.T) {
	router := NewRouter(nil)

	var after int
	router.Subscribe(func(Frame) { panic("subscriber bug") })
	router.Subscribe(func(Frame) { after++ })

	assert.NotPanics(t, func() {
		router.Dispatch([]byte(`{"type":"content_chunk","conversation_id":"c1","content":"x","chunk_id":0}`))
	})
	assert.Equal(t, 1, after)
}

func TestRouterDropsMalformedFrames(t *testing.T) {
	router := NewRouter(nil)

	var got int
	router.Subscribe(func(Frame) { got++ })

	router.Dispatch([]byte(`not json at all`))
	router.Dispatch([]byte(`{"conversation_id":"missing type"}`))

	assert.Equal(t, 0, got)
}

func TestRouterDeliversUnknownTypes(t *testing.T) {
	router := NewRouter(nil)

	var got Frame
	router.Subscribe(func(f Frame) { got = f })

	router.Dispatch([]byte(`{"type":"totally_new","conversation_id":"c1"}`))

	require.NotNil(t, got)
	assert.Equal(t, FrameType("totally_new"), got.FrameType())
}

func TestRouterBroadcastsRegardlessOfConversation(t *testing.T) {
	router := NewRouter(nil)

	var seen []string
	router.Subscribe(func(f Frame) { seen = append(seen, f.Conversation()) })

	router.Dispatch([]byte(`{"type":"content_chunk","conversation_id":"c1","content":"a","chunk_id":0}`))
	router.Dispatch([]byte(`{"type":"content_chunk","conversation_id":"c2","content":"b","chunk_id":0}`))

	assert.Equal(t, []string{"c1", "c2"}, seen)
}
