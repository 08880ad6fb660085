package vedika

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameStreamStart(t *testing.T) {
	frame, err := ParseFrame([]byte(`{"type":"stream_start","conversation_id":"c1","model":"vedika-fast","timestamp":1700000000}`))
	require.NoError(t, err)

	start, ok := frame.(*StreamStart)
	require.True(t, ok)
	assert.Equal(t, FrameStreamStart, frame.FrameType())
	assert.Equal(t, "c1", frame.Conversation())
	assert.Equal(t, "vedika-fast", start.Model)
}

func TestParseFrameContentChunk(t *testing.T) {
	frame, err := ParseFrame([]byte(`{"type":"content_chunk","conversation_id":"c1","content":"Hel","chunk_id":0}`))
	require.NoError(t, err)

	chunk, ok := frame.(*ContentChunk)
	require.True(t, ok)
	assert.Equal(t, "Hel", chunk.Content)
	assert.Equal(t, 0, chunk.ChunkID)
}

func TestParseFrameStreamComplete(t *testing.T) {
	frame, err := ParseFrame([]byte(`{"type":"stream_complete","conversation_id":"c1","full_response":"Hello","total_chunks":2,"tokens":3,"credits":41}`))
	require.NoError(t, err)

	done, ok := frame.(*StreamCompleted)
	require.True(t, ok)
	assert.Equal(t, "Hello", done.FullResponse)
	assert.Equal(t, 2, done.TotalChunks)
	require.NotNil(t, done.Credits)
	assert.Equal(t, 41, *done.Credits)
}

func TestParseFrameStreamError(t *testing.T) {
	frame, err := ParseFrame([]byte(`{"type":"stream_error","conversation_id":"c1","error":"model unavailable"}`))
	require.NoError(t, err)

	failed, ok := frame.(*StreamFailed)
	require.True(t, ok)
	assert.Equal(t, "model unavailable", failed.ErrorMessage)
}

func TestParseFrameBareErrorAlias(t *testing.T) {
	frame, err := ParseFrame([]byte(`{"type":"error","conversation_id":"c2","error":"boom"}`))
	require.NoError(t, err)

	failed, ok := frame.(*StreamFailed)
	require.True(t, ok)
	assert.Equal(t, "boom", failed.ErrorMessage)
	assert.Equal(t, "c2", failed.Conversation())
}

func TestParseFrameCredits(t *testing.T) {
	frame, err := ParseFrame([]byte(`{"type":"credits_info","vedika_coins_remaining":7,"daily_credits":50,"message":"ok"}`))
	require.NoError(t, err)

	info, ok := frame.(*CreditsInfo)
	require.True(t, ok)
	assert.Equal(t, 7, info.CoinsRemaining)
	assert.Equal(t, 50, info.DailyCredits)

	frame, err = ParseFrame([]byte(`{"type":"credits_exhausted","message":"come back tomorrow","action_required":"upgrade"}`))
	require.NoError(t, err)

	exhausted, ok := frame.(*CreditsExhausted)
	require.True(t, ok)
	assert.Equal(t, "upgrade", exhausted.ActionRequired)
}

func TestParseFrameUnknownTypeStillDelivered(t *testing.T) {
	raw := []byte(`{"type":"server_hint","conversation_id":"c9","payload":{"x":1}}`)
	frame, err := ParseFrame(raw)
	require.NoError(t, err)

	unknown, ok := frame.(*UnknownFrame)
	require.True(t, ok)
	assert.Equal(t, FrameType("server_hint"), unknown.FrameType())
	assert.Equal(t, "c9", unknown.Conversation())
	assert.JSONEq(t, string(raw), string(unknown.Raw))
}

func TestParseFrameMalformed(t *testing.T) {
	cases := map[string]string{
		"invalid json":  `{"type":`,
		"no type":       `{"conversation_id":"c1"}`,
		"not an object": `[1,2,3]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFrame([]byte(raw))
			require.Error(t, err)
			assert.True(t, IsErrorCode(err, ErrCodeMalformedFrame))
		})
	}
}

func TestNewChatRequest(t *testing.T) {
	sess := &Session{DeviceID: "dev_1", SessionID: "sess_1"}
	req := NewChatRequest(sess, "hi", "c1", "anonymous", "vedika-fast")

	assert.Equal(t, "stream_chat", req.RouteKey)
	assert.Equal(t, "dev_1", req.DeviceID)
	assert.Equal(t, "sess_1", req.SessionID)
	assert.Equal(t, "hi", req.Message)
	assert.Equal(t, "c1", req.ConversationID)
	assert.Equal(t, "anonymous", req.RequestType)
	assert.Equal(t, "vedika-fast", req.ModelID)
}
