// Package vedika provides a Go client SDK for the Vedika AI chat backend:
// streaming chat over a single auto-reconnecting WebSocket, anonymous
// device/session identity, and credit tracking.
//
// # Overview
//
// The SDK is built from four cooperating pieces:
//   - Connection: one WebSocket per client with exponential-backoff
//     reconnection and an explicit state machine
//   - Router: broadcast fan-out of decoded frames to subscribers
//   - SessionCache: single-flight session validation with a freshness window
//     and optimistic credit accounting
//   - Assembler: per-conversation accumulation of streamed chunks into a
//     final response
//
// # Quick Start
//
//	cfg := vedika.NewConfig()
//	client, err := vedika.NewClient(cfg, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.OnFrame(vedika.NewChunkHandler("", func(content string) {
//		fmt.Print(content)
//	}))
//	client.OnStream(func(res *vedika.StreamResult) {
//		fmt.Printf("\n[%s] %d chunks\n", res.Phase, res.ChunkCount)
//	})
//
//	if err := client.SendChat(context.Background(), "hello", ""); err != nil {
//		log.Fatal(err)
//	}
//
// # Configuration
//
// Config loads defaults from the environment (VEDIKA_API_BASE_URL,
// VEDIKA_WS_ENDPOINT, VEDIKA_MAX_RECONNECT_ATTEMPTS, ...) with a .env file
// honored when present:
//
//	cfg := vedika.NewConfig()
//	cfg.AutoConnect = true
//	cfg.ModelID = "vedika-fast"
//
// # Connection lifecycle
//
// Connect is idempotent and concurrent callers share one dial attempt. An
// unexpected closure reconnects with delays of 1s, 2s, 4s, ... capped at 30s
// for at most five attempts; after that the connection reports given_up and
// stays down until Connect is called again. Send dials on demand and fails
// with CONNECTION_TIMEOUT if no connection opens within the send timeout.
//
// # Frames
//
// Inbound messages decode into typed frames discriminated by their "type"
// field: StreamStart, ContentChunk, StreamCompleted, StreamFailed,
// CreditsInfo, CreditsExhausted. Unrecognized types arrive as UnknownFrame
// so new server events are observable before the SDK learns about them.
// Malformed frames are dropped and logged, never delivered.
//
// # Credits
//
// Sending a message burns one credit optimistically so UIs stay responsive;
// credits_info frames and RefreshSession reconcile against server truth,
// which always wins.
//
// # Thread Safety
//
// All client operations are safe for concurrent use. Frame subscribers run
// synchronously in registration order and a panic in one subscriber does not
// affect the others.
//
// # Dependencies
//
// The SDK depends on:
//   - github.com/gorilla/websocket: WebSocket client
//   - github.com/go-resty/resty/v2: REST client
//   - github.com/rs/zerolog: structured logging
//   - github.com/spf13/cobra: CLI framework
//   - github.com/golang-jwt/jwt/v4: session token expiry checks
//   - github.com/google/uuid: device identifiers
//   - github.com/joho/godotenv: environment variables
package vedika
