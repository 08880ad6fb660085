package vedika

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIBaseURL = "https://api.vedika.ai"
	DefaultWsEndpoint = "wss://stream.vedika.ai/ws"
)

type Config struct {
	APIBaseURL           string            `json:"api_base_url"`
	WsEndpoint           string            `json:"ws_endpoint"`
	Headers              map[string]string `json:"headers,omitempty"`
	AutoConnect          bool              `json:"auto_connect"`
	MaxReconnectAttempts int               `json:"max_reconnect_attempts"`
	ReconnectDelay       time.Duration     `json:"reconnect_delay"`
	ReconnectMaxDelay    time.Duration     `json:"reconnect_max_delay"`
	SendTimeout          time.Duration     `json:"send_timeout"`
	SessionTTL           time.Duration     `json:"session_ttl"`
	StreamTimeout        time.Duration     `json:"stream_timeout"`
	ModelID              string            `json:"model_id,omitempty"`
	RequestType          string            `json:"request_type"`
	StateDir             string            `json:"state_dir,omitempty"`
	DebugLevel           string            `json:"debug_level"`
	DebugWebsocket       bool              `json:"debug_websocket"`
}

func NewConfig() *Config {
	c := &Config{
		APIBaseURL:           DefaultAPIBaseURL,
		WsEndpoint:           DefaultWsEndpoint,
		Headers:              make(map[string]string),
		AutoConnect:          false,
		MaxReconnectAttempts: 5,
		ReconnectDelay:       1 * time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		SendTimeout:          5 * time.Second,
		SessionTTL:           60 * time.Second,
		StreamTimeout:        60 * time.Second,
		RequestType:          "anonymous",
		DebugLevel:           "INFO",
	}

	c.loadFromEnv()

	return c
}

func (c *Config) loadFromEnv() {
	// Load .env if exists
	_ = godotenv.Load()

	if base := os.Getenv("VEDIKA_API_BASE_URL"); base != "" {
		c.APIBaseURL = base
	}
	if ws := os.Getenv("VEDIKA_WS_ENDPOINT"); ws != "" {
		c.WsEndpoint = ws
	}

	c.AutoConnect = os.Getenv("VEDIKA_AUTO_CONNECT") == "true"

	if maxReconnect := os.Getenv("VEDIKA_MAX_RECONNECT_ATTEMPTS"); maxReconnect != "" {
		if val, err := strconv.Atoi(maxReconnect); err == nil {
			c.MaxReconnectAttempts = val
		}
	}

	c.ReconnectDelay = envDuration("VEDIKA_RECONNECT_DELAY", c.ReconnectDelay)
	c.ReconnectMaxDelay = envDuration("VEDIKA_RECONNECT_MAX_DELAY", c.ReconnectMaxDelay)
	c.SendTimeout = envDuration("VEDIKA_SEND_TIMEOUT", c.SendTimeout)
	c.SessionTTL = envDuration("VEDIKA_SESSION_TTL", c.SessionTTL)
	c.StreamTimeout = envDuration("VEDIKA_STREAM_TIMEOUT", c.StreamTimeout)

	if model := os.Getenv("VEDIKA_MODEL_ID"); model != "" {
		c.ModelID = model
	}
	if dir := os.Getenv("VEDIKA_STATE_DIR"); dir != "" {
		c.StateDir = dir
	}
	if level := os.Getenv("VEDIKA_DEBUG_LEVEL"); level != "" {
		c.DebugLevel = level
	}

	c.DebugWebsocket = os.Getenv("VEDIKA_DEBUG_WEBSOCKET") == "true"
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	if val, err := time.ParseDuration(raw); err == nil && val > 0 {
		return val
	}
	return fallback
}

// Validate returns list of issues
func (c *Config) Validate() []string {
	issues := []string{}

	if !strings.HasPrefix(c.WsEndpoint, "ws") {
		issues = append(issues, "Invalid WebSocket endpoint format")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http") {
		issues = append(issues, "Invalid API base URL format")
	}

	if c.MaxReconnectAttempts < 1 {
		issues = append(issues, "Max reconnect attempts must be at least 1")
	}
	if c.ReconnectDelay <= 0 {
		issues = append(issues, "Reconnect delay must be positive")
	}
	if c.ReconnectMaxDelay < c.ReconnectDelay {
		issues = append(issues, "Reconnect max delay must not be below the initial delay")
	}
	if c.SendTimeout <= 0 {
		issues = append(issues, "Send timeout must be positive")
	}
	if c.SessionTTL <= 0 {
		issues = append(issues, "Session TTL must be positive")
	}

	validLevels := []string{"TRACE", "DEBUG", "INFO", "WARNING", "ERROR"}
	found := false
	for _, level := range validLevels {
		if level == strings.ToUpper(c.DebugLevel) {
			found = true
			break
		}
	}
	if !found {
		issues = append(issues, fmt.Sprintf("Invalid debug level: %s", c.DebugLevel))
	}

	if c.RequestType != "anonymous" && c.RequestType != "authenticated" {
		issues = append(issues, fmt.Sprintf("Invalid request type: %s", c.RequestType))
	}

	return issues
}

func (c *Config) PrintConfig() {
	fmt.Println("Vedika SDK Configuration")
	fmt.Println("==================================================")
	fmt.Printf("API Base URL: %s\n", c.APIBaseURL)
	fmt.Printf("WebSocket Endpoint: %s\n", c.WsEndpoint)
	fmt.Printf("Auto Connect: %t\n", c.AutoConnect)
	fmt.Printf("Max Reconnect Attempts: %d\n", c.MaxReconnectAttempts)
	fmt.Printf("Reconnect Delay: %s (cap %s)\n", c.ReconnectDelay, c.ReconnectMaxDelay)
	fmt.Printf("Send Timeout: %s\n", c.SendTimeout)
	fmt.Printf("Session TTL: %s\n", c.SessionTTL)
	fmt.Printf("Stream Timeout: %s\n", c.StreamTimeout)
	if c.ModelID != "" {
		fmt.Printf("Model ID: %s\n", c.ModelID)
	} else {
		fmt.Println("Model ID: server default")
	}
	fmt.Printf("Request Type: %s\n", c.RequestType)
	fmt.Printf("Debug Level: %s\n", c.DebugLevel)
	fmt.Printf("Debug WebSocket: %t\n", c.DebugWebsocket)
}
