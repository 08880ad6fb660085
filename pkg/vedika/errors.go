package vedika

import (
	"fmt"
	"time"
)

// Error codes as constants
const (
	ErrCodeConnectionFailed  = "CONNECTION_FAILED"
	ErrCodeConnectionTimeout = "CONNECTION_TIMEOUT"
	ErrCodeMaxReconnect      = "MAX_RECONNECT_ATTEMPTS_EXCEEDED"
	ErrCodeSessionValidation = "SESSION_VALIDATION_FAILED"
	ErrCodeSessionCreation   = "SESSION_CREATION_FAILED"
	ErrCodeStream            = "STREAM_ERROR"
	ErrCodeStreamTimeout     = "STREAM_TIMEOUT"
	ErrCodeMalformedFrame    = "MALFORMED_FRAME"
	ErrCodeWebSocket         = "WEBSOCKET_ERROR"
	ErrCodeCreditsExhausted  = "CREDITS_EXHAUSTED"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeIdentityStore     = "IDENTITY_STORE_ERROR"
	ErrCodeJSONParse         = "JSON_PARSE_ERROR"
	ErrCodeUnknown           = "UNKNOWN_ERROR"
)

// VedikaError is a coded error with optional structured details.
type VedikaError struct {
	Message   string
	Code      string
	Timestamp time.Time
	Details   map[string]interface{}
	err       error
}

func (e *VedikaError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Code, e.err)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *VedikaError) Unwrap() error {
	return e.err
}

func NewVedikaError(message, code string) *VedikaError {
	return &VedikaError{
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func (e *VedikaError) AddDetail(key string, value interface{}) *VedikaError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *VedikaError) GetDetail(key string) (interface{}, bool) {
	if e.Details == nil {
		return nil, false
	}
	value, exists := e.Details[key]
	return value, exists
}

// Specific error creators with common codes
func NewConnectionTimeoutError(timeout time.Duration) *VedikaError {
	return NewVedikaError("connection did not open in time", ErrCodeConnectionTimeout).
		AddDetail("timeout", timeout.String())
}

func NewMaxReconnectError(attempts int) *VedikaError {
	return NewVedikaError("max reconnect attempts exceeded", ErrCodeMaxReconnect).
		AddDetail("attempts", attempts)
}

func NewSessionValidationError(message string) *VedikaError {
	return NewVedikaError(message, ErrCodeSessionValidation)
}

func NewSessionCreationError(message string) *VedikaError {
	return NewVedikaError(message, ErrCodeSessionCreation)
}

func NewStreamError(conversationID, message string) *VedikaError {
	return NewVedikaError(message, ErrCodeStream).AddDetail("conversation_id", conversationID)
}

func NewStreamTimeoutError(conversationID string, silence time.Duration) *VedikaError {
	return NewVedikaError("stream inactive, assuming it was dropped", ErrCodeStreamTimeout).
		AddDetail("conversation_id", conversationID).
		AddDetail("silence", silence.String())
}

func NewMalformedFrameError(message string) *VedikaError {
	return NewVedikaError(message, ErrCodeMalformedFrame)
}

func NewConfigError(message string) *VedikaError {
	return NewVedikaError(message, ErrCodeConfigInvalid)
}

// WrapError wraps any error as a VedikaError, preserving the cause for
// errors.Is / errors.As.
func WrapError(err error, code string) *VedikaError {
	if err == nil {
		return nil
	}
	if verr, ok := err.(*VedikaError); ok {
		return verr
	}
	return &VedikaError{
		Message:   err.Error(),
		Code:      code,
		Timestamp: time.Now(),
		err:       err,
	}
}

func IsErrorCode(err error, code string) bool {
	verr, ok := err.(*VedikaError)
	return ok && verr.Code == code
}

// IsRetryableError reports whether the operation may succeed if repeated.
func IsRetryableError(err *VedikaError) bool {
	if err == nil {
		return false
	}
	switch err.Code {
	case ErrCodeConnectionFailed, ErrCodeConnectionTimeout, ErrCodeWebSocket, ErrCodeStreamTimeout:
		return true
	}
	return false
}

// IsCriticalError reports whether the error requires user intervention rather
// than a retry.
func IsCriticalError(err *VedikaError) bool {
	if err == nil {
		return false
	}
	switch err.Code {
	case ErrCodeMaxReconnect, ErrCodeCreditsExhausted, ErrCodeConfigInvalid:
		return true
	}
	return false
}
