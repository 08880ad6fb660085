package vedika

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Identity is the anonymous device/session pair persisted across runs, the
// SDK's stand-in for the web client's local storage. The device id never
// expires; the session id carries a server-issued expiry.
type Identity struct {
	DeviceID  string `json:"device_id"`
	SessionID string `json:"session_id,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"` // unix milliseconds
}

// SessionValid reports whether the stored session id can still be presented
// to the backend. The expiry is checked locally before every use; when the
// stored timestamp is absent, the session id's JWT exp claim is consulted.
func (id *Identity) SessionValid(now time.Time) bool {
	if id.SessionID == "" {
		return false
	}
	if id.ExpiresAt > 0 {
		return now.UnixMilli() < id.ExpiresAt
	}
	return !jwtExpired(id.SessionID, now)
}

func jwtExpired(token string, now time.Time) bool {
	if strings.Count(token, ".") != 2 {
		// Opaque session id without an expiry hint: assume usable and let
		// server-side validation decide.
		return false
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	// A token without an exp claim is not treated as expired.
	return !claims.VerifyExpiresAt(now.Unix(), false)
}

// IdentityStore persists the device/session identity.
type IdentityStore interface {
	Load() (*Identity, error)
	Save(*Identity) error
}

// FileIdentityStore keeps the identity as JSON on disk.
type FileIdentityStore struct {
	path string
	mu   sync.Mutex
}

func NewFileIdentityStore(path string) *FileIdentityStore {
	return &FileIdentityStore{path: path}
}

// DefaultIdentityPath resolves the identity file under the user config dir.
func DefaultIdentityPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", WrapError(err, ErrCodeIdentityStore)
	}
	return filepath.Join(dir, "vedika", "identity.json"), nil
}

func (s *FileIdentityStore) Load() (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Identity{}, nil
	}
	if err != nil {
		return nil, WrapError(err, ErrCodeIdentityStore)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		// Corrupt state file: start over rather than wedge every call.
		return &Identity{}, nil
	}
	return &id, nil
}

func (s *FileIdentityStore) Save(id *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return WrapError(err, ErrCodeIdentityStore)
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return WrapError(err, ErrCodeJSONParse)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return WrapError(err, ErrCodeIdentityStore)
	}
	return nil
}

// NewDeviceID mints a stable device identifier.
func NewDeviceID() string {
	return "dev_" + uuid.NewString()
}
