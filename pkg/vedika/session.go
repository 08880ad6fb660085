package vedika

import (
	"context"
	"sync"
	"time"
)

// sessionCall is the single shared in-flight validation. Concurrent callers
// of GetSession await it instead of issuing duplicate network calls.
type sessionCall struct {
	done    chan struct{}
	session *Session
	err     error
}

// SessionCache serves the anonymous session within a freshness window and
// deduplicates concurrent validation/creation requests. On transient failure
// it keeps the last known good values.
type SessionCache struct {
	api    *APIClient
	store  IdentityStore
	ttl    time.Duration
	logger *Logger

	mu        sync.Mutex
	session   *Session
	fetchedAt time.Time
	inflight  *sessionCall
}

func NewSessionCache(api *APIClient, store IdentityStore, ttl time.Duration, logger *Logger) *SessionCache {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	return &SessionCache{
		api:    api,
		store:  store,
		ttl:    ttl,
		logger: logger.WithComponent("session"),
	}
}

// GetSession returns the cached session while it is fresh, joins an in-flight
// validation when one exists, and otherwise validates or creates the session
// against the backend.
func (sc *SessionCache) GetSession(ctx context.Context) (*Session, error) {
	sc.mu.Lock()
	if sc.session != nil && time.Since(sc.fetchedAt) < sc.ttl {
		sess := *sc.session
		sc.mu.Unlock()
		return &sess, nil
	}
	if call := sc.inflight; call != nil {
		sc.mu.Unlock()
		select {
		case <-call.done:
			return call.session, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &sessionCall{done: make(chan struct{})}
	sc.inflight = call
	sc.mu.Unlock()

	sess, err := sc.fetch(ctx)

	sc.mu.Lock()
	if err == nil {
		copied := *sess
		sc.session = &copied
		sc.fetchedAt = time.Now()
	}
	sc.inflight = nil
	sc.mu.Unlock()

	call.session = sess
	call.err = err
	close(call.done)
	return sess, err
}

// Refresh clears the freshness window and revalidates unconditionally. Used
// after a message send to reconcile credit counts with server truth.
func (sc *SessionCache) Refresh(ctx context.Context) (*Session, error) {
	sc.mu.Lock()
	sc.fetchedAt = time.Time{}
	sc.mu.Unlock()
	return sc.GetSession(ctx)
}

// Current returns the last known session without touching the network.
func (sc *SessionCache) Current() *Session {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.session == nil {
		return nil
	}
	sess := *sc.session
	return &sess
}

// UpdateUsageOptimistically decrements the cached remaining credits without a
// network round-trip so the UI stays responsive. Remaining never goes below
// zero; a later Refresh or server frame overwrites the optimistic value.
func (sc *SessionCache) UpdateUsageOptimistically(delta int) {
	if delta <= 0 {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.session == nil {
		return
	}
	sc.session.UsedCredits += delta
	sc.session.RemainingCredits -= delta
	if sc.session.RemainingCredits < 0 {
		sc.session.RemainingCredits = 0
	}
}

// ReconcileCredits applies server-reported counts. Server values always win
// over optimistic local deltas.
func (sc *SessionCache) ReconcileCredits(remaining, daily int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.session == nil {
		return
	}
	sc.session.RemainingCredits = remaining
	if daily > 0 {
		sc.session.DailyCredits = daily
	}
	if used := sc.session.DailyCredits - remaining; used >= 0 {
		sc.session.UsedCredits = used
	}
}

// Coins returns the cached credit balance as a snapshot.
func (sc *SessionCache) Coins() *CoinsSnapshot {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.session == nil {
		return nil
	}
	return &CoinsSnapshot{
		UsedCredits:      sc.session.UsedCredits,
		TotalCredits:     sc.session.DailyCredits,
		RemainingCredits: sc.session.RemainingCredits,
		LastUpdated:      sc.fetchedAt,
	}
}

// fetch validates the stored session id, creating a fresh session when it is
// absent, expired, or rejected. The persisted identity is only overwritten
// after the backend accepts it.
func (sc *SessionCache) fetch(ctx context.Context) (*Session, error) {
	identity, err := sc.store.Load()
	if err != nil {
		return nil, err
	}
	if identity.DeviceID == "" {
		identity.DeviceID = NewDeviceID()
		sc.logger.Infof("Minted device id %s", identity.DeviceID)
	}

	if identity.SessionValid(time.Now()) {
		ds, err := sc.api.ValidateDeviceSession(ctx, identity.DeviceID, identity.SessionID)
		if err != nil {
			if !IsErrorCode(err, ErrCodeSessionValidation) {
				// Transient network failure: surface it, keep cached identity.
				return nil, err
			}
			sc.logger.Warn("Session rejected by backend, creating a new one")
		} else {
			return sc.commit(identity, ds)
		}
	}

	ds, err := sc.api.CreateDeviceSession(ctx, identity.DeviceID)
	if err != nil {
		return nil, err
	}
	return sc.commit(identity, ds)
}

func (sc *SessionCache) commit(identity *Identity, ds *DeviceSession) (*Session, error) {
	identity.SessionID = ds.SessionID
	identity.ExpiresAt = ds.ExpiresAt
	if err := sc.store.Save(identity); err != nil {
		sc.logger.WithError(err).Warn("Failed to persist identity")
	}
	return &Session{
		DeviceID:         identity.DeviceID,
		SessionID:        ds.SessionID,
		ExpiresAt:        time.UnixMilli(ds.ExpiresAt),
		RemainingCredits: ds.CoinsRemaining,
		DailyCredits:     ds.DailyCredits,
		UsedCredits:      ds.UsedCredits,
	}, nil
}
