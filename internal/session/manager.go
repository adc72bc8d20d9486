package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/DonShan/GeoTask/pkg/codec"
	"github.com/DonShan/GeoTask/pkg/events"
	"github.com/DonShan/GeoTask/pkg/kvstore"
)

// Storage keys owned by the manager. The session blob is single-writer; the
// device ID is written once and reused across sessions.
const (
	sessionKey = "geotask.session"
	deviceKey  = "geotask.device_id"
)

// Manager drives the session state machine. All transitions are serialized
// under one mutex; observers are notified after the transition commits, in
// the order transitions occurred.
type Manager struct {
	api   AuthAPI
	store kvstore.Store
	log   *slog.Logger
	now   func() time.Time

	mu           sync.Mutex
	state        State
	session      *Session
	refreshing   bool
	refreshTimer *time.Timer

	sf singleflight.Group

	stateEvents      *events.Emitter[State]
	refreshingEvents *events.Emitter[bool]
}

// Option customizes a Manager.
type Option func(*Manager)

// WithNow injects the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager restores session state from the store: a valid persisted
// session yields StateAuthenticated (with a proactive refresh scheduled when
// the token is close to expiry), an expired one yields StateExpired and
// clears the blob, an absent or unreadable one yields StateUnauthenticated.
func NewManager(ctx context.Context, api AuthAPI, store kvstore.Store, log *slog.Logger, opts ...Option) (*Manager, error) {
	m := &Manager{
		api:              api,
		store:            store,
		log:              log,
		now:              time.Now,
		state:            StateUnauthenticated,
		stateEvents:      events.NewEmitter[State](),
		refreshingEvents: events.NewEmitter[bool](),
	}
	for _, opt := range opts {
		opt(m)
	}

	blob, err := store.Get(ctx, sessionKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}

	var restored Session
	if err := codec.Decode(blob, &restored); err != nil {
		// A corrupt blob is unrecoverable; start over unauthenticated.
		log.Warn("discarding unreadable persisted session", slog.String("error", err.Error()))
		_ = store.Delete(ctx, sessionKey)
		return m, nil
	}

	if restored.Token.isExpiredAt(m.now()) {
		_ = store.Delete(ctx, sessionKey)
		m.state = StateExpired
		return m, nil
	}

	m.session = &restored
	m.state = StateAuthenticated
	m.armRefreshTimer(restored.Token)
	return m, nil
}

// OnStateChange registers an observer for state transitions. Returns the
// unsubscribe function. Callbacks run synchronously on the goroutine that
// committed the transition and should return quickly.
func (m *Manager) OnStateChange(fn func(State)) func() {
	return m.stateEvents.Subscribe(fn)
}

// OnRefreshing registers an observer for the in-flight-refresh signal.
func (m *Manager) OnRefreshing(fn func(bool)) func() {
	return m.refreshingEvents.Subscribe(fn)
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated reports whether a session with a valid token is active.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// IsRefreshing reports whether a token refresh is in flight.
func (m *Manager) IsRefreshing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshing
}

// CurrentUser returns the session's user, if any.
func (m *Manager) CurrentUser() (User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return User{}, false
	}
	return m.session.User, true
}

// CurrentSession returns a copy of the active session, if any.
func (m *Manager) CurrentSession() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// AuthorizationHeader returns "Bearer <accessToken>" for the current
// session, or empty when unauthenticated.
func (m *Manager) AuthorizationHeader() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.Token.header()
}

// ValidToken returns the current access token when usable. The contract is
// non-blocking: an expired token triggers a refresh and reports not-ready;
// callers poll again or fail their in-flight request. An expiring-soon token
// is still returned while a background refresh is kicked off.
func (m *Manager) ValidToken() (string, bool) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return "", false
	}
	token := m.session.Token
	m.mu.Unlock()

	now := m.now()
	if token.isExpiredAt(now) {
		m.ScheduleRefresh()
		return "", false
	}
	if token.isExpiringSoonAt(now) {
		m.ScheduleRefresh()
	}
	return token.AccessToken, true
}

// ScheduleRefresh queues an asynchronous token refresh. It never blocks;
// concurrent demands collapse into the single in-flight refresh.
func (m *Manager) ScheduleRefresh() {
	go func() {
		_ = m.Refresh(context.Background())
	}()
}

// Login authenticates with credentials. On success the new session is
// persisted before the manager reports StateAuthenticated; on failure the
// state returns to StateUnauthenticated and storage is untouched.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	return m.authenticate(ctx, func() (User, Token, error) {
		return m.api.Login(ctx, creds)
	})
}

// Register creates an account and opens a session with the same semantics as
// Login.
func (m *Manager) Register(ctx context.Context, reg Registration) error {
	return m.authenticate(ctx, func() (User, Token, error) {
		return m.api.Register(ctx, reg)
	})
}

func (m *Manager) authenticate(ctx context.Context, call func() (User, Token, error)) error {
	m.setState(StateLoading)

	user, token, err := call()
	if err != nil {
		m.setState(StateUnauthenticated)
		return err
	}

	sess := Session{
		User:        user,
		Token:       token,
		LastLoginAt: codec.At(m.now()),
		DeviceID:    m.deviceID(ctx),
	}
	if err := m.persist(ctx, sess); err != nil {
		m.setState(StateUnauthenticated)
		return err
	}

	m.mu.Lock()
	m.session = &sess
	m.state = StateAuthenticated
	m.armRefreshTimer(token)
	m.mu.Unlock()
	m.stateEvents.Emit(StateAuthenticated)
	return nil
}

// Logout closes the session. The remote call is best effort: its failure is
// logged, never fatal, and local session data is cleared regardless.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		m.log.Warn("remote logout failed", slog.String("error", err.Error()))
	}

	m.mu.Lock()
	m.stopRefreshTimer()
	m.session = nil
	m.state = StateUnauthenticated
	m.mu.Unlock()

	if err := m.store.Delete(ctx, sessionKey); err != nil {
		m.log.Warn("clearing persisted session failed", slog.String("error", err.Error()))
	}
	m.stateEvents.Emit(StateUnauthenticated)
}

// Refresh rotates the token pair. Single-flight: concurrent callers share
// one outbound refresh call and its outcome. A failed refresh is terminal
// for the session: state becomes StateExpired and persisted data is cleared.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.sf.Do("refresh", func() (any, error) {
		return nil, m.doRefresh(ctx)
	})
	return err
}

func (m *Manager) doRefresh(ctx context.Context) error {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return errors.New("session: no active session to refresh")
	}
	current := *m.session
	m.refreshing = true
	m.mu.Unlock()
	m.refreshingEvents.Emit(true)

	token, err := m.api.Refresh(ctx, current.Token.RefreshToken)
	if err != nil {
		m.log.Warn("token refresh failed, expiring session", slog.String("error", err.Error()))
		m.mu.Lock()
		m.stopRefreshTimer()
		m.session = nil
		m.state = StateExpired
		m.refreshing = false
		m.mu.Unlock()
		if delErr := m.store.Delete(ctx, sessionKey); delErr != nil {
			m.log.Warn("clearing persisted session failed", slog.String("error", delErr.Error()))
		}
		m.refreshingEvents.Emit(false)
		m.stateEvents.Emit(StateExpired)
		return err
	}

	// Same user, same login instant, new token pair.
	next := current
	next.Token = token

	if err := m.persist(ctx, next); err != nil {
		m.mu.Lock()
		m.refreshing = false
		m.mu.Unlock()
		m.refreshingEvents.Emit(false)
		return err
	}

	m.mu.Lock()
	m.session = &next
	m.state = StateAuthenticated
	m.refreshing = false
	m.armRefreshTimer(token)
	m.mu.Unlock()
	m.refreshingEvents.Emit(false)
	m.stateEvents.Emit(StateAuthenticated)
	return nil
}

// Close stops the refresh timer. The manager is unusable afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopRefreshTimer()
}

// persist writes the session blob through to the store. The in-memory copy
// only becomes authoritative after the write succeeds.
func (m *Manager) persist(ctx context.Context, sess Session) error {
	blob, err := codec.Encode(sess)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, sessionKey, blob)
}

// deviceID returns the stable per-install device identifier, minting one on
// first use.
func (m *Manager) deviceID(ctx context.Context) string {
	if existing, err := m.store.Get(ctx, deviceKey); err == nil && len(existing) > 0 {
		return string(existing)
	}
	id := uuid.New().String()
	if err := m.store.Set(ctx, deviceKey, []byte(id)); err != nil {
		m.log.Warn("persisting device id failed", slog.String("error", err.Error()))
	}
	return id
}

// setState commits a transition and notifies observers.
func (m *Manager) setState(s State) {
	m.mu.Lock()
	changed := m.state != s
	m.state = s
	m.mu.Unlock()
	if changed {
		m.stateEvents.Emit(s)
	}
}

// armRefreshTimer schedules the next refresh for expiry minus the threshold.
// Caller must hold m.mu.
func (m *Manager) armRefreshTimer(token Token) {
	m.stopRefreshTimer()
	delay := token.ExpiresAt.Sub(m.now()) - RefreshThreshold
	if delay < 0 {
		delay = 0
	}
	m.refreshTimer = time.AfterFunc(delay, func() {
		_ = m.Refresh(context.Background())
	})
}

// stopRefreshTimer cancels any pending refresh. Caller must hold m.mu.
func (m *Manager) stopRefreshTimer() {
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
}
