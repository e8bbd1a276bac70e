package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	logx "github.com/tanpawarit/hotel-whatsapp-concierge/pkg/logger"
)

// Registry maps a user id to its Session. The in-memory map is the source of
// truth for a running process; an optional Store is consulted on miss and
// written through on save and clear.
//
// Callers serialise work on one user with Lock; the registry itself only
// guards its maps.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*keyLock

	store  Store
	now    func() time.Time
	seed   func(*Session)
	logger zerolog.Logger
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

type RegistryOption func(*Registry)

// WithStore backs the registry with a persistent Store.
func WithStore(store Store) RegistryOption {
	return func(r *Registry) {
		r.store = store
	}
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSeed runs fn on every freshly created session before it is stored.
func WithSeed(fn func(*Session)) RegistryOption {
	return func(r *Registry) {
		r.seed = fn
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*keyLock),
		now:      time.Now,
		logger:   logx.Component("session_registry"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Lock acquires the per-user mutex and returns its release func. Entries are
// reference counted and dropped once no goroutine holds or waits on them.
func (r *Registry) Lock(userID string) (unlock func()) {
	r.mu.Lock()
	l, ok := r.locks[userID]
	if !ok {
		l = &keyLock{}
		r.locks[userID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			r.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(r.locks, userID)
			}
			r.mu.Unlock()
		})
	}
}

// GetOrCreate returns a copy of the user's session, creating it on first
// use. Repeated calls without an intervening Save return equal copies.
func (r *Registry) GetOrCreate(ctx context.Context, userID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	sess, ok := r.sessions[userID]
	r.mu.Unlock()
	if ok {
		return sess.Clone(), nil
	}

	loaded := r.loadFromStore(ctx, userID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[userID]; ok {
		return sess.Clone(), nil
	}
	if loaded == nil {
		loaded = NewSession(userID, r.now())
		if r.seed != nil {
			r.seed(loaded)
		}
	}
	r.sessions[userID] = loaded
	return loaded.Clone(), nil
}

// Save replaces the user's conversation log and bumps its Version.
func (r *Registry) Save(ctx context.Context, userID string, msgs []*schema.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	sess, ok := r.sessions[userID]
	if !ok {
		sess = NewSession(userID, r.now())
		if r.seed != nil {
			r.seed(sess)
		}
		r.sessions[userID] = sess
	}
	sess.Log = append(make([]*schema.Message, 0, len(msgs)), msgs...)
	sess.Version++
	sess.Touch(r.now())
	snapshot := sess.Clone()
	r.mu.Unlock()

	r.saveToStore(ctx, snapshot)
	return nil
}

// SetUserInfo records a single user info field on an existing session.
func (r *Registry) SetUserInfo(userID, key string, value any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[userID]
	if !ok {
		return false
	}
	sess.EnsureMaps()
	sess.UserInfo[key] = value
	return true
}

// Clear removes the user's session. It reports whether a session existed.
func (r *Registry) Clear(ctx context.Context, userID string) (bool, error) {
	r.mu.Lock()
	_, existed := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	if r.store == nil || strings.TrimSpace(userID) == "" {
		return existed, nil
	}

	if !existed {
		if _, err := r.store.Load(ctx, userID); err == nil {
			existed = true
		}
	}
	if err := r.store.Delete(ctx, userID); err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("delete persisted session failed")
		return existed, err
	}
	return existed, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

func (r *Registry) loadFromStore(ctx context.Context, userID string) *Session {
	if r.store == nil || strings.TrimSpace(userID) == "" {
		return nil
	}
	sess, err := r.store.Load(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrStateNotFound) {
			r.logger.Warn().Err(err).Str("user_id", userID).Msg("load persisted session failed, starting fresh")
		}
		return nil
	}
	sess.EnsureMaps()
	return sess
}

func (r *Registry) saveToStore(ctx context.Context, sess *Session) {
	if r.store == nil || strings.TrimSpace(sess.UserID) == "" {
		return
	}
	if err := r.store.Save(ctx, sess); err != nil {
		r.logger.Warn().Err(err).
			Str("user_id", sess.UserID).
			Int64("version", sess.Version).
			Msg("persist session failed")
	}
}
