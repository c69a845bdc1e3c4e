// Package session keeps the authenticated identity of the storefront user.
//
// The persisted blob under store.KeyAuthStorage carries only the user and the
// authenticated flag. Tokens live in their own raw slots and are read back on
// every request, so a missing token slot never breaks a restored session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/logging"
	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/example/ec-storefront/internal/state"
)

// ErrMissingUser is returned by SetAuth when no user is provided
var ErrMissingUser = errors.New("session requires a user")

// Snapshot is the observable session state
type Snapshot struct {
	User            *readmodel.User `json:"user"`
	IsAuthenticated bool            `json:"isAuthenticated"`
}

// Store is the session store. All methods are safe for concurrent use.
// Observers run while the store holds its writer lock and must not mutate it.
type Store struct {
	// writeMu orders whole mutations: token slots, blob and notify.
	writeMu   sync.Mutex
	mu        sync.RWMutex
	kv        store.KV
	user      *readmodel.User
	observers state.Observers[Snapshot]
	log       *logrus.Entry
}

// NewStore creates an empty, unauthenticated session backed by kv
func NewStore(kv store.KV) *Store {
	return &Store{
		kv:  kv,
		log: logging.Component("session-store"),
	}
}

// Load restores the persisted blob. A missing blob leaves the session empty;
// a corrupt one is reported and also leaves it empty.
func (s *Store) Load(ctx context.Context) error {
	raw, found, err := s.kv.Get(ctx, store.KeyAuthStorage)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if !found {
		return nil
	}

	persisted, err := state.DecodeEnvelope[Snapshot](raw)
	if err != nil {
		s.log.WithError(err).Warn("discarding unreadable session blob")
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.user = cloneUser(persisted.User)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if persisted.IsAuthenticated != snap.IsAuthenticated {
		s.log.Warn("persisted authenticated flag disagreed with user, using user")
	}

	s.observers.Notify(snap)
	return nil
}

// SetAuth stores both tokens and marks the session authenticated as user.
// Token slots are written first; if either write fails the session is unchanged.
func (s *Store) SetAuth(ctx context.Context, user readmodel.User, accessToken, refreshToken string) error {
	if user.Email == "" && user.ID == 0 {
		return ErrMissingUser
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.writeTokens(ctx, accessToken, refreshToken); err != nil {
		return err
	}

	s.mu.Lock()
	u := user
	s.user = &u
	snap := s.snapshotLocked()
	s.mu.Unlock()

	err := s.persist(ctx, snap)
	s.observers.Notify(snap)

	s.log.WithField("user_id", user.ID).Info("session started")
	return err
}

// UpdateTokens replaces the stored tokens without touching the user
func (s *Store) UpdateTokens(ctx context.Context, accessToken, refreshToken string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writeTokens(ctx, accessToken, refreshToken)
}

// Logout clears the session and removes both token slots. It always ends in
// the unauthenticated state, even when storage calls fail; those failures
// are returned joined.
func (s *Store) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.user = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	var errs []error
	if err := s.kv.Remove(ctx, store.KeyAccessToken); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove access token: %w", err))
	}
	if err := s.kv.Remove(ctx, store.KeyRefreshToken); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove refresh token: %w", err))
	}
	if err := s.persist(ctx, snap); err != nil {
		errs = append(errs, err)
	}

	s.observers.Notify(snap)
	s.log.Info("session ended")
	return errors.Join(errs...)
}

// AccessToken reads the access token slot. Storage errors read as no token.
func (s *Store) AccessToken(ctx context.Context) string {
	return s.readToken(ctx, store.KeyAccessToken)
}

// RefreshToken reads the refresh token slot
func (s *Store) RefreshToken(ctx context.Context) string {
	return s.readToken(ctx, store.KeyRefreshToken)
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// User returns the current user, if any
func (s *Store) User() (readmodel.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return readmodel.User{}, false
	}
	return *s.user, true
}

// IsAuthenticated reports whether a user is present
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// IsAdmin reports whether the current user carries the admin role
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin()
}

// Subscribe registers fn for every state change
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.observers.Subscribe(fn)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{User: cloneUser(s.user), IsAuthenticated: s.user != nil}
}

func (s *Store) persist(ctx context.Context, snap Snapshot) error {
	raw, err := state.EncodeEnvelope(snap)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, store.KeyAuthStorage, raw); err != nil {
		s.log.WithError(err).Error("failed to persist session")
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (s *Store) writeTokens(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.kv.Set(ctx, store.KeyAccessToken, accessToken); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if err := s.kv.Set(ctx, store.KeyRefreshToken, refreshToken); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (s *Store) readToken(ctx context.Context, key string) string {
	value, found, err := s.kv.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("token slot unreadable")
		return ""
	}
	if !found {
		return ""
	}
	return value
}

func cloneUser(u *readmodel.User) *readmodel.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
