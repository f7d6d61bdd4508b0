// internal/domain/storefront/sessions.go
package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
	"github.com/hoodskool/hoodskool-backend/internal/pkg/metrics"
)

const guardReleaseTimeout = 5 * time.Second

var ErrSessionRequired = errors.New("storefront: session id required")

// SyncGuard marks a session/user pair as merged so a login transition
// merges the guest cart at most once.
type SyncGuard interface {
	// Acquire returns false when the pair was already marked
	Acquire(ctx context.Context, sessionID, userID string) (bool, error)
	Release(ctx context.Context, sessionID, userID string) error
}

// StorageFactory returns the guest storage of a session
type StorageFactory func(sessionID string) cart.LocalStorage

type session struct {
	id    string
	store *cart.Store

	// transition serializes login and logout handling for the session
	transition sync.Mutex
	lastSeen   time.Time

	mu     sync.Mutex
	userID string
}

func (s *session) user() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *session) setUser(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
}

// clearUser unsets the user if it is still userID
func (s *session) clearUser(userID string) {
	s.mu.Lock()
	if s.userID == userID {
		s.userID = ""
	}
	s.mu.Unlock()
}

// Sessions keeps one cart Store per storefront session.
//
// A Store is created and hydrated from guest storage on the first request
// of a session and closed after IdleTimeout without requests. The first
// authenticated request of a session merges the guest cart into the
// user's cart; an unauthenticated request after that resets it.
type Sessions struct {
	gateway cart.Gateway
	storage StorageFactory
	guard   SyncGuard
	idle    time.Duration
	logger  logrus.FieldLogger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessions creates an empty session registry
func NewSessions(gateway cart.Gateway, storage StorageFactory, guard SyncGuard, idle time.Duration, logger logrus.FieldLogger) *Sessions {
	return &Sessions{
		gateway:  gateway,
		storage:  storage,
		guard:    guard,
		idle:     idle,
		logger:   logger.WithField("component", "cart_sessions"),
		now:      time.Now,
		sessions: map[string]*session{},
	}
}

// Cart returns the Store of sessionID, running the login or logout
// transition first when userID differs from the session's current user.
// The returned user is the one operations should run as: it is empty when
// the login merge failed, so the request keeps acting on the guest cart.
func (s *Sessions) Cart(ctx context.Context, sessionID, userID string) (*cart.Store, string, error) {
	if sessionID == "" {
		return nil, "", ErrSessionRequired
	}

	sess := s.session(ctx, sessionID)

	sess.transition.Lock()
	defer sess.transition.Unlock()

	current := sess.user()
	switch {
	case userID != "" && current != userID:
		if current != "" {
			s.logoutLocked(ctx, sessionID, sess)
		}
		if _, err := s.mergeLocked(ctx, sessionID, userID, sess); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Guest cart merge did not finish before the request ended")
		}
	case userID == "" && current != "":
		s.logoutLocked(ctx, sessionID, sess)
	}

	return sess.store, sess.user(), nil
}

// MergeOnLogin merges the session's guest cart into userID's cart once per
// login transition. It reports whether a merge ran and succeeded.
func (s *Sessions) MergeOnLogin(ctx context.Context, sessionID, userID string) (*cart.Store, bool, error) {
	if sessionID == "" {
		return nil, false, ErrSessionRequired
	}
	if userID == "" {
		return nil, false, cart.ErrUserRequired
	}

	sess := s.session(ctx, sessionID)

	sess.transition.Lock()
	defer sess.transition.Unlock()

	current := sess.user()
	if current == userID {
		metrics.RecordMergeOnLogin("skipped")
		return sess.store, false, nil
	}
	if current != "" {
		s.logoutLocked(ctx, sessionID, sess)
	}

	merged, err := s.mergeLocked(ctx, sessionID, userID, sess)
	return sess.store, merged, err
}

// Logout drops the in-memory cart of a session and reloads the guest cart.
// Remote and guest storage are untouched.
func (s *Sessions) Logout(ctx context.Context, sessionID string) (*cart.Store, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	sess := s.session(ctx, sessionID)

	sess.transition.Lock()
	defer sess.transition.Unlock()

	s.logoutLocked(ctx, sessionID, sess)
	return sess.store, nil
}

// Sweep closes the stores of sessions idle for longer than the idle timeout
// and returns how many were evicted. The merge guard of an evicted
// signed-in session is released, so its next login merges again.
func (s *Sessions) Sweep() int {
	cutoff := s.now().Add(-s.idle)

	s.mu.Lock()
	var evicted []*session
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			evicted = append(evicted, sess)
			delete(s.sessions, id)
		}
	}
	metrics.CartSessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	for _, sess := range evicted {
		sess.store.Close()
		s.releaseEvicted(sess)
	}

	if len(evicted) > 0 {
		s.logger.WithField("evicted", len(evicted)).Debug("Evicted idle cart sessions")
	}
	return len(evicted)
}

// Run sweeps idle sessions every interval until ctx is done
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Close closes every store, letting queued operations finish
func (s *Sessions) Close() {
	s.mu.Lock()
	stores := make([]*cart.Store, 0, len(s.sessions))
	for id, sess := range s.sessions {
		stores = append(stores, sess.store)
		delete(s.sessions, id)
	}
	metrics.CartSessionsActive.Set(0)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, store := range stores {
		wg.Add(1)
		go func(store *cart.Store) {
			defer wg.Done()
			store.Close()
		}(store)
	}
	wg.Wait()

	s.logger.WithField("sessions", len(stores)).Info("Cart sessions closed")
}

// Len returns the number of live sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) session(ctx context.Context, sessionID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastSeen = now
		return sess
	}

	store := cart.NewStore(s.gateway, s.storage(sessionID), s.logger.WithField("session_id", sessionID))
	store.Hydrate(ctx)

	sess := &session{id: sessionID, store: store, lastSeen: now}
	s.sessions[sessionID] = sess
	metrics.CartSessionsActive.Set(float64(len(s.sessions)))
	return sess
}

// mergeLocked must be called with sess.transition held
func (s *Sessions) mergeLocked(ctx context.Context, sessionID, userID string, sess *session) (bool, error) {
	log := s.logger.WithFields(logrus.Fields{"session_id": sessionID, "user_id": userID})

	acquired, err := s.guard.Acquire(ctx, sessionID, userID)
	if err != nil {
		// Merging twice is safe: already merged items are filtered out.
		log.WithError(err).Warn("Cart sync guard unavailable, merging anyway")
		acquired = true
	}

	sess.setUser(userID)

	// Merge from the guest cart as stored, not from the in-memory items
	hydrated := sess.store.Hydrate(ctx)

	if !acquired {
		if err := hydrated.Wait(ctx); err != nil {
			return false, err
		}
		if len(sess.store.Snapshot().Items) == 0 {
			metrics.RecordMergeOnLogin("skipped")
			return false, sess.store.LoadCart(ctx, userID).Wait(ctx)
		}
		log.Info("Guest cart has items although already merged, merging again")
	}

	before := sess.store.Snapshot().Revision
	task := sess.store.SyncWithRemote(ctx, userID)

	settled := make(chan bool, 1)
	go func() {
		<-task.Done()
		settled <- s.settleMerge(sessionID, userID, sess, before)
	}()

	select {
	case merged := <-settled:
		return merged, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// settleMerge records the outcome of a finished sync. A failed sync
// releases the guard so the next request retries the merge.
func (s *Sessions) settleMerge(sessionID, userID string, sess *session, before uint64) bool {
	log := s.logger.WithFields(logrus.Fields{"session_id": sessionID, "user_id": userID})

	if sess.store.Snapshot().Revision > before {
		metrics.RecordMergeOnLogin("merged")
		log.Info("Guest cart merged on login")
		return true
	}

	metrics.RecordMergeOnLogin("failed")
	log.Warn("Guest cart merge failed, will retry on next request")

	ctx, cancel := context.WithTimeout(context.Background(), guardReleaseTimeout)
	defer cancel()
	if err := s.guard.Release(ctx, sessionID, userID); err != nil {
		log.WithError(err).Error("Failed to release cart sync guard")
	}

	sess.clearUser(userID)
	return false
}

// logoutLocked must be called with sess.transition held
func (s *Sessions) logoutLocked(ctx context.Context, sessionID string, sess *session) {
	userID := sess.user()
	sess.setUser("")

	sess.store.Reset(ctx)
	sess.store.Hydrate(ctx)

	if userID == "" {
		return
	}

	if err := s.guard.Release(ctx, sessionID, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to release cart sync guard on logout")
	}
	s.logger.WithFields(logrus.Fields{"session_id": sessionID, "user_id": userID}).Debug("Cart session logged out")
}

func (s *Sessions) releaseEvicted(sess *session) {
	userID := sess.user()
	if userID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), guardReleaseTimeout)
	defer cancel()
	if err := s.guard.Release(ctx, sess.id, userID); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"session_id": sess.id, "user_id": userID}).Warn("Failed to release cart sync guard of evicted session")
	}
}
