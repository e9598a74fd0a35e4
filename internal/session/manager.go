package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medtrackpro/medtrack/internal/drone"
	apperrors "github.com/medtrackpro/medtrack/internal/errors"
	"github.com/medtrackpro/medtrack/internal/tracker"
)

const badgerKeyPrefix = "session:"

// Session is one independent dashboard instance: its own in-memory store,
// its own drone, discarded together on expiry
type Session struct {
	ID        string
	Store     *tracker.Store
	Service   *tracker.Service
	Drone     *drone.Engine
	CreatedAt time.Time
}

// Options configures the session manager
type Options struct {
	TTL         time.Duration
	MaxSessions int
	SweepEvery  time.Duration
	JWTSecret   []byte
	Catalog     *tracker.Catalog
	SeedOptions tracker.SeedOptions
	RandomSeed  int64 // 0 = time-based
	DronePhase  time.Duration
	DroneTick   time.Duration
}

// Manager owns the live session set. Sessions live in the map; a badger
// record with a TTL mirrors each one so expiry is decided in one place. The
// janitor closes map entries whose badger record has lapsed.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	db     *badger.DB
	opts   Options
	logger *zap.Logger
}

func NewManager(db *badger.DB, opts Options, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		db:       db,
		opts:     opts,
		logger:   logger,
	}
}

// Create spins up a fresh seeded session and returns it with its bearer
// token
func (m *Manager) Create() (*Session, string, error) {
	m.mu.Lock()
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		return nil, "", apperrors.ErrSessionLimit
	}
	m.mu.Unlock()

	store, err := tracker.NewStore()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open session store: %w", err)
	}

	seed := m.opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	seeder := tracker.NewSeeder(m.opts.Catalog, m.opts.SeedOptions, rand.New(rand.NewSource(seed)), m.logger)
	if _, err := seeder.Seed(store, time.Now()); err != nil {
		_ = store.Close()
		return nil, "", fmt.Errorf("failed to seed session store: %w", err)
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Store:     store,
		Service:   tracker.NewService(store, m.logger),
		Drone:     drone.NewEngine(m.opts.DronePhase, m.opts.DroneTick, m.logger),
		CreatedAt: time.Now(),
	}

	if err := m.writeRecord(sess.ID); err != nil {
		_ = store.Close()
		return nil, "", fmt.Errorf("failed to record session: %w", err)
	}

	// re-check the cap under the insert lock: the early check above is a
	// fast path only, and concurrent creates may have filled the map since
	m.mu.Lock()
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		m.mu.Unlock()
		_ = store.Close()
		_ = m.db.Update(func(txn *badger.Txn) error {
			return txn.Delete([]byte(badgerKeyPrefix + sess.ID))
		})
		return nil, "", apperrors.ErrSessionLimit
	}
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	token, err := m.issueToken(sess.ID)
	if err != nil {
		m.Delete(sess.ID)
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	m.logger.Info("session created", zap.String("session_id", sess.ID))
	return sess, token, nil
}

// Resolve validates a bearer token and returns its live session, refreshing
// the session's TTL
func (m *Manager) Resolve(token string) (*Session, error) {
	id, err := m.verifyToken(token)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}

	if !m.recordAlive(id) {
		m.Delete(id)
		return nil, apperrors.ErrSessionNotFound
	}

	// sliding expiry
	if err := m.writeRecord(id); err != nil {
		m.logger.Warn("failed to refresh session record", zap.Error(err))
	}
	return sess, nil
}

// Delete tears a session down, releasing its store and any in-flight drone
// run
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}

	_ = sess.Drone.Cancel()
	if err := sess.Store.Close(); err != nil {
		m.logger.Warn("failed to close session store", zap.Error(err))
	}
	_ = m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerKeyPrefix + id))
	})
	m.logger.Info("session deleted", zap.String("session_id", id))
}

// Count reports the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Each calls fn for every live session. Used by the notification sweeper.
func (m *Manager) Each(fn func(*Session)) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		fn(s)
	}
}

// Run drives the janitor until ctx is cancelled
func (m *Manager) Run(ctx context.Context) {
	every := m.opts.SweepEvery
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// Close tears down every live session
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Delete(id)
	}
}

// sweep drops sessions whose badger record has expired
func (m *Manager) sweep() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if !m.recordAlive(id) {
			m.logger.Info("session expired", zap.String("session_id", id))
			m.Delete(id)
		}
	}
}

func (m *Manager) writeRecord(id string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(badgerKeyPrefix+id), []byte(time.Now().UTC().Format(time.RFC3339))).
			WithTTL(m.opts.TTL)
		return txn.SetEntry(entry)
	})
}

func (m *Manager) recordAlive(id string) bool {
	err := m.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(badgerKeyPrefix + id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false
	}
	if err != nil {
		m.logger.Warn("failed to read session record", zap.Error(err))
		return true
	}
	return true
}

func (m *Manager) issueToken(id string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.opts.TTL)),
		Issuer:    "medtrack",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.opts.JWTSecret)
}

func (m *Manager) verifyToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.opts.JWTSecret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token claims")
	}
	return claims.Subject, nil
}
