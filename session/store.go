package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTTL           = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

type entry struct {
	session    *Session
	lastAccess time.Time
}

// Store keeps sessions in memory keyed by a random id. Sessions idle for longer than the ttl are
// removed by Sweep.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry

	ttl time.Duration
	opt *Options
	log logrus.FieldLogger
	now func() time.Time
}

func NewStore(ttl time.Duration, opt *Options) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if opt == nil {
		opt = &Options{}
	}
	var log logrus.FieldLogger = logrus.StandardLogger()
	if opt.Logger != nil {
		log = opt.Logger
	}
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		opt:      opt,
		log:      log,
		now:      time.Now,
	}
}

// Create starts a new empty session
func (s *Store) Create() *Session {
	sess := New(uuid.NewString(), s.opt)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = &entry{session: sess, lastAccess: s.now()}
	return sess
}

// Get returns the session for id and marks it as recently used
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.sessions[id]
	if !exists {
		return nil, false
	}
	if s.now().Sub(e.lastAccess) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	e.lastAccess = s.now()
	return e.session, true
}

// GetOrCreate returns the session for id or a new one when id is unknown or expired. The
// boolean reports whether a session was created.
func (s *Store) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if sess, exists := s.Get(id); exists {
			return sess, false
		}
	}
	return s.Create(), true
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes every session idle for longer than the ttl and returns how many were removed
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastAccess) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is cancelled
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				s.log.WithFields(logrus.Fields{
					"removed":   removed,
					"remaining": s.Len(),
				}).Debug("swept expired sessions")
			}
		}
	}
}
