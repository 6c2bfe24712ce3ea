package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lithammer/shortuuid/v4"
)

// Service runs turns against stored sessions. Turns of one session are
// serialised; different sessions proceed in parallel.
type Service struct {
	engine *Engine
	store  SessionStore
	locks  keyedMutex
	logger *slog.Logger
	newID  func() string
}

// NewService creates a Service.
func NewService(engine *Engine, store SessionStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine: engine,
		store:  store,
		locks:  keyedMutex{locks: make(map[string]*refLock)},
		logger: logger,
		newID:  shortuuid.New,
	}
}

// Engine returns the underlying state machine.
func (s *Service) Engine() *Engine { return s.engine }

// Start creates and stores a new session holding the greeting.
func (s *Service) Start(ctx context.Context) (Session, error) {
	sess := NewSession(s.newID(), s.engine.opts.Now())
	if err := s.store.Save(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("saving new session: %w", err)
	}
	return sess, nil
}

// Get returns a stored session.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	return s.store.Get(ctx, id)
}

// Turn loads the session, runs one turn and stores the result. An empty
// or expired id starts a new session. Once the engine has run, the turn
// stands even if storing the session fails: the failure is logged and the
// reply returned, so a retry cannot open a second ticket.
func (s *Service) Turn(ctx context.Context, id string, in Input) (Session, Reply, error) {
	if id == "" {
		sess, err := s.Start(ctx)
		if err != nil {
			return Session{}, Reply{}, err
		}
		id = sess.ID
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		s.logger.Info("session expired, starting over", "session_id", id)
		sess = NewSession(id, s.engine.opts.Now())
	} else if err != nil {
		return Session{}, Reply{}, err
	}

	next, reply, err := s.engine.HandleTurn(ctx, sess, in)
	if err != nil {
		return sess, Reply{}, err
	}
	if err := s.store.Save(ctx, next); err != nil {
		s.logger.Error("saving session failed", "session_id", id, "state", string(next.State), "error", err)
	}
	return next, reply, nil
}

// Abandon discards a session.
func (s *Service) Abandon(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.store.Delete(ctx, id)
}

type refLock struct {
	sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
