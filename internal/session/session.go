// Package session binds a counter and its undo history to one persisted mantra.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/verte-zerg/mantra/internal/counter"
	"github.com/verte-zerg/mantra/internal/logger"
	"github.com/verte-zerg/mantra/internal/model"
	"github.com/verte-zerg/mantra/internal/store"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

const maxConflictRetries = 3

// Repository persists counter changes. SaveCounter reports store.ErrConflict
// when the stored counter no longer matches prior.
type Repository interface {
	GetMantra(ctx context.Context, id string) (model.Mantra, error)
	SaveCounter(ctx context.Context, id string, prior, next model.CounterState, at time.Time) error
	SetFavorite(ctx context.Context, id string, favorite bool) error
}

// Notifier is told when a mantra reaches its goal.
type Notifier interface {
	GoalReached(m model.Mantra) error
}

// Option configures a Session.
type Option func(*Session)

// WithNotifier sets the goal notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		s.notifier = n
	}
}

// WithClock sets the time source used for reading events.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Result describes the outcome of an adjustment or undo.
type Result struct {
	Mantra      model.Mantra
	Entry       counter.UndoEntry
	GoalReached bool
}

// Session serializes adjustments and undo for one mantra.
type Session struct {
	mu       sync.Mutex
	mantra   model.Mantra
	counter  *counter.Counter
	repo     Repository
	notifier Notifier
	now      func() time.Time
	closed   bool
}

// New returns a session for m with empty history.
func New(m model.Mantra, repo Repository, opts ...Option) *Session {
	s := &Session{
		mantra:  m,
		counter: counter.New(m.CounterState),
		repo:    repo,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mantra returns a snapshot of the current mantra.
func (s *Session) Mantra() model.Mantra {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() model.Mantra {
	m := s.mantra
	m.CounterState = s.counter.State()
	return m
}

// IsAllowed reports whether req would be accepted now.
func (s *Session) IsAllowed(req counter.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return counter.IsAllowed(s.counter.State(), req)
}

// IsAllowedText reports whether text parses for kind and would be accepted now.
func (s *Session) IsAllowedText(kind counter.Kind, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return counter.IsAllowedText(s.counter.State(), kind, text)
}

// CanUndo reports whether there is an adjustment to undo.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.counter.CanUndo()
}

// HistoryLen returns the number of undoable adjustments.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter.HistoryLen()
}

// Adjust validates and applies req, then persists it. If persisting fails the
// state and history are left as they were before the call. When the stored
// counter changed underneath the session, the state is reloaded and req is
// validated and applied again.
func (s *Session) Adjust(ctx context.Context, req counter.Request) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Result{}, ErrClosed
	}

	for attempt := 0; ; attempt++ {
		prior := s.counter.State()
		entry, err := s.counter.Apply(req)
		if err != nil {
			return Result{Mantra: s.snapshot()}, err
		}
		next := s.counter.State()
		err = s.repo.SaveCounter(ctx, s.mantra.ID, prior, next, s.now())
		if err == nil {
			logger.Debug("counter adjusted", "mantra", s.mantra.ID, "request", req.String(), "reads", next.Reads, "goal", next.Goal)
			res := Result{Mantra: s.snapshot(), Entry: entry, GoalReached: counter.GoalReached(prior, next)}
			if res.GoalReached {
				s.notify(res.Mantra)
			}
			return res, nil
		}
		s.counter.RevertApply(prior)
		if rerr := s.resync(ctx, err, attempt); rerr != nil {
			return Result{Mantra: s.snapshot()}, fmt.Errorf("save %s: %w", req, rerr)
		}
	}
}

// Increment adds one reading.
func (s *Session) Increment(ctx context.Context) (Result, error) {
	return s.Adjust(ctx, counter.Reads(1))
}

// Undo reverts the most recent adjustment and persists the restored state.
// Conflicts are handled like Adjust.
func (s *Session) Undo(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Result{}, ErrClosed
	}

	for attempt := 0; ; attempt++ {
		prior := s.counter.State()
		entry, err := s.counter.Undo()
		if err != nil {
			return Result{Mantra: s.snapshot()}, err
		}
		next := s.counter.State()
		err = s.repo.SaveCounter(ctx, s.mantra.ID, prior, next, s.now())
		if err == nil {
			logger.Debug("counter undone", "mantra", s.mantra.ID, "reads", next.Reads, "goal", next.Goal)
			return Result{Mantra: s.snapshot(), Entry: entry}, nil
		}
		s.counter.RevertUndo(prior, entry)
		if rerr := s.resync(ctx, err, attempt); rerr != nil {
			return Result{Mantra: s.snapshot()}, fmt.Errorf("save undo: %w", rerr)
		}
	}
}

// resync decides whether a failed save is retried. Only conflicts are, at most
// maxConflictRetries times, after loading the stored state.
func (s *Session) resync(ctx context.Context, saveErr error, attempt int) error {
	if !errors.Is(saveErr, store.ErrConflict) || attempt >= maxConflictRetries {
		return saveErr
	}
	fresh, err := s.repo.GetMantra(ctx, s.mantra.ID)
	if err != nil {
		return errors.Join(saveErr, err)
	}
	logger.Info("counter changed elsewhere, reloading", "mantra", s.mantra.ID, "reads", fresh.Reads, "goal", fresh.Goal)
	s.counter.Sync(fresh.CounterState)
	s.mantra = fresh
	return nil
}

// ToggleFavorite flips and persists the favorite flag. It is not undoable.
func (s *Session) ToggleFavorite(ctx context.Context) (model.Mantra, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Mantra{}, ErrClosed
	}

	state := s.counter.State()
	state.IsFavorite = !state.IsFavorite
	if err := s.repo.SetFavorite(ctx, s.mantra.ID, state.IsFavorite); err != nil {
		return s.snapshot(), fmt.Errorf("set favorite: %w", err)
	}
	s.counter.Sync(state)
	return s.snapshot(), nil
}

// Reload replaces the mantra. Switching to another mantra clears the history;
// reloading the same mantra refreshes its state and keeps the history.
func (s *Session) Reload(m model.Mantra) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID != s.mantra.ID {
		s.counter.Reset(m.CounterState)
	} else {
		s.counter.Sync(m.CounterState)
	}
	s.mantra = m
	s.closed = false
}

// Close discards the history. Later adjustments fail with ErrClosed until Reload.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter.Reset(s.counter.State())
	s.closed = true
}

func (s *Session) notify(m model.Mantra) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.GoalReached(m); err != nil {
		logger.Warn("goal notification failed", "mantra", m.ID, "error", err)
	}
}
