package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soaringjerry/kavili/internal/quiz"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("quiz session not found")

// SessionFactory configures every controller the registry creates.
type SessionFactory struct {
	Bank            quiz.BankProvider
	Users           quiz.UserInfoSaver
	Results         quiz.ResultSaver
	TieBreaker      quiz.TieBreaker
	TransitionDelay time.Duration
	QuizType        string
	Logger          *zap.Logger
	Now             func() time.Time
}

// Registry holds the live quiz sessions of this process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*quiz.Controller
	factory  SessionFactory
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewRegistry(factory SessionFactory, ttl time.Duration) *Registry {
	now := factory.Now
	if now == nil {
		now = time.Now
	}
	logger := factory.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: map[string]*quiz.Controller{},
		factory:  factory,
		ttl:      ttl,
		now:      now,
		logger:   logger,
	}
}

// Create loads the bank and opens a new session on the welcome step.
func (r *Registry) Create(ctx context.Context) (string, *quiz.Controller, error) {
	bank, err := r.factory.Bank.LoadQuestions(ctx)
	if err != nil {
		return "", nil, err
	}
	c := quiz.NewController(quiz.ControllerConfig{
		Bank:            bank,
		Users:           r.factory.Users,
		Results:         r.factory.Results,
		TieBreaker:      r.factory.TieBreaker,
		TransitionDelay: r.factory.TransitionDelay,
		QuizType:        r.factory.QuizType,
		Logger:          r.logger,
		Now:             r.now,
	})
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = c
	r.mu.Unlock()
	return id, c, nil
}

func (r *Registry) Get(id string) (*quiz.Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the ttl and reports how many went.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, c := range r.sessions {
		if c.LastSeen().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("swept idle quiz sessions", zap.Int("removed", n))
			}
		}
	}
}
