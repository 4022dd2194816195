package quiz

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTransitionDelay is how long the input guard stays armed after an answer.
const DefaultTransitionDelay = 800 * time.Millisecond

// Controller owns one Session and serialises every action on it. Presentation
// layers read it through Snapshot and Subscribe.
type Controller struct {
	mu       sync.Mutex
	session  Session
	busy     bool
	lastSeen time.Time

	bank     *Bank
	users    UserInfoSaver
	results  ResultSaver
	tie      TieBreaker
	delay    time.Duration
	quizType string
	now      func() time.Time
	seeds    func() uint64
	logger   *zap.Logger

	subMu   sync.Mutex
	subs    map[int]func(Session)
	nextSub int
}

type ControllerConfig struct {
	Bank            *Bank
	Users           UserInfoSaver
	Results         ResultSaver
	TieBreaker      TieBreaker
	TransitionDelay time.Duration
	QuizType        string
	Logger          *zap.Logger
	Now             func() time.Time
	// Seeds supplies the presentation seed for each Start. Defaults to
	// math/rand/v2.
	Seeds func() uint64
}

func NewController(cfg ControllerConfig) *Controller {
	c := &Controller{
		session:  NewSession(),
		bank:     cfg.Bank,
		users:    cfg.Users,
		results:  cfg.Results,
		tie:      cfg.TieBreaker,
		delay:    cfg.TransitionDelay,
		quizType: cfg.QuizType,
		now:      cfg.Now,
		seeds:    cfg.Seeds,
		logger:   cfg.Logger,
		subs:     map[int]func(Session){},
	}
	if c.tie == nil {
		c.tie = NewRandomTieBreaker(nil)
	}
	if c.delay < 0 {
		c.delay = 0
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.seeds == nil {
		c.seeds = rand.Uint64
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.lastSeen = c.now()
	return c
}

// Bank is the question bank this controller plays through.
func (c *Controller) Bank() *Bank { return c.bank }

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

// Now reads the controller clock.
func (c *Controller) Now() time.Time { return c.now() }

// LastSeen is the time of the most recent action.
func (c *Controller) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Subscribe registers fn to receive the session after every applied change.
// The returned func removes the subscription.
func (c *Controller) Subscribe(fn func(Session)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) notify(s Session) {
	c.subMu.Lock()
	fns := make([]func(Session), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(s.clone())
	}
}

// apply runs a transition under the lock and publishes the result.
func (c *Controller) apply(step func(Session) (Session, error)) (Session, error) {
	c.mu.Lock()
	c.lastSeen = c.now()
	next, err := step(c.session)
	if err != nil {
		cur := c.session.clone()
		c.mu.Unlock()
		return cur, err
	}
	c.session = next
	c.mu.Unlock()
	c.notify(next)
	return next.clone(), nil
}

// Start leaves the welcome screen.
func (c *Controller) Start() (Session, error) {
	seed := c.seeds()
	return c.apply(func(s Session) (Session, error) { return s.Start(seed) })
}

// SubmitUserInfo validates info, persists it and enters the quiz. On any
// failure the session stays on the user-info step.
func (c *Controller) SubmitUserInfo(ctx context.Context, info UserInfo) (Session, error) {
	info.Name = strings.TrimSpace(info.Name)
	info.Phone = strings.TrimSpace(info.Phone)

	c.mu.Lock()
	c.lastSeen = c.now()
	if c.busy {
		cur := c.session.clone()
		c.mu.Unlock()
		return cur, ErrBusy
	}
	if c.session.Step != StepUserInfo {
		cur := c.session.clone()
		c.mu.Unlock()
		return cur, ErrInvalidTransition
	}
	if err := ValidateUserInfo(info); err != nil {
		cur := c.session.clone()
		c.mu.Unlock()
		return cur, err
	}
	if c.bank.Len() == 0 {
		cur := c.session.clone()
		c.mu.Unlock()
		return cur, ErrEmptyBank
	}
	c.busy = true
	c.mu.Unlock()

	var entryID string
	var saveErr error
	if c.users != nil {
		entryID, saveErr = c.users.SaveUserInfo(ctx, UserEntry{Name: info.Name, Phone: info.Phone, QuizType: c.quizType})
	}

	if saveErr != nil {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
		c.logger.Warn("save user info failed", zap.Error(saveErr))
		return c.Snapshot(), fmt.Errorf("%w: %w", ErrUserInfoNotSaved, saveErr)
	}
	// busy is released under the lock that enters the quiz.
	return c.apply(func(s Session) (Session, error) {
		c.busy = false
		return s.EnterQuiz(info, entryID, c.bank.Len())
	})
}

// Answer records optionID for the active question. Dropped answers return
// ErrAnswerIgnored with the session unchanged.
func (c *Controller) Answer(ctx context.Context, questionID, optionID string) (Session, error) {
	next, err := c.apply(func(s Session) (Session, error) {
		return s.Answer(c.bank, questionID, optionID, AnswerRules{Now: c.now(), Delay: c.delay, TieBreaker: c.tie})
	})
	if err != nil {
		return next, err
	}
	if next.Step == StepResult {
		c.saveResult(ctx, next)
	}
	return next, nil
}

func (c *Controller) saveResult(ctx context.Context, s Session) {
	if c.results == nil || s.Result == nil {
		return
	}
	entry := ResultEntry{EntryID: s.EntryID, QuizType: c.quizType, Personality: *s.Result}
	if s.UserInfo != nil {
		entry.Name = s.UserInfo.Name
		entry.Phone = s.UserInfo.Phone
	}
	if err := c.results.SaveResult(ctx, entry); err != nil {
		c.logger.Warn("save quiz result failed", zap.Error(err), zap.Stringer("personality", entry.Personality))
	}
}

// Restart returns a finished session to the welcome screen.
func (c *Controller) Restart() (Session, error) {
	return c.apply(func(s Session) (Session, error) { return s.Restart() })
}
