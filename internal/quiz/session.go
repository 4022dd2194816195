package quiz

import (
	"errors"
	"fmt"
	"time"
)

// Step is the screen a session is on.
type Step int

const (
	StepWelcome Step = iota
	StepUserInfo
	StepActive
	StepResult
)

var stepNames = map[Step]string{
	StepWelcome:  "welcome",
	StepUserInfo: "user-info",
	StepActive:   "quiz",
	StepResult:   "result",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Step) UnmarshalText(b []byte) error {
	for step, name := range stepNames {
		if name == string(b) {
			*s = step
			return nil
		}
	}
	return fmt.Errorf("unknown quiz step %q", b)
}

var (
	ErrInvalidTransition = errors.New("invalid quiz transition")
	// ErrAnswerIgnored marks a dropped answer: the question is already locked
	// or the previous transition has not settled.
	ErrAnswerIgnored    = errors.New("answer ignored")
	ErrUnknownOption    = errors.New("option does not belong to the active question")
	ErrUserInfoNotSaved = errors.New("user info could not be saved, please try again")
	ErrBusy             = errors.New("quiz session is busy")
)

// Session is the state of one playthrough. Transitions never mutate the
// receiver; they return the next session.
type Session struct {
	Step     Step
	Index    int
	UserInfo *UserInfo
	// EntryID identifies the persisted user-info record, when one was saved.
	EntryID     string
	Answers     AnswerLedger
	Result      *Category
	LockedUntil time.Time
	// Seed drives decorative randomness in the presentation layer. Each
	// Start draws a new one.
	Seed uint64
}

func NewSession() Session {
	return Session{Step: StepWelcome, Answers: AnswerLedger{}}
}

// Start moves Welcome to UserInfo and sets the presentation seed.
func (s Session) Start(seed uint64) (Session, error) {
	if s.Step != StepWelcome {
		return s, ErrInvalidTransition
	}
	next := s.clone()
	next.Step = StepUserInfo
	next.Seed = seed
	return next, nil
}

// EnterQuiz moves UserInfo to Active(0). Callers persist info first and only
// enter the quiz once that succeeded.
func (s Session) EnterQuiz(info UserInfo, entryID string, questionCount int) (Session, error) {
	if s.Step != StepUserInfo {
		return s, ErrInvalidTransition
	}
	if err := ValidateUserInfo(info); err != nil {
		return s, err
	}
	if questionCount <= 0 {
		return s, ErrEmptyBank
	}
	next := s.clone()
	next.Step = StepActive
	next.Index = 0
	next.UserInfo = &info
	next.EntryID = entryID
	return next, nil
}

// AnswerRules carries the inputs of Answer that come from outside the session.
type AnswerRules struct {
	Now        time.Time
	Delay      time.Duration
	TieBreaker TieBreaker
}

// Answer records optionID for the active question and advances. Answering
// the last question scores the ledger and moves to Result.
func (s Session) Answer(bank *Bank, questionID, optionID string, rules AnswerRules) (Session, error) {
	if s.Transitioning(rules.Now) {
		return s, ErrAnswerIgnored
	}
	if s.Answers.Has(questionID) {
		return s, ErrAnswerIgnored
	}
	if s.Step != StepActive {
		return s, ErrInvalidTransition
	}
	q, ok := bank.At(s.Index)
	if !ok || q.ID != questionID {
		return s, ErrInvalidTransition
	}
	if _, ok := q.Option(optionID); !ok {
		return s, ErrUnknownOption
	}

	next := s.clone()
	next.Answers = s.Answers.With(questionID, optionID)
	next.LockedUntil = rules.Now.Add(rules.Delay)
	if s.Index == bank.Len()-1 {
		result := Resolve(Score(next.Answers, bank), rules.TieBreaker)
		next.Result = &result
		next.Step = StepResult
		return next, nil
	}
	next.Index++
	return next, nil
}

// Restart moves Result back to Welcome. User info is kept.
func (s Session) Restart() (Session, error) {
	if s.Step != StepResult {
		return s, ErrInvalidTransition
	}
	next := s.clone()
	next.Step = StepWelcome
	next.Index = 0
	next.Answers = AnswerLedger{}
	next.Result = nil
	next.LockedUntil = time.Time{}
	return next, nil
}

// Transitioning reports whether the input guard is still armed at now.
func (s Session) Transitioning(now time.Time) bool {
	return now.Before(s.LockedUntil)
}

// ResultOrDefault returns the resolved category, or DefaultCategory when the
// session has none.
func (s Session) ResultOrDefault() Category {
	if s.Result == nil {
		return DefaultCategory
	}
	return *s.Result
}

func (s Session) clone() Session {
	out := s
	out.Answers = s.Answers.Clone()
	if s.UserInfo != nil {
		info := *s.UserInfo
		out.UserInfo = &info
	}
	if s.Result != nil {
		r := *s.Result
		out.Result = &r
	}
	return out
}
