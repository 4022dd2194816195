package quiz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validInfo = UserInfo{Name: "Nimal", Phone: "077 123 4567", Consent: true}

func bankOf(t *testing.T, n int) *Bank {
	t.Helper()
	qs := make([]Question, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('1' + i))
		qs = append(qs, Question{ID: id, Prompt: "Q" + id, Options: []Option{
			{ID: id + "a", Weights: WeightVector{Timekeeper: 1}},
			{ID: id + "b", Weights: WeightVector{MasterChef: 2}},
		}})
	}
	b, err := NewBank(qs)
	require.NoError(t, err)
	return b
}

func activeSession(t *testing.T, bank *Bank) Session {
	t.Helper()
	s, err := NewSession().Start(1)
	require.NoError(t, err)
	s, err = s.EnterQuiz(validInfo, "entry-1", bank.Len())
	require.NoError(t, err)
	return s
}

func TestWelcomeOnlyLeadsToUserInfo(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StepWelcome, s.Step)

	_, err := s.EnterQuiz(validInfo, "", 3)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.Restart()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.Answer(bankOf(t, 1), "1", "1a", AnswerRules{Now: time.Now()})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	next, err := s.Start(42)
	require.NoError(t, err)
	assert.Equal(t, StepUserInfo, next.Step)
	assert.Equal(t, uint64(42), next.Seed)
	assert.Equal(t, StepWelcome, s.Step, "receiver must not change")
}

func TestEnterQuizRejectsInvalidInfo(t *testing.T) {
	s, err := NewSession().Start(1)
	require.NoError(t, err)

	_, err = s.EnterQuiz(UserInfo{Name: "Kamal", Phone: "123-45", Consent: true}, "", 3)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "phone")

	_, err = s.EnterQuiz(validInfo, "", 0)
	assert.ErrorIs(t, err, ErrEmptyBank)
}

func TestActiveAdvancesOneQuestionAtATime(t *testing.T) {
	bank := bankOf(t, 3)
	s := activeSession(t, bank)
	now := time.Unix(1000, 0)
	rules := AnswerRules{Now: now, Delay: 0, TieBreaker: FirstDeclared{}}

	s, err := s.Answer(bank, "1", "1b", rules)
	require.NoError(t, err)
	assert.Equal(t, StepActive, s.Step)
	assert.Equal(t, 1, s.Index)

	_, err = s.Answer(bank, "3", "3a", rules)
	assert.ErrorIs(t, err, ErrInvalidTransition, "only the active question may be answered")

	s, err = s.Answer(bank, "2", "2b", rules)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Index)

	s, err = s.Answer(bank, "3", "3a", rules)
	require.NoError(t, err)
	assert.Equal(t, StepResult, s.Step)
	require.NotNil(t, s.Result)
	assert.Equal(t, MasterChef, *s.Result)
}

func TestSingleQuestionGoesStraightToResult(t *testing.T) {
	bank := bankOf(t, 1)
	s := activeSession(t, bank)

	s, err := s.Answer(bank, "1", "1a", AnswerRules{Now: time.Now(), TieBreaker: FirstDeclared{}})
	require.NoError(t, err)
	assert.Equal(t, StepResult, s.Step)
	assert.Equal(t, Timekeeper, s.ResultOrDefault())
}

func TestAnswerTwiceLeavesLedgerUnchanged(t *testing.T) {
	bank := bankOf(t, 2)
	s := activeSession(t, bank)
	now := time.Unix(1000, 0)
	rules := AnswerRules{Now: now, Delay: 800 * time.Millisecond}

	first, err := s.Answer(bank, "1", "1a", rules)
	require.NoError(t, err)

	later := AnswerRules{Now: now.Add(time.Second), Delay: 800 * time.Millisecond}
	second, err := first.Answer(bank, "1", "1b", later)
	assert.ErrorIs(t, err, ErrAnswerIgnored)
	assert.Equal(t, first.Answers, second.Answers)
	assert.Equal(t, first.Index, second.Index)
	assert.Equal(t, "1a", second.Answers["1"])
}

func TestGuardDropsAnswersUntilDelayElapses(t *testing.T) {
	bank := bankOf(t, 3)
	s := activeSession(t, bank)
	now := time.Unix(1000, 0)
	delay := 800 * time.Millisecond

	s, err := s.Answer(bank, "1", "1a", AnswerRules{Now: now, Delay: delay})
	require.NoError(t, err)
	assert.True(t, s.Transitioning(now.Add(delay/2)))

	same, err := s.Answer(bank, "2", "2a", AnswerRules{Now: now.Add(delay / 2), Delay: delay})
	assert.ErrorIs(t, err, ErrAnswerIgnored)
	assert.False(t, same.Answers.Has("2"))

	s, err = s.Answer(bank, "2", "2a", AnswerRules{Now: now.Add(delay), Delay: delay})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Index)
}

func TestAnswerRejectsForeignOption(t *testing.T) {
	bank := bankOf(t, 2)
	s := activeSession(t, bank)

	same, err := s.Answer(bank, "1", "2a", AnswerRules{Now: time.Now()})
	assert.ErrorIs(t, err, ErrUnknownOption)
	assert.Empty(t, same.Answers)
}

func TestRestartClearsPlaythroughButKeepsUser(t *testing.T) {
	bank := bankOf(t, 1)
	s := activeSession(t, bank)
	s, err := s.Answer(bank, "1", "1a", AnswerRules{Now: time.Now(), Delay: time.Hour})
	require.NoError(t, err)

	s, err = s.Restart()
	require.NoError(t, err)
	assert.Equal(t, StepWelcome, s.Step)
	assert.Zero(t, s.Index)
	assert.Empty(t, s.Answers)
	assert.Nil(t, s.Result)
	assert.False(t, s.Transitioning(time.Now()))
	require.NotNil(t, s.UserInfo)
	assert.Equal(t, "Nimal", s.UserInfo.Name)
	assert.Equal(t, "entry-1", s.EntryID)
	assert.Equal(t, DefaultCategory, s.ResultOrDefault())
}

func TestTransitionsDoNotShareLedger(t *testing.T) {
	bank := bankOf(t, 2)
	s := activeSession(t, bank)
	next, err := s.Answer(bank, "1", "1a", AnswerRules{Now: time.Now()})
	require.NoError(t, err)
	assert.Empty(t, s.Answers)
	assert.Len(t, next.Answers, 1)
}
