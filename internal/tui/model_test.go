package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/kavili/internal/quiz"
)

type savedUsers struct{ entries []quiz.UserEntry }

func (s *savedUsers) SaveUserInfo(_ context.Context, e quiz.UserEntry) (string, error) {
	s.entries = append(s.entries, e)
	return "entry-1", nil
}

type fixedDetails struct{}

func (fixedDetails) Details(_ context.Context, c quiz.Category) (quiz.PersonalityDetails, error) {
	return quiz.PersonalityDetails{Category: c, Title: "The " + c.String(), Description: "details"}, nil
}

func newTestModel(t *testing.T) (Model, *savedUsers) {
	t.Helper()
	bank, err := quiz.NewBank([]quiz.Question{
		{ID: "1", Prompt: "First?", Options: []quiz.Option{
			{ID: "1a", Text: "clock", Weights: quiz.WeightVector{quiz.Timekeeper: 1}},
			{ID: "1b", Text: "kitchen", Weights: quiz.WeightVector{quiz.MasterChef: 2}},
		}},
		{ID: "2", Prompt: "Second?", Options: []quiz.Option{
			{ID: "2a", Text: "clock", Weights: quiz.WeightVector{quiz.Timekeeper: 1}},
			{ID: "2b", Text: "kitchen", Weights: quiz.WeightVector{quiz.MasterChef: 2}},
		}},
	})
	require.NoError(t, err)
	users := &savedUsers{}
	ctrl := quiz.NewController(quiz.ControllerConfig{Bank: bank, Users: users, TieBreaker: quiz.FirstDeclared{}})
	m := NewModel(ctrl, Options{Personalities: fixedDetails{}})
	t.Cleanup(m.Close)
	return m, users
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send feeds msgs to the model and follows action and details commands, which
// complete synchronously.
func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, cmd := m.Update(msg)
		m = next.(Model)
		for cmd != nil {
			out := cmd()
			switch out.(type) {
			case actionMsg, detailsMsg:
				next, cmd = m.Update(out)
				m = next.(Model)
			default:
				cmd = nil
			}
		}
	}
	return m
}

func TestPlayThroughWithKeys(t *testing.T) {
	m, users := newTestModel(t)
	assert.Contains(t, m.View(), "enter to start")

	m = send(t, m, key("enter"))
	require.Equal(t, quiz.StepUserInfo, m.session.Step)

	m = send(t, m, key("Nimal"), key("tab"), key("0771234567"), key("tab"), key(" "), key("enter"))
	require.Equal(t, quiz.StepActive, m.session.Step, m.status)
	require.Len(t, users.entries, 1)
	assert.Equal(t, "Nimal", users.entries[0].Name)
	assert.Contains(t, m.View(), "Question 1 of 2")

	m = send(t, m, key("down"), key("enter"))
	assert.Equal(t, 1, m.session.Index)
	m = send(t, m, key("2"))
	require.Equal(t, quiz.StepResult, m.session.Step)
	require.NotNil(t, m.result)
	assert.Equal(t, quiz.MasterChef, m.result.Category)
	assert.Contains(t, m.View(), "The masterChef")

	m = send(t, m, key("r"))
	assert.Equal(t, quiz.StepWelcome, m.session.Step)
	assert.Nil(t, m.result)
}

func TestFormShowsValidationMessages(t *testing.T) {
	m, users := newTestModel(t)
	m = send(t, m, key("enter"))
	m = send(t, m, key("Kamal"), key("tab"), key("123"), key("enter"))

	assert.Equal(t, quiz.StepUserInfo, m.session.Step)
	assert.Empty(t, users.entries)
	assert.Contains(t, m.status, "at least 10 digits")
	assert.Contains(t, m.status, "terms and conditions")
}

func TestSubscriptionFollowsOtherDrivers(t *testing.T) {
	m, _ := newTestModel(t)
	_, err := m.ctrl.Start()
	require.NoError(t, err)

	s := <-m.updates
	next, _ := m.Update(sessionMsg(s))
	m = next.(Model)
	assert.Equal(t, quiz.StepUserInfo, m.session.Step)
	assert.True(t, m.name.Focused())
}
