// Package tui is a terminal client that plays a quiz session through a
// quiz.Controller.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/soaringjerry/kavili/internal/quiz"
)

const (
	focusName = iota
	focusPhone
	focusConsent
	numFields
)

// Options configures the terminal client.
type Options struct {
	Personalities quiz.PersonalityProvider
	TickInterval  time.Duration
}

// Model renders one quiz session. Controller changes arrive through a
// subscription, so the view follows the session even when something else
// drives it.
type Model struct {
	ctrl          *quiz.Controller
	personalities quiz.PersonalityProvider
	updates       chan quiz.Session
	unsubscribe   func()
	tickInterval  time.Duration

	session quiz.Session
	name    textinput.Model
	phone   textinput.Model
	consent bool
	focus   int
	cursor  int
	status  string
	result  *quiz.PersonalityDetails
	bar     progress.Model
	now     time.Time
}

func NewModel(ctrl *quiz.Controller, opts Options) Model {
	interval := opts.TickInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	updates := make(chan quiz.Session, 16)
	unsubscribe := ctrl.Subscribe(func(s quiz.Session) {
		select {
		case updates <- s:
		default:
		}
	})

	name := textinput.New()
	name.Placeholder = "Your name"
	name.CharLimit = 80
	name.Cursor.SetMode(cursor.CursorStatic)
	phone := textinput.New()
	phone.Placeholder = "07X XXX XXXX"
	phone.CharLimit = 20
	phone.Cursor.SetMode(cursor.CursorStatic)

	return Model{
		ctrl:          ctrl,
		personalities: opts.Personalities,
		updates:       updates,
		unsubscribe:   unsubscribe,
		tickInterval:  interval,
		session:       ctrl.Snapshot(),
		name:          name,
		phone:         phone,
		bar:           progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		now:           ctrl.Now(),
	}
}

// Close drops the controller subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Run plays the session in the terminal until the player quits.
func Run(ctx context.Context, ctrl *quiz.Controller, opts Options) error {
	m := NewModel(ctrl, opts)
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type sessionMsg quiz.Session

type actionMsg struct {
	session quiz.Session
	err     error
}

type detailsMsg struct {
	details quiz.PersonalityDetails
	err     error
}

type tickMsg time.Time

func waitForSession(updates <-chan quiz.Session) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return nil
		}
		return sessionMsg(s)
	}
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForSession(m.updates), tick(m.tickInterval))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case sessionMsg:
		m.session = quiz.Session(msg)
		return m, tea.Batch(waitForSession(m.updates), m.onSession())
	case actionMsg:
		m.session = msg.session
		m.status = describeError(msg.err)
		return m, m.onSession()
	case detailsMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		d := msg.details
		m.result = &d
		return m, nil
	case tickMsg:
		m.now = time.Time(msg)
		return m, tick(m.tickInterval)
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-8, 10), 60)
		return m, nil
	}
	return m, nil
}

// onSession syncs view state with the latest session.
func (m *Model) onSession() tea.Cmd {
	switch m.session.Step {
	case quiz.StepActive:
		if m.cursor >= m.optionCount() {
			m.cursor = 0
		}
	case quiz.StepResult:
		c := m.session.ResultOrDefault()
		if m.result == nil || m.result.Category != c {
			return m.loadDetails(c)
		}
	default:
		m.result = nil
	}
	if m.session.Step == quiz.StepUserInfo && !m.name.Focused() && !m.phone.Focused() && m.focus != focusConsent {
		m.setFocus(focusName)
	}
	return nil
}

func (m Model) loadDetails(c quiz.Category) tea.Cmd {
	provider := m.personalities
	return func() tea.Msg {
		if provider == nil {
			return detailsMsg{details: quiz.PersonalityDetails{Category: c, Title: c.String()}}
		}
		d, err := provider.Details(context.Background(), c)
		return detailsMsg{details: d, err: err}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "esc" {
		return m, tea.Quit
	}
	switch m.session.Step {
	case quiz.StepWelcome:
		switch key {
		case "enter":
			return m, m.act(func() (quiz.Session, error) { return m.ctrl.Start() })
		case "q":
			return m, tea.Quit
		}
	case quiz.StepUserInfo:
		return m.handleFormKey(msg)
	case quiz.StepActive:
		n := m.optionCount()
		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < n-1 {
				m.cursor++
			}
		case "enter", " ":
			return m, m.answer(m.cursor)
		case "q":
			return m, tea.Quit
		default:
			if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
				if i := int(key[0] - '1'); i < n {
					m.cursor = i
					return m, m.answer(i)
				}
			}
		}
	case quiz.StepResult:
		switch key {
		case "r", "enter":
			return m, m.act(func() (quiz.Session, error) { return m.ctrl.Restart() })
		case "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.setFocus((m.focus + 1) % numFields)
		return m, nil
	case "shift+tab", "up":
		m.setFocus((m.focus + numFields - 1) % numFields)
		return m, nil
	case "enter":
		info := quiz.UserInfo{Name: m.name.Value(), Phone: m.phone.Value(), Consent: m.consent}
		ctrl := m.ctrl
		return m, m.act(func() (quiz.Session, error) { return ctrl.SubmitUserInfo(context.Background(), info) })
	case " ":
		if m.focus == focusConsent {
			m.consent = !m.consent
			return m, nil
		}
	}
	var cmd tea.Cmd
	switch m.focus {
	case focusName:
		m.name, cmd = m.name.Update(msg)
	case focusPhone:
		m.phone, cmd = m.phone.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(f int) {
	m.focus = f
	m.name.Blur()
	m.phone.Blur()
	switch f {
	case focusName:
		m.name.Focus()
	case focusPhone:
		m.phone.Focus()
	}
}

func (m Model) act(fn func() (quiz.Session, error)) tea.Cmd {
	return func() tea.Msg {
		s, err := fn()
		return actionMsg{session: s, err: err}
	}
}

func (m Model) answer(i int) tea.Cmd {
	q, ok := m.ctrl.Bank().At(m.session.Index)
	if !ok || i >= len(q.Options) {
		return nil
	}
	ctrl, qid, oid := m.ctrl, q.ID, q.Options[i].ID
	return m.act(func() (quiz.Session, error) { return ctrl.Answer(context.Background(), qid, oid) })
}

func (m Model) optionCount() int {
	q, ok := m.ctrl.Bank().At(m.session.Index)
	if !ok {
		return 0
	}
	return len(q.Options)
}

func describeError(err error) string {
	var verr *quiz.ValidationError
	switch {
	case err == nil, errors.Is(err, quiz.ErrAnswerIgnored):
		return ""
	case errors.As(err, &verr):
		keys := make([]string, 0, len(verr.Fields))
		for k := range verr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msgs := make([]string, 0, len(keys))
		for _, k := range keys {
			msgs = append(msgs, verr.Fields[k])
		}
		return strings.Join(msgs, "\n")
	case errors.Is(err, quiz.ErrUserInfoNotSaved):
		return "Could not save your details. Please try again."
	}
	return err.Error()
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	promptStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	chosenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#7C3AED")).Padding(1, 2).Width(64)
)

func (m Model) View() string {
	var body string
	switch m.session.Step {
	case quiz.StepWelcome:
		body = lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Kavili: Avurudu Personality Quiz"),
			"",
			"Discover which Avurudu personality you are.",
			"",
			hintStyle.Render("enter to start, q to quit"))
	case quiz.StepUserInfo:
		body = m.viewForm()
	case quiz.StepActive:
		body = m.viewQuestion()
	case quiz.StepResult:
		body = m.viewResult()
	}
	if m.status != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", errorStyle.Render(m.status))
	}
	return cardStyle.Render(body) + "\n"
}

func (m Model) viewForm() string {
	box := "[ ]"
	if m.consent {
		box = "[x]"
	}
	consent := box + " I accept the terms and conditions"
	if m.focus == focusConsent {
		consent = cursorStyle.Render(consent)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Tell us about you"),
		"",
		"Name",
		m.name.View(),
		"",
		"Phone",
		m.phone.View(),
		"",
		consent,
		"",
		hintStyle.Render("tab to move, space to tick, enter to continue"))
}

func (m Model) viewQuestion() string {
	bank := m.ctrl.Bank()
	q, ok := bank.At(m.session.Index)
	if !ok {
		return ""
	}
	total := bank.Len()
	lines := []string{
		hintStyle.Render(fmt.Sprintf("Question %d of %d", m.session.Index+1, total)),
		m.bar.ViewAs(float64(m.session.Index) / float64(total)),
		"",
		promptStyle.Render(q.Prompt),
	}
	chosen := m.session.Answers[q.ID]
	for i, o := range q.Options {
		line := fmt.Sprintf("%d. %s", i+1, o.Text)
		switch {
		case o.ID == chosen:
			line = chosenStyle.Render("✓ " + line)
		case i == m.cursor:
			line = cursorStyle.Render("› " + line)
		default:
			line = "  " + line
		}
		lines = append(lines, line)
	}
	hint := "↑/↓ to choose, enter to answer"
	if m.session.Transitioning(m.now) {
		hint = "…"
	}
	lines = append(lines, "", hintStyle.Render(hint))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) viewResult() string {
	name := ""
	if m.session.UserInfo != nil {
		name = m.session.UserInfo.Name
	}
	heading := "Your Avurudu personality"
	if name != "" {
		heading = name + ", your Avurudu personality"
	}
	lines := []string{titleStyle.Render(heading), ""}
	if m.result != nil {
		lines = append(lines, promptStyle.Render(m.result.Title))
		if m.result.Description != "" {
			lines = append(lines, lipgloss.NewStyle().Width(58).Render(m.result.Description))
		}
		if len(m.result.Traits) > 0 {
			lines = append(lines, "", strings.Join(m.result.Traits, " · "))
		}
	} else {
		lines = append(lines, m.session.ResultOrDefault().String())
	}
	lines = append(lines, "", hintStyle.Render("r to play again, q to quit"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
