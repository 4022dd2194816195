package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/kavili/internal/models"
	"github.com/soaringjerry/kavili/internal/quiz"
)

type QuestionStore interface {
	ListQuestions(ctx context.Context) ([]*models.Question, error)
	GetQuestion(ctx context.Context, id string) (*models.Question, error)
	InsertQuestion(ctx context.Context, q *models.Question) error
	UpdateQuestion(ctx context.Context, q *models.Question) (bool, error)
	DeleteQuestion(ctx context.Context, id string) (bool, error)
	ReorderQuestions(ctx context.Context, order []string) (bool, error)
	GetOption(ctx context.Context, id string) (*models.Option, error)
	InsertOption(ctx context.Context, o *models.Option) error
	UpdateOption(ctx context.Context, o *models.Option) (bool, error)
	DeleteOption(ctx context.Context, id string) (bool, error)
	AddAudit(ctx context.Context, e models.AuditEntry)
}

type QuestionService struct {
	store QuestionStore
	now   func() time.Time
	idGen func(n int) string
}

type OptionInput struct {
	Text    string         `json:"option_text"`
	Weights map[string]int `json:"weights"`
}

type QuestionInput struct {
	Text    string        `json:"question_text"`
	Options []OptionInput `json:"options"`
}

func NewQuestionService(store QuestionStore) *QuestionService {
	return &QuestionService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: shortID,
	}
}

func (s *QuestionService) ListQuestions(ctx context.Context) ([]*models.Question, error) {
	return s.store.ListQuestions(ctx)
}

func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, NewNotFoundError("question not found")
	}
	return q, nil
}

// CreateQuestion appends a question, and its options, to the end of the bank.
func (s *QuestionService) CreateQuestion(ctx context.Context, actor string, in QuestionInput) (*models.Question, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, NewInvalidError("question_text required")
	}
	opts := make([]*models.Option, 0, len(in.Options))
	for i, oi := range in.Options {
		o, err := buildOption(oi)
		if err != nil {
			return nil, err
		}
		o.Number = i + 1
		opts = append(opts, o)
	}
	existing, err := s.store.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	next := 1
	for _, q := range existing {
		if q.Number >= next {
			next = q.Number + 1
		}
	}
	q := &models.Question{ID: s.idGen(8), Number: next, Text: text, CreatedAt: s.now()}
	if err := s.store.InsertQuestion(ctx, q); err != nil {
		return nil, err
	}
	for _, o := range opts {
		o.ID = s.idGen(8)
		o.QuestionID = q.ID
		if err := s.store.InsertOption(ctx, o); err != nil {
			return nil, err
		}
	}
	q.Options = opts
	s.audit(ctx, actor, "question_create", q.ID, "")
	return q, nil
}

func (s *QuestionService) UpdateQuestion(ctx context.Context, actor, id, text string) (*models.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, NewInvalidError("question_text required")
	}
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Text = text
	ok, err := s.store.UpdateQuestion(ctx, q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewNotFoundError("question not found")
	}
	s.audit(ctx, actor, "question_update", id, "")
	return q, nil
}

// DeleteQuestion removes a question together with its options and weights.
func (s *QuestionService) DeleteQuestion(ctx context.Context, actor, id string) error {
	ok, err := s.store.DeleteQuestion(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("question not found")
	}
	s.audit(ctx, actor, "question_delete", id, "")
	return nil
}

// ReorderQuestions renumbers the bank. order must name every question exactly once.
func (s *QuestionService) ReorderQuestions(ctx context.Context, actor string, order []string) (int, error) {
	if len(order) == 0 {
		return 0, NewInvalidError("order required")
	}
	existing, err := s.store.ListQuestions(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) != len(order) {
		return 0, NewInvalidError("order must list every question")
	}
	known := make(map[string]bool, len(existing))
	for _, q := range existing {
		known[q.ID] = false
	}
	for _, id := range order {
		seen, ok := known[id]
		if !ok {
			return 0, NewInvalidError("unknown question " + id)
		}
		if seen {
			return 0, NewInvalidError("duplicate question " + id)
		}
		known[id] = true
	}
	ok, err := s.store.ReorderQuestions(ctx, order)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, NewInvalidError("reorder failed")
	}
	s.audit(ctx, actor, "question_reorder", "", strconv.Itoa(len(order)))
	return len(order), nil
}

func (s *QuestionService) CreateOption(ctx context.Context, actor, questionID string, in OptionInput) (*models.Option, error) {
	q, err := s.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	o, err := buildOption(in)
	if err != nil {
		return nil, err
	}
	o.ID = s.idGen(8)
	o.QuestionID = q.ID
	o.Number = 1
	for _, existing := range q.Options {
		if existing.Number >= o.Number {
			o.Number = existing.Number + 1
		}
	}
	if err := s.store.InsertOption(ctx, o); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "option_create", o.ID, q.ID)
	return o, nil
}

func (s *QuestionService) UpdateOption(ctx context.Context, actor, id string, in OptionInput) (*models.Option, error) {
	current, err := s.store.GetOption(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, NewNotFoundError("option not found")
	}
	o, err := buildOption(in)
	if err != nil {
		return nil, err
	}
	o.ID = current.ID
	o.QuestionID = current.QuestionID
	o.Number = current.Number
	ok, err := s.store.UpdateOption(ctx, o)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewNotFoundError("option not found")
	}
	s.audit(ctx, actor, "option_update", id, o.QuestionID)
	return o, nil
}

func (s *QuestionService) DeleteOption(ctx context.Context, actor, id string) error {
	ok, err := s.store.DeleteOption(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("option not found")
	}
	s.audit(ctx, actor, "option_delete", id, "")
	return nil
}

func (s *QuestionService) audit(ctx context.Context, actor, action, target, note string) {
	s.store.AddAudit(ctx, models.AuditEntry{Time: s.now(), Actor: actor, Action: action, Target: target, Note: note})
}

func buildOption(in OptionInput) (*models.Option, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, NewInvalidError("option_text required")
	}
	weights, err := NormalizeWeights(in.Weights)
	if err != nil {
		return nil, err
	}
	return &models.Option{Text: text, Weights: weights}, nil
}

// NormalizeWeights keys weights by canonical category name and drops zeroes.
func NormalizeWeights(raw map[string]int) (map[string]int, error) {
	out := make(map[string]int, len(raw))
	for name, w := range raw {
		c, err := quiz.ParseCategory(name)
		if err != nil {
			return nil, NewInvalidError(err.Error())
		}
		if w < 0 {
			return nil, NewInvalidError("weight for " + c.String() + " must not be negative")
		}
		if w == 0 {
			continue
		}
		out[c.String()] += w
	}
	return out, nil
}
