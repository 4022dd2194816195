package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/soaringjerry/kavili/internal/models"
)

// stubStore is a small in-memory store shared by the service tests.
type stubStore struct {
	questions     map[string]*models.Question
	options       map[string]*models.Option
	personalities map[string]*models.Personality
	settings      map[string][]byte
	entries       map[string]*models.Entry
	audits        []models.AuditEntry

	failEntries bool
}

func newStubStore() *stubStore {
	return &stubStore{
		questions:     map[string]*models.Question{},
		options:       map[string]*models.Option{},
		personalities: map[string]*models.Personality{},
		settings:      map[string][]byte{},
		entries:       map[string]*models.Entry{},
	}
}

func (s *stubStore) withOptions(q *models.Question) *models.Question {
	copy := *q
	copy.Options = nil
	for _, o := range s.options {
		if o.QuestionID == q.ID {
			oc := *o
			copy.Options = append(copy.Options, &oc)
		}
	}
	sort.Slice(copy.Options, func(i, j int) bool { return copy.Options[i].Number < copy.Options[j].Number })
	return &copy
}

func (s *stubStore) ListQuestions(context.Context) ([]*models.Question, error) {
	out := make([]*models.Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, s.withOptions(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *stubStore) CountQuestions(context.Context) (int, error) { return len(s.questions), nil }

func (s *stubStore) GetQuestion(_ context.Context, id string) (*models.Question, error) {
	if q, ok := s.questions[id]; ok {
		return s.withOptions(q), nil
	}
	return nil, nil
}

func (s *stubStore) InsertQuestion(_ context.Context, q *models.Question) error {
	copy := *q
	copy.Options = nil
	s.questions[q.ID] = &copy
	return nil
}

func (s *stubStore) UpdateQuestion(_ context.Context, q *models.Question) (bool, error) {
	cur, ok := s.questions[q.ID]
	if !ok {
		return false, nil
	}
	cur.Text = q.Text
	return true, nil
}

func (s *stubStore) DeleteQuestion(_ context.Context, id string) (bool, error) {
	if _, ok := s.questions[id]; !ok {
		return false, nil
	}
	delete(s.questions, id)
	for oid, o := range s.options {
		if o.QuestionID == id {
			delete(s.options, oid)
		}
	}
	return true, nil
}

func (s *stubStore) ReorderQuestions(_ context.Context, order []string) (bool, error) {
	for i, id := range order {
		q, ok := s.questions[id]
		if !ok {
			return false, nil
		}
		q.Number = i + 1
	}
	return true, nil
}

func (s *stubStore) GetOption(_ context.Context, id string) (*models.Option, error) {
	if o, ok := s.options[id]; ok {
		copy := *o
		return &copy, nil
	}
	return nil, nil
}

func (s *stubStore) InsertOption(_ context.Context, o *models.Option) error {
	copy := *o
	s.options[o.ID] = &copy
	return nil
}

func (s *stubStore) UpdateOption(_ context.Context, o *models.Option) (bool, error) {
	if _, ok := s.options[o.ID]; !ok {
		return false, nil
	}
	copy := *o
	s.options[o.ID] = &copy
	return true, nil
}

func (s *stubStore) DeleteOption(_ context.Context, id string) (bool, error) {
	if _, ok := s.options[id]; !ok {
		return false, nil
	}
	delete(s.options, id)
	return true, nil
}

func (s *stubStore) ListPersonalities(context.Context) ([]*models.Personality, error) {
	out := make([]*models.Personality, 0, len(s.personalities))
	for _, p := range s.personalities {
		copy := *p
		out = append(out, &copy)
	}
	return out, nil
}

func (s *stubStore) GetPersonality(_ context.Context, name string) (*models.Personality, error) {
	if p, ok := s.personalities[name]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, nil
}

func (s *stubStore) UpsertPersonality(_ context.Context, p *models.Personality) error {
	copy := *p
	s.personalities[p.Name] = &copy
	return nil
}

func (s *stubStore) GetSetting(_ context.Context, name string) ([]byte, error) {
	return s.settings[name], nil
}

func (s *stubStore) PutSetting(_ context.Context, name string, value []byte) error {
	s.settings[name] = append([]byte(nil), value...)
	return nil
}

func (s *stubStore) InsertEntry(_ context.Context, e *models.Entry) error {
	if s.failEntries {
		return errors.New("entries unavailable")
	}
	copy := *e
	s.entries[e.ID] = &copy
	return nil
}

func (s *stubStore) GetEntry(_ context.Context, id string) (*models.Entry, error) {
	if e, ok := s.entries[id]; ok {
		copy := *e
		return &copy, nil
	}
	return nil, nil
}

func (s *stubStore) SetEntryResult(_ context.Context, id, result string) (bool, error) {
	e, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	e.Result = result
	return true, nil
}

func (s *stubStore) ListEntries(_ context.Context, since time.Time) ([]*models.Entry, error) {
	out := []*models.Entry{}
	for _, e := range s.entries {
		if !since.IsZero() && e.CreatedAt.Before(since) {
			continue
		}
		copy := *e
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *stubStore) DeleteEntry(_ context.Context, id string) (bool, error) {
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

func (s *stubStore) AddAudit(_ context.Context, e models.AuditEntry) {
	s.audits = append(s.audits, e)
}

func seqIDs() func(n int) string {
	i := 0
	return func(int) string {
		i++
		return "id" + strconv.Itoa(i)
	}
}
