package api

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soaringjerry/kavili/internal/models"
)

type memoryStore struct {
	mu            sync.RWMutex
	questions     map[string]*models.Question
	options       map[string]*models.Option
	personalities map[string]*models.Personality
	settings      map[string][]byte
	entries       map[string]*models.Entry
	usersByEmail  map[string]*models.User
	audit         []models.AuditEntry
}

// NewMemoryStore returns a Store that keeps everything in process memory.
func NewMemoryStore() Store {
	return newMemoryStore()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		questions:     map[string]*models.Question{},
		options:       map[string]*models.Option{},
		personalities: map[string]*models.Personality{},
		settings:      map[string][]byte{},
		entries:       map[string]*models.Entry{},
		usersByEmail:  map[string]*models.User{},
		audit:         []models.AuditEntry{},
	}
}

func (s *memoryStore) Close() error { return nil }

func cloneOption(o *models.Option) *models.Option {
	cp := *o
	cp.Weights = make(map[string]int, len(o.Weights))
	for k, v := range o.Weights {
		cp.Weights[k] = v
	}
	return &cp
}

// questionLocked copies q with its options attached. Callers hold mu.
func (s *memoryStore) questionLocked(q *models.Question) *models.Question {
	cp := *q
	cp.Options = nil
	for _, o := range s.options {
		if o.QuestionID == q.ID {
			cp.Options = append(cp.Options, cloneOption(o))
		}
	}
	sort.Slice(cp.Options, func(i, j int) bool { return cp.Options[i].Number < cp.Options[j].Number })
	return &cp
}

func (s *memoryStore) ListQuestions(context.Context) ([]*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, s.questionLocked(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *memoryStore) CountQuestions(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions), nil
}

func (s *memoryStore) GetQuestion(_ context.Context, id string) (*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, nil
	}
	return s.questionLocked(q), nil
}

func (s *memoryStore) InsertQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *q
	cp.Options = nil
	s.questions[q.ID] = &cp
	return nil
}

func (s *memoryStore) UpdateQuestion(_ context.Context, q *models.Question) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.questions[q.ID]
	if !ok {
		return false, nil
	}
	cur.Text = q.Text
	return true, nil
}

func (s *memoryStore) DeleteQuestion(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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

func (s *memoryStore) ReorderQuestions(_ context.Context, order []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range order {
		if _, ok := s.questions[id]; !ok {
			return false, nil
		}
	}
	for i, id := range order {
		s.questions[id].Number = i + 1
	}
	return true, nil
}

func (s *memoryStore) GetOption(_ context.Context, id string) (*models.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.options[id]
	if !ok {
		return nil, nil
	}
	return cloneOption(o), nil
}

func (s *memoryStore) InsertOption(_ context.Context, o *models.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[o.ID] = cloneOption(o)
	return nil
}

func (s *memoryStore) UpdateOption(_ context.Context, o *models.Option) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.options[o.ID]; !ok {
		return false, nil
	}
	s.options[o.ID] = cloneOption(o)
	return true, nil
}

func (s *memoryStore) DeleteOption(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.options[id]; !ok {
		return false, nil
	}
	delete(s.options, id)
	return true, nil
}

func (s *memoryStore) ListPersonalities(context.Context) ([]*models.Personality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Personality, 0, len(s.personalities))
	for _, p := range s.personalities {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memoryStore) GetPersonality(_ context.Context, name string) (*models.Personality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.personalities[name]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *memoryStore) UpsertPersonality(_ context.Context, p *models.Personality) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.Traits = append([]string(nil), p.Traits...)
	s.personalities[p.Name] = &cp
	return nil
}

func (s *memoryStore) GetSetting(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[name]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *memoryStore) PutSetting(_ context.Context, name string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[name] = append([]byte(nil), value...)
	return nil
}

func (s *memoryStore) InsertEntry(_ context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entries[e.ID] = &cp
	return nil
}

func (s *memoryStore) GetEntry(_ context.Context, id string) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

// SetEntryResult only fills an empty result.
func (s *memoryStore) SetEntryResult(_ context.Context, id, result string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.Result != "" {
		return false, nil
	}
	e.Result = result
	return true, nil
}

func (s *memoryStore) ListEntries(_ context.Context, since time.Time) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !since.IsZero() && e.CreatedAt.Before(since) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memoryStore) DeleteEntry(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

func (s *memoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *memoryStore) AddUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.usersByEmail[strings.ToLower(u.Email)] = &cp
	return nil
}

func (s *memoryStore) AddAudit(_ context.Context, e models.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
}

// ListAudit returns the newest entries first.
func (s *memoryStore) ListAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditEntry, 0, len(s.audit))
	for i := len(s.audit) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.audit[i])
	}
	return out, nil
}
