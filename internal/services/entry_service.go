package services

import (
	"context"
	"strings"
	"time"

	"github.com/soaringjerry/kavili/internal/models"
	"github.com/soaringjerry/kavili/internal/quiz"
)

// DefaultQuizType is stamped on entries when the caller names none.
const DefaultQuizType = "avrudu"

type EntryStore interface {
	InsertEntry(ctx context.Context, e *models.Entry) error
	GetEntry(ctx context.Context, id string) (*models.Entry, error)
	SetEntryResult(ctx context.Context, id, result string) (bool, error)
	ListEntries(ctx context.Context, since time.Time) ([]*models.Entry, error)
	DeleteEntry(ctx context.Context, id string) (bool, error)
	AddAudit(ctx context.Context, e models.AuditEntry)
}

type EntryService struct {
	store EntryStore
	now   func() time.Time
	idGen func(n int) string
}

var (
	_ quiz.UserInfoSaver = (*EntryService)(nil)
	_ quiz.ResultSaver   = (*EntryService)(nil)
)

func NewEntryService(store EntryStore) *EntryService {
	return &EntryService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: shortID,
	}
}

// SaveUserInfo records a player before the quiz starts and returns the entry id.
func (s *EntryService) SaveUserInfo(ctx context.Context, in quiz.UserEntry) (string, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	if name == "" || phone == "" {
		return "", NewInvalidError("name and phone required")
	}
	e := &models.Entry{
		ID:        s.idGen(12),
		Name:      name,
		Phone:     phone,
		QuizType:  quizTypeOrDefault(in.QuizType),
		CreatedAt: s.now(),
	}
	if err := s.store.InsertEntry(ctx, e); err != nil {
		return "", err
	}
	return e.ID, nil
}

// SaveResult completes the entry created by SaveUserInfo. A replay, or a
// playthrough without a saved entry, is recorded as a new completed entry.
func (s *EntryService) SaveResult(ctx context.Context, in quiz.ResultEntry) error {
	if !in.Personality.Valid() {
		return NewInvalidError("invalid personality")
	}
	result := in.Personality.String()
	if in.EntryID != "" {
		existing, err := s.store.GetEntry(ctx, in.EntryID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Result == "" {
			ok, err := s.store.SetEntryResult(ctx, in.EntryID, result)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
	}
	return s.store.InsertEntry(ctx, &models.Entry{
		ID:        s.idGen(12),
		Name:      strings.TrimSpace(in.Name),
		Phone:     strings.TrimSpace(in.Phone),
		QuizType:  quizTypeOrDefault(in.QuizType),
		Result:    result,
		CreatedAt: s.now(),
	})
}

// List returns entries created at or after since, newest first. A zero since lists all.
func (s *EntryService) List(ctx context.Context, since time.Time) ([]*models.Entry, error) {
	return s.store.ListEntries(ctx, since)
}

func (s *EntryService) Delete(ctx context.Context, actor, id string) error {
	ok, err := s.store.DeleteEntry(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("entry not found")
	}
	s.store.AddAudit(ctx, models.AuditEntry{Time: s.now(), Actor: actor, Action: "entry_delete", Target: id})
	return nil
}

func quizTypeOrDefault(t string) string {
	if t = strings.TrimSpace(t); t != "" {
		return t
	}
	return DefaultQuizType
}
