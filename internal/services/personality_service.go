package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/soaringjerry/kavili/internal/models"
	"github.com/soaringjerry/kavili/internal/quiz"
)

type PersonalityStore interface {
	ListPersonalities(ctx context.Context) ([]*models.Personality, error)
	GetPersonality(ctx context.Context, name string) (*models.Personality, error)
	UpsertPersonality(ctx context.Context, p *models.Personality) error
	AddAudit(ctx context.Context, e models.AuditEntry)
}

type PersonalityService struct {
	store PersonalityStore
	now   func() time.Time
}

var _ quiz.PersonalityProvider = (*PersonalityService)(nil)

func NewPersonalityService(store PersonalityStore) *PersonalityService {
	return &PersonalityService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// List returns stored personalities in category order.
func (s *PersonalityService) List(ctx context.Context) ([]*models.Personality, error) {
	list, err := s.store.ListPersonalities(ctx)
	if err != nil {
		return nil, err
	}
	rank := func(name string) int {
		c, err := quiz.ParseCategory(name)
		if err != nil {
			return quiz.NumCategories()
		}
		return int(c)
	}
	sort.SliceStable(list, func(i, j int) bool { return rank(list[i].Name) < rank(list[j].Name) })
	return list, nil
}

func (s *PersonalityService) Get(ctx context.Context, name string) (*models.Personality, error) {
	c, err := quiz.ParseCategory(name)
	if err != nil {
		return nil, NewNotFoundError("personality not found")
	}
	p, err := s.store.GetPersonality(ctx, c.String())
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NewNotFoundError("personality not found")
	}
	return p, nil
}

// Update replaces the metadata of a category. The category set itself is fixed.
func (s *PersonalityService) Update(ctx context.Context, actor, name string, meta models.Personality) (*models.Personality, error) {
	c, err := quiz.ParseCategory(name)
	if err != nil {
		return nil, NewInvalidError(err.Error())
	}
	meta.Name = c.String()
	meta.Title = strings.TrimSpace(meta.Title)
	if meta.Title == "" {
		return nil, NewInvalidError("title required")
	}
	if meta.Traits == nil {
		meta.Traits = []string{}
	}
	meta.UpdatedAt = s.now()
	if err := s.store.UpsertPersonality(ctx, &meta); err != nil {
		return nil, err
	}
	s.store.AddAudit(ctx, models.AuditEntry{Time: meta.UpdatedAt, Actor: actor, Action: "personality_update", Target: meta.Name})
	return &meta, nil
}

// Details loads the presentation metadata of a resolved category. A category
// without stored metadata still gets a usable title.
func (s *PersonalityService) Details(ctx context.Context, c quiz.Category) (quiz.PersonalityDetails, error) {
	if !c.Valid() {
		c = quiz.DefaultCategory
	}
	p, err := s.store.GetPersonality(ctx, c.String())
	if err != nil {
		return quiz.PersonalityDetails{}, err
	}
	if p == nil {
		return quiz.PersonalityDetails{Category: c, Title: c.String()}, nil
	}
	return quiz.PersonalityDetails{
		Category:    c,
		Title:       strings.TrimSpace(p.Title),
		Description: p.Description,
		Traits:      p.Traits,
		Icon:        p.Icon,
		ImagePath:   p.ImagePath,
		Color:       p.Color,
	}, nil
}
