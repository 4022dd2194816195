package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/soaringjerry/kavili/internal/models"
	"github.com/soaringjerry/kavili/internal/quiz"
)

type QuestionLister interface {
	ListQuestions(ctx context.Context) ([]*models.Question, error)
}

// BankService builds the playable question bank from stored questions.
type BankService struct {
	questions QuestionLister
	settings  *SettingsService
}

var _ quiz.BankProvider = (*BankService)(nil)

func NewBankService(questions QuestionLister, settings *SettingsService) *BankService {
	return &BankService{questions: questions, settings: settings}
}

// LoadQuestions returns questions by number, options by number, capped at the
// configured maxQuestions when that is set.
func (s *BankService) LoadQuestions(ctx context.Context) (*quiz.Bank, error) {
	stored, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	bank, err := BuildBank(stored)
	if err != nil {
		return nil, err
	}
	if s.settings != nil {
		cfg, err := s.settings.AppSettings(ctx)
		if err != nil {
			return nil, err
		}
		bank = bank.Truncate(cfg.MaxQuestions)
	}
	if bank.Len() == 0 {
		return nil, quiz.ErrEmptyBank
	}
	return bank, nil
}

// BuildBank converts stored records into a validated bank. Questions that
// have no options yet are left out; weight keys that name no category are
// rejected.
func BuildBank(stored []*models.Question) (*quiz.Bank, error) {
	qs := make([]quiz.Question, 0, len(stored))
	for _, sq := range sortedQuestions(stored) {
		if len(sq.Options) == 0 {
			continue
		}
		q := quiz.Question{ID: sq.ID, Prompt: sq.Text}
		for _, so := range sortedOptions(sq.Options) {
			wv, err := quiz.ParseWeights(so.Weights)
			if err != nil {
				return nil, fmt.Errorf("question %s option %s: %w", sq.ID, so.ID, err)
			}
			q.Options = append(q.Options, quiz.Option{ID: so.ID, Text: so.Text, Weights: wv})
		}
		qs = append(qs, q)
	}
	return quiz.NewBank(qs)
}

func sortedQuestions(in []*models.Question) []*models.Question {
	out := append([]*models.Question(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func sortedOptions(in []*models.Option) []*models.Option {
	out := append([]*models.Option(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}
