package services

import (
	"context"
	"errors"
	"testing"

	"github.com/soaringjerry/kavili/internal/models"
	"github.com/soaringjerry/kavili/internal/quiz"
)

func TestBankServiceLoadsOrderedAndCapped(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	questions := NewQuestionService(store)
	questions.idGen = seqIDs()
	for _, text := range []string{"one", "two", "three"} {
		if _, err := questions.CreateQuestion(ctx, "admin", QuestionInput{Text: text, Options: []OptionInput{
			{Text: "a", Weights: map[string]int{"timekeeper": 1}},
			{Text: "b", Weights: map[string]int{"gamemaster": 1}},
		}}); err != nil {
			t.Fatalf("CreateQuestion: %v", err)
		}
	}
	settings := NewSettingsService(store)
	cfg := DefaultAppSettings()
	cfg.MaxQuestions = 2
	if _, err := settings.UpdateAppSettings(ctx, "admin", cfg); err != nil {
		t.Fatalf("UpdateAppSettings: %v", err)
	}

	bank, err := NewBankService(store, settings).LoadQuestions(ctx)
	if err != nil {
		t.Fatalf("LoadQuestions: %v", err)
	}
	if bank.Len() != 2 {
		t.Fatalf("expected 2 questions, got %d", bank.Len())
	}
	first, _ := bank.At(0)
	if first.Prompt != "one" || len(first.Options) != 2 || first.Options[1].Weights.Get(quiz.Gamemaster) != 1 {
		t.Fatalf("unexpected first question %+v", first)
	}
}

func TestBankServiceEmpty(t *testing.T) {
	_, err := NewBankService(newStubStore(), nil).LoadQuestions(context.Background())
	if !errors.Is(err, quiz.ErrEmptyBank) {
		t.Fatalf("expected ErrEmptyBank, got %v", err)
	}
}

func TestBuildBankRejectsUnknownCategory(t *testing.T) {
	_, err := BuildBank([]*models.Question{{ID: "q1", Number: 1, Text: "?", Options: []*models.Option{
		{ID: "o1", Number: 1, Text: "a", Weights: map[string]int{"wizard": 1}},
	}}})
	if err == nil {
		t.Fatalf("expected error")
	}
}
