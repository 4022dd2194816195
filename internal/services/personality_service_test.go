package services

import (
	"context"
	"testing"

	"github.com/soaringjerry/kavili/internal/models"
	"github.com/soaringjerry/kavili/internal/quiz"
)

func TestPersonalityUpdateAndDetails(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := NewPersonalityService(store)

	if _, err := svc.Update(ctx, "admin", "wizard", models.Personality{Title: "x"}); err == nil {
		t.Fatalf("expected error for unknown category")
	}
	if _, err := svc.Update(ctx, "admin", "timekeeper", models.Personality{Title: " "}); err == nil {
		t.Fatalf("expected error for empty title")
	}

	p, err := svc.Update(ctx, "admin", "chillGuy", models.Personality{
		Title:     "Just A Chill Guy ☮️ ",
		ImagePath: "/personalities/The-Chill-Guy.jpeg",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.Name != "harmonyKeeper" || p.Traits == nil {
		t.Fatalf("unexpected personality %+v", p)
	}

	d, err := svc.Details(ctx, quiz.HarmonyKeeper)
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if d.Title != "Just A Chill Guy ☮️" || d.ImagePath != "/personalities/The-Chill-Guy.jpeg" {
		t.Fatalf("unexpected details %+v", d)
	}

	fallback, err := svc.Details(ctx, quiz.Gamemaster)
	if err != nil {
		t.Fatalf("Details fallback: %v", err)
	}
	if fallback.Title != "gamemaster" || fallback.Category != quiz.Gamemaster {
		t.Fatalf("unexpected fallback %+v", fallback)
	}
}

func TestPersonalityListInCategoryOrder(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := NewPersonalityService(store)
	for _, name := range []string{"knowledgeKeeper", "timekeeper", "masterChef"} {
		if _, err := svc.Update(ctx, "admin", name, models.Personality{Title: name}); err != nil {
			t.Fatalf("Update %s: %v", name, err)
		}
	}
	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := []string{list[0].Name, list[1].Name, list[2].Name}
	want := []string{"timekeeper", "masterChef", "knowledgeKeeper"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if _, err := svc.Get(ctx, "gamemaster"); err == nil {
		t.Fatalf("expected not found")
	}
}
