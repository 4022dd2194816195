package services

import (
	"context"
	"testing"

	"github.com/soaringjerry/kavili/internal/models"
)

func TestAppSettingsDefaults(t *testing.T) {
	svc := NewSettingsService(newStubStore())
	got, err := svc.AppSettings(context.Background())
	if err != nil {
		t.Fatalf("AppSettings: %v", err)
	}
	if got != DefaultAppSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if got.Theme.PrimaryColor != "#9c27b0" || got.MaxQuestions != 10 || got.Title != "Avrudu Personality Quiz" {
		t.Fatalf("unexpected defaults %+v", got)
	}
}

func TestUpdateAppSettings(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	svc := NewSettingsService(store)

	in := models.AppSettings{Title: "Quiz", MaxQuestions: 3, Theme: models.Theme{PrimaryColor: "#123456"}}
	saved, err := svc.UpdateAppSettings(ctx, "admin", in)
	if err != nil {
		t.Fatalf("UpdateAppSettings: %v", err)
	}
	if saved.Theme.SecondaryColor != "#f3e5f5" || saved.Theme.FontFamily == "" {
		t.Fatalf("missing theme defaults: %+v", saved.Theme)
	}
	got, err := svc.AppSettings(ctx)
	if err != nil {
		t.Fatalf("AppSettings: %v", err)
	}
	if got != saved {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, saved)
	}
	if len(store.audits) != 1 {
		t.Fatalf("expected audit entry")
	}

	bad := []models.AppSettings{
		{Title: ""},
		{Title: "x", MaxQuestions: -1},
		{Title: "x", Theme: models.Theme{PrimaryColor: "purple"}},
	}
	for _, b := range bad {
		if _, err := svc.UpdateAppSettings(ctx, "admin", b); err == nil {
			t.Fatalf("expected validation error for %+v", b)
		}
	}
}
