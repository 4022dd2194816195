package services

import (
	"context"
	"testing"
	"time"

	"github.com/soaringjerry/kavili/internal/models"
)

func seedEntries(store *stubStore, now time.Time) {
	add := func(id, result string, ago time.Duration) {
		store.entries[id] = &models.Entry{ID: id, Name: "n" + id, Phone: "p", QuizType: "avrudu", Result: result, CreatedAt: now.Add(-ago)}
	}
	add("1", "masterChef", time.Hour)
	add("2", "masterChef", 2*time.Hour)
	add("3", "timekeeper", 3*time.Hour)
	add("4", "gamemaster", 10*24*time.Hour)
	add("5", "gamemaster", 11*24*time.Hour)
	add("6", "gamemaster", 40*24*time.Hour)
	add("7", "", 30*time.Minute)
}

func TestAnalyticsDashboard(t *testing.T) {
	now := time.Date(2025, 4, 14, 12, 0, 0, 0, time.UTC)
	store := newStubStore()
	seedEntries(store, now)
	store.questions["q"] = &models.Question{ID: "q", Number: 1}

	d, err := NewAnalyticsService(store).Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.TotalEntries != 7 || d.TotalQuestions != 1 {
		t.Fatalf("unexpected totals %+v", d)
	}
	if d.MostCommon != "gamemaster" || d.MostCommonCount != 3 {
		t.Fatalf("unexpected most common %q (%d)", d.MostCommon, d.MostCommonCount)
	}
	if len(d.RecentCompletions) != 5 || d.RecentCompletions[0].ID != "1" {
		t.Fatalf("unexpected recent %+v", d.RecentCompletions)
	}
}

func TestAnalyticsBreakdown(t *testing.T) {
	now := time.Date(2025, 4, 14, 12, 0, 0, 0, time.UTC)
	store := newStubStore()
	seedEntries(store, now)
	svc := NewAnalyticsService(store)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	week, err := svc.Breakdown(ctx, "week")
	if err != nil {
		t.Fatalf("Breakdown week: %v", err)
	}
	if week.Total != 3 || week.Entries != 4 || len(week.Daily) != 7 {
		t.Fatalf("unexpected week %+v", week)
	}
	if week.Personalities[0].Name != "masterChef" || week.Personalities[0].Count != 2 {
		t.Fatalf("unexpected week counts %+v", week.Personalities)
	}
	if last := week.Daily[6]; last.Date != "2025-04-14" || last.Count != 4 {
		t.Fatalf("unexpected last day %+v", last)
	}

	month, err := svc.Breakdown(ctx, "month")
	if err != nil {
		t.Fatalf("Breakdown month: %v", err)
	}
	if month.Total != 5 || len(month.Daily) != 30 {
		t.Fatalf("unexpected month total=%d days=%d", month.Total, len(month.Daily))
	}

	all, err := svc.Breakdown(ctx, "all")
	if err != nil {
		t.Fatalf("Breakdown all: %v", err)
	}
	if all.Total != 6 || all.Personalities[0].Name != "gamemaster" {
		t.Fatalf("unexpected all %+v", all)
	}
	if len(all.Daily) != 4 {
		t.Fatalf("expected only populated days, got %+v", all.Daily)
	}

	if _, err := svc.Breakdown(ctx, "year"); err == nil {
		t.Fatalf("expected invalid range error")
	}
}

func TestAnalyticsBreakdownKeepsEntriesOnRangeEdge(t *testing.T) {
	now := time.Date(2025, 4, 14, 0, 30, 0, 0, time.UTC)
	store := newStubStore()
	edge := now.Add(-(7*24*time.Hour - time.Hour))
	store.entries["edge"] = &models.Entry{ID: "edge", Name: "edge", Phone: "p", Result: "timekeeper", CreatedAt: edge}
	store.entries["open"] = &models.Entry{ID: "open", Name: "open", Phone: "p", CreatedAt: now.Add(-time.Minute)}
	svc := NewAnalyticsService(store)
	svc.now = func() time.Time { return now }

	week, err := svc.Breakdown(context.Background(), "week")
	if err != nil {
		t.Fatalf("Breakdown week: %v", err)
	}
	if week.Total != 1 || week.Entries != 2 {
		t.Fatalf("unexpected totals %+v", week)
	}
	sum := 0
	for _, d := range week.Daily {
		sum += d.Count
	}
	if sum != week.Entries {
		t.Fatalf("daily counts sum to %d, want %d: %+v", sum, week.Entries, week.Daily)
	}
	if first := week.Daily[0]; first.Date != edge.Format("2006-01-02") || first.Count != 1 {
		t.Fatalf("edge day missing: %+v", week.Daily)
	}
}
