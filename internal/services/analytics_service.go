package services

import (
	"context"
	"sort"
	"time"

	"github.com/soaringjerry/kavili/internal/models"
	"github.com/soaringjerry/kavili/internal/quiz"
)

type AnalyticsStore interface {
	ListEntries(ctx context.Context, since time.Time) ([]*models.Entry, error)
	CountQuestions(ctx context.Context) (int, error)
}

type AnalyticsService struct {
	store AnalyticsStore
	now   func() time.Time
}

type RecentEntry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Personality string    `json:"personality_result"`
	CreatedAt   time.Time `json:"created_at"`
}

type Dashboard struct {
	TotalEntries      int           `json:"total_users"`
	TotalQuestions    int           `json:"total_questions"`
	MostCommon        string        `json:"most_common_personality,omitempty"`
	MostCommonCount   int           `json:"most_common_count"`
	RecentCompletions []RecentEntry `json:"recent"`
}

type PersonalityCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type AnalyticsTimeseries struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Breakdown struct {
	Range         string                `json:"range"`
	Total         int                   `json:"total"`
	Entries       int                   `json:"entries"`
	Personalities []PersonalityCount    `json:"personalities"`
	Daily         []AnalyticsTimeseries `json:"daily"`
}

const recentLimit = 5

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *AnalyticsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	entries, err := s.store.ListEntries(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	questions, err := s.store.CountQuestions(ctx)
	if err != nil {
		return nil, err
	}
	completed := completedEntries(entries)
	d := &Dashboard{TotalEntries: len(entries), TotalQuestions: questions, RecentCompletions: []RecentEntry{}}
	if counts := countPersonalities(completed); len(counts) > 0 {
		d.MostCommon = counts[0].Name
		d.MostCommonCount = counts[0].Count
	}
	sort.SliceStable(completed, func(i, j int) bool { return completed[i].CreatedAt.After(completed[j].CreatedAt) })
	for i, e := range completed {
		if i == recentLimit {
			break
		}
		d.RecentCompletions = append(d.RecentCompletions, RecentEntry{ID: e.ID, Name: e.Name, Personality: e.Result, CreatedAt: e.CreatedAt})
	}
	return d, nil
}

// RangeSince turns a reporting range into its lower bound and the number of
// days it spans. "all" yields the zero time and zero days.
func RangeSince(rng string, now time.Time) (time.Time, int, error) {
	switch rng {
	case "week":
		return now.AddDate(0, 0, -7), 7, nil
	case "month", "":
		return now.AddDate(0, -1, 0), 30, nil
	case "all":
		return time.Time{}, 0, nil
	}
	return time.Time{}, 0, NewInvalidError("range must be week, month or all")
}

// Breakdown reports completed entries per personality for "week", "month" or
// "all". Daily counts every entry in the range, finished or not, and is
// zero-filled across the last 7 or 30 days for the bounded ranges; days on
// the edge of the range are added as they occur.
func (s *AnalyticsService) Breakdown(ctx context.Context, rng string) (*Breakdown, error) {
	if rng == "" {
		rng = "month"
	}
	now := s.now().UTC()
	since, days, err := RangeSince(rng, now)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, since)
	if err != nil {
		return nil, err
	}
	completed := completedEntries(entries)
	counts := map[string]int{}
	for i := days - 1; i >= 0; i-- {
		counts[now.AddDate(0, 0, -i).Format("2006-01-02")] = 0
	}
	for _, e := range entries {
		counts[e.CreatedAt.UTC().Format("2006-01-02")]++
	}
	return &Breakdown{
		Range:         rng,
		Total:         len(completed),
		Entries:       len(entries),
		Personalities: countPersonalities(completed),
		Daily:         buildTimeseries(counts),
	}, nil
}

func completedEntries(entries []*models.Entry) []*models.Entry {
	out := make([]*models.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Result != "" {
			out = append(out, e)
		}
	}
	return out
}

// countPersonalities sorts by count descending, then by category order.
func countPersonalities(entries []*models.Entry) []PersonalityCount {
	counts := map[string]int{}
	for _, e := range entries {
		counts[e.Result]++
	}
	out := make([]PersonalityCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, PersonalityCount{Name: name, Count: n})
	}
	rank := func(name string) int {
		c, err := quiz.ParseCategory(name)
		if err != nil {
			return quiz.NumCategories()
		}
		return int(c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		ri, rj := rank(out[i].Name), rank(out[j].Name)
		if ri != rj {
			return ri < rj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func buildTimeseries(counts map[string]int) []AnalyticsTimeseries {
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]AnalyticsTimeseries, 0, len(days))
	for _, d := range days {
		out = append(out, AnalyticsTimeseries{Date: d, Count: counts[d]})
	}
	return out
}
