package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/soaringjerry/kavili/internal/models"
	"github.com/soaringjerry/kavili/internal/quiz"
	"github.com/soaringjerry/kavili/internal/services"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), ":memory:", "", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, RunMigrations(ctx, store.db, "", nil))

	var applied int
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestLoadMigrationsPrefersDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0002_b.sql"), []byte("SELECT 2;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_a.sql"), []byte("SELECT 1;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	files, err := LoadMigrations(embeddedMigrations, "migrations", dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "0001_a.sql", files[0].Name)

	files, err = LoadMigrations(embeddedMigrations, "migrations", filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "0001_init.sql", files[0].Name)
}

func TestSQLiteQuestionsRoundTripThroughBank(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	svc := services.NewQuestionService(store)

	first, err := svc.CreateQuestion(ctx, "admin", services.QuestionInput{Text: "First", Options: []services.OptionInput{
		{Text: "a", Weights: map[string]int{"timekeeper": 2}},
		{Text: "b", Weights: map[string]int{"chillGuy": 1}},
	}})
	require.NoError(t, err)
	second, err := svc.CreateQuestion(ctx, "admin", services.QuestionInput{Text: "Second", Options: []services.OptionInput{
		{Text: "c", Weights: map[string]int{"gamemaster": 1}},
	}})
	require.NoError(t, err)

	_, err = svc.ReorderQuestions(ctx, "admin", []string{second.ID, first.ID})
	require.NoError(t, err)

	bank, err := services.NewBankService(store, nil).LoadQuestions(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, bank.Len())
	q0, _ := bank.At(0)
	assert.Equal(t, "Second", q0.Prompt)
	q1, _ := bank.At(1)
	require.Len(t, q1.Options, 2)
	assert.Equal(t, 1, q1.Options[1].Weights.Get(quiz.HarmonyKeeper))

	n, err := store.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, svc.DeleteQuestion(ctx, "admin", first.ID))
	opt, err := store.GetOption(ctx, first.Options[0].ID)
	require.NoError(t, err)
	assert.Nil(t, opt, "options cascade with their question")

	ok, err := store.ReorderQuestions(ctx, []string{"missing"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteEntriesFillResultOnce(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	old := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 4, 13, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertEntry(ctx, &models.Entry{ID: "e1", Name: "A", Phone: "0771234567", QuizType: "avrudu", CreatedAt: old}))
	require.NoError(t, store.InsertEntry(ctx, &models.Entry{ID: "e2", Name: "B", Phone: "0771234568", QuizType: "avrudu", CreatedAt: recent}))

	ok, err := store.SetEntryResult(ctx, "e1", "masterChef")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.SetEntryResult(ctx, "e1", "gamemaster")
	require.NoError(t, err)
	assert.False(t, ok)

	e, err := store.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "masterChef", e.Result)
	assert.True(t, e.CreatedAt.Equal(old))

	all, err := store.ListEntries(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "e2", all[0].ID)

	since, err := store.ListEntries(ctx, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, "e2", since[0].ID)

	ok, err = store.DeleteEntry(ctx, "e2")
	require.NoError(t, err)
	assert.True(t, ok)
	missing, err := store.GetEntry(ctx, "e2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLitePersonalitiesSettingsUsersAudit(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	p, err := services.NewPersonalityService(store).Update(ctx, "admin", "chillGuy", models.Personality{Title: "Harmony Keeper", Traits: []string{"calm"}})
	require.NoError(t, err)
	got, err := store.GetPersonality(ctx, p.Name)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"calm"}, got.Traits)

	settings := services.NewSettingsService(store)
	in := services.DefaultAppSettings()
	in.MaxQuestions = 4
	_, err = settings.UpdateAppSettings(ctx, "admin", in)
	require.NoError(t, err)
	cur, err := settings.AppSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, cur.MaxQuestions)

	auth := services.NewAuthService(store, nil, 0)
	_, err = auth.Register(ctx, "Admin@Example.com", "long-password")
	require.NoError(t, err)
	u, err := store.FindUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	_, err = auth.Register(ctx, "admin@example.com", "long-password")
	assert.Error(t, err)
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, u.ID, users[0].ID)

	audit, err := store.ListAudit(ctx, 1)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, "admin", audit[0].Actor)
}
