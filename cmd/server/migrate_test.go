package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/soaringjerry/kavili/internal/api"
	"github.com/soaringjerry/kavili/internal/db"
	"github.com/soaringjerry/kavili/internal/quiz"
	"github.com/soaringjerry/kavili/internal/services"
)

func TestCopyFromSQLite(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	path := filepath.Join(t.TempDir(), "kavili.db")

	src, err := db.OpenSQLite(ctx, path, "", logger)
	require.NoError(t, err)
	require.NoError(t, applySeed(ctx, src, "", logger))
	_, err = services.NewAuthService(src, nil, 0).Register(ctx, "admin@example.com", "long-password")
	require.NoError(t, err)
	entries := services.NewEntryService(src)
	id, err := entries.SaveUserInfo(ctx, quiz.UserEntry{Name: "Nimal", Phone: "0771234567"})
	require.NoError(t, err)
	require.NoError(t, entries.SaveResult(ctx, quiz.ResultEntry{EntryID: id, Personality: quiz.HarmonyKeeper}))
	require.NoError(t, src.Close())

	dst := api.NewMemoryStore()
	require.NoError(t, CopyFromSQLite(ctx, path, "", dst, logger))

	n, err := dst.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	bank, err := services.NewBankService(dst, nil).LoadQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, bank.Len())

	u, err := dst.FindUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.NotNil(t, u)

	copied, err := dst.ListEntries(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, copied, 1)
	assert.Equal(t, "harmonyKeeper", copied[0].Result)

	ps, err := dst.ListPersonalities(ctx)
	require.NoError(t, err)
	assert.Len(t, ps, quiz.NumCategories())

	// A second run finds data in the target and leaves it alone.
	require.NoError(t, CopyFromSQLite(ctx, path, "", dst, logger))
	copied, err = dst.ListEntries(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, copied, 1)
}

func TestCopyFromSQLiteMissingFile(t *testing.T) {
	err := CopyFromSQLite(context.Background(), filepath.Join(t.TempDir(), "nope.db"), "", api.NewMemoryStore(), zaptest.NewLogger(t))
	assert.Error(t, err)
}
