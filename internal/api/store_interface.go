package api

import (
	"context"

	"github.com/soaringjerry/kavili/internal/models"
	"github.com/soaringjerry/kavili/internal/services"
)

// Store is everything the HTTP layer persists. The memory, SQLite and
// Postgres stores all implement it.
type Store interface {
	services.AuthStore
	services.QuestionStore
	services.PersonalityStore
	services.SettingsStore
	services.EntryStore
	CountQuestions(ctx context.Context) (int, error)
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
	Close() error
}

var _ Store = (*memoryStore)(nil)
