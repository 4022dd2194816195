package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/soaringjerry/kavili/internal/models"
)

// AppSettingsKey names the settings row holding models.AppSettings.
const AppSettingsKey = "app_settings"

type SettingsStore interface {
	GetSetting(ctx context.Context, name string) ([]byte, error)
	PutSetting(ctx context.Context, name string, value []byte) error
	AddAudit(ctx context.Context, e models.AuditEntry)
}

type SettingsService struct {
	store SettingsStore
	now   func() time.Time
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// DefaultAppSettings is served while no settings have been saved.
func DefaultAppSettings() models.AppSettings {
	return models.AppSettings{
		Theme: models.Theme{
			PrimaryColor:   "#9c27b0",
			SecondaryColor: "#f3e5f5",
			FontFamily:     "Poppins, sans-serif",
			BorderRadius:   "rounded",
			ButtonStyle:    "default",
		},
		Title:        "Avrudu Personality Quiz",
		Description:  "Discover your Avrudu personality type",
		MaxQuestions: 10,
	}
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SettingsService) AppSettings(ctx context.Context) (models.AppSettings, error) {
	raw, err := s.store.GetSetting(ctx, AppSettingsKey)
	if err != nil {
		return models.AppSettings{}, err
	}
	if len(raw) == 0 {
		return DefaultAppSettings(), nil
	}
	out := DefaultAppSettings()
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.AppSettings{}, err
	}
	return out, nil
}

func (s *SettingsService) UpdateAppSettings(ctx context.Context, actor string, in models.AppSettings) (models.AppSettings, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return models.AppSettings{}, NewInvalidError("title required")
	}
	if in.MaxQuestions < 0 {
		return models.AppSettings{}, NewInvalidError("maxQuestions must not be negative")
	}
	def := DefaultAppSettings().Theme
	if in.Theme.PrimaryColor == "" {
		in.Theme.PrimaryColor = def.PrimaryColor
	}
	if in.Theme.SecondaryColor == "" {
		in.Theme.SecondaryColor = def.SecondaryColor
	}
	for _, c := range []string{in.Theme.PrimaryColor, in.Theme.SecondaryColor} {
		if !hexColor.MatchString(c) {
			return models.AppSettings{}, NewInvalidError("invalid colour " + c)
		}
	}
	if in.Theme.FontFamily == "" {
		in.Theme.FontFamily = def.FontFamily
	}
	if in.Theme.BorderRadius == "" {
		in.Theme.BorderRadius = def.BorderRadius
	}
	if in.Theme.ButtonStyle == "" {
		in.Theme.ButtonStyle = def.ButtonStyle
	}
	b, err := json.Marshal(in)
	if err != nil {
		return models.AppSettings{}, err
	}
	if err := s.store.PutSetting(ctx, AppSettingsKey, b); err != nil {
		return models.AppSettings{}, err
	}
	s.store.AddAudit(ctx, models.AuditEntry{Time: s.now(), Actor: actor, Action: "settings_update", Target: AppSettingsKey})
	return in, nil
}
