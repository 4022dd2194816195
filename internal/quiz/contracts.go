package quiz

import "context"

// UserEntry is what gets persisted when a player submits the user-info form.
type UserEntry struct {
	Name     string
	Phone    string
	QuizType string
}

// ResultEntry is what gets persisted once a playthrough resolves.
type ResultEntry struct {
	EntryID     string
	Name        string
	Phone       string
	QuizType    string
	Personality Category
}

// UserInfoSaver persists user info. Progression into the quiz waits for it,
// and a failure keeps the player on the form.
type UserInfoSaver interface {
	SaveUserInfo(ctx context.Context, entry UserEntry) (entryID string, err error)
}

// ResultSaver persists a resolved result. Saving is best-effort: a failure
// never hides the result from the player.
type ResultSaver interface {
	SaveResult(ctx context.Context, entry ResultEntry) error
}

// PersonalityDetails is the presentation metadata of a category.
type PersonalityDetails struct {
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Traits      []string `json:"traits,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	ImagePath   string   `json:"image_path"`
	Color       string   `json:"color,omitempty"`
}

// PersonalityProvider loads metadata for a resolved category. Scoring never
// consults it.
type PersonalityProvider interface {
	Details(ctx context.Context, c Category) (PersonalityDetails, error)
}
