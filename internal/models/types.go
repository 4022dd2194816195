package models

import "time"

// Question is one stored quiz question. Number orders the bank.
type Question struct {
	ID        string    `json:"id"`
	Number    int       `json:"question_number"`
	Text      string    `json:"question_text"`
	Options   []*Option `json:"options,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Option is an answer to a question with its personality weights keyed by
// category name.
type Option struct {
	ID         string         `json:"id"`
	QuestionID string         `json:"question_id"`
	Number     int            `json:"option_number"`
	Text       string         `json:"option_text"`
	Weights    map[string]int `json:"weights"`
}

// Personality is the display metadata for one category.
type Personality struct {
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Traits      []string  `json:"traits"`
	Icon        string    `json:"icon,omitempty"`
	ImagePath   string    `json:"image_path"`
	Color       string    `json:"color,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Entry is a player record. Result stays empty until the playthrough resolves.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	QuizType  string    `json:"quiz_type"`
	Result    string    `json:"personality_result,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Theme struct {
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	FontFamily     string `json:"fontFamily"`
	BorderRadius   string `json:"borderRadius"`
	ButtonStyle    string `json:"buttonStyle"`
}

// AppSettings is the value stored under the "app_settings" setting.
type AppSettings struct {
	Theme        Theme  `json:"theme"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	MaxQuestions int    `json:"maxQuestions"`
}

// User is an admin account.
type User struct {
	ID        string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}
