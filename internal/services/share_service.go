package services

import (
	"context"
	"strings"

	"github.com/soaringjerry/kavili/internal/quiz"
)

type SharePayload struct {
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	URL       string   `json:"url,omitempty"`
	ImagePath string   `json:"image_path,omitempty"`
	Hashtags  []string `json:"hashtags"`
}

// ShareService builds what the result screen hands to a share sheet.
type ShareService struct {
	personalities quiz.PersonalityProvider
	baseURL       string
}

func NewShareService(p quiz.PersonalityProvider, baseURL string) *ShareService {
	return &ShareService{personalities: p, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *ShareService) Payload(ctx context.Context, c quiz.Category, name string) (*SharePayload, error) {
	d, err := s.personalities.Details(ctx, c)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(d.Title)
	text := "I am " + title + "! Take the quiz to discover your Innovate Avurudu personality!"
	if name = strings.TrimSpace(name); name != "" {
		text = name + ": " + text
	}
	p := &SharePayload{
		Title:     "My Avurudu Personality",
		Text:      text,
		URL:       s.baseURL,
		ImagePath: d.ImagePath,
		Hashtags:  []string{"Avurudu", "InnovateAvurudu", d.Category.String()},
	}
	if s.baseURL != "" && strings.HasPrefix(d.ImagePath, "/") {
		p.ImagePath = s.baseURL + d.ImagePath
	}
	return p, nil
}
