// Package seed loads question banks and personality metadata from YAML and
// writes them through the admin services.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/soaringjerry/kavili/internal/models"
	"github.com/soaringjerry/kavili/internal/quiz"
	"github.com/soaringjerry/kavili/internal/services"
)

//go:embed avurudu.yaml
var defaultFile []byte

const actor = "seed"

type File struct {
	QuizType      string        `yaml:"quiz_type"`
	Questions     []Question    `yaml:"questions"`
	Personalities []Personality `yaml:"personalities"`
}

type Question struct {
	Key     string   `yaml:"key"`
	Text    string   `yaml:"text"`
	Options []Option `yaml:"options"`
}

type Option struct {
	Key     string         `yaml:"key"`
	Text    string         `yaml:"text"`
	Weights map[string]int `yaml:"weights"`
}

type Personality struct {
	Name        string   `yaml:"name"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Traits      []string `yaml:"traits"`
	Icon        string   `yaml:"icon"`
	ImagePath   string   `yaml:"image_path"`
	Color       string   `yaml:"color"`
}

// Default is the built-in Avurudu bank.
func Default() (*File, error) {
	return Parse(defaultFile)
}

// Load reads a seed file, or the built-in bank when path is empty.
func Load(path string) (*File, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("parse yaml: multiple documents are not supported")
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) Validate() error {
	if len(f.Questions) == 0 {
		return fmt.Errorf("seed: no questions")
	}
	keys := map[string]struct{}{}
	for i, q := range f.Questions {
		label := q.Key
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if _, dup := keys[q.Key]; dup && q.Key != "" {
			return fmt.Errorf("seed: duplicate question key %q", q.Key)
		}
		keys[q.Key] = struct{}{}
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("seed: question %s has no text", label)
		}
		if len(q.Options) == 0 {
			return fmt.Errorf("seed: question %s has no options", label)
		}
		for _, o := range q.Options {
			if _, err := quiz.ParseWeights(o.Weights); err != nil {
				return fmt.Errorf("seed: question %s option %s: %w", label, o.Key, err)
			}
		}
	}
	for _, p := range f.Personalities {
		if _, err := quiz.ParseCategory(p.Name); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}

// Bank converts the file into a playable bank without touching storage.
func (f *File) Bank() (*quiz.Bank, error) {
	qs := make([]quiz.Question, 0, len(f.Questions))
	for i, q := range f.Questions {
		id := q.Key
		if id == "" {
			id = fmt.Sprint(i + 1)
		}
		out := quiz.Question{ID: id, Prompt: q.Text}
		for j, o := range q.Options {
			oid := o.Key
			if oid == "" {
				oid = fmt.Sprintf("%s-%d", id, j+1)
			}
			wv, err := quiz.ParseWeights(o.Weights)
			if err != nil {
				return nil, err
			}
			out.Options = append(out.Options, quiz.Option{ID: oid, Text: o.Text, Weights: wv})
		}
		qs = append(qs, out)
	}
	return quiz.NewBank(qs)
}

type Report struct {
	Questions     int
	Options       int
	Personalities int
}

// Seeder writes a seed file through the admin services.
type Seeder struct {
	Questions     *services.QuestionService
	Personalities *services.PersonalityService
	Logger        *zap.Logger
}

// Apply stores the questions when the bank is empty and any personality that
// has no metadata yet. Existing content is left alone.
func (s *Seeder) Apply(ctx context.Context, f *File) (Report, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var rep Report

	existing, err := s.Questions.ListQuestions(ctx)
	if err != nil {
		return rep, err
	}
	if len(existing) > 0 {
		logger.Info("question bank not empty, skipping questions", zap.Int("existing", len(existing)))
	} else {
		for _, q := range f.Questions {
			in := services.QuestionInput{Text: q.Text}
			for _, o := range q.Options {
				in.Options = append(in.Options, services.OptionInput{Text: o.Text, Weights: o.Weights})
			}
			created, err := s.Questions.CreateQuestion(ctx, actor, in)
			if err != nil {
				return rep, fmt.Errorf("seed question %q: %w", q.Key, err)
			}
			rep.Questions++
			rep.Options += len(created.Options)
		}
	}

	stored, err := s.Personalities.List(ctx)
	if err != nil {
		return rep, err
	}
	have := map[string]bool{}
	for _, p := range stored {
		have[p.Name] = true
	}
	for _, p := range f.Personalities {
		c, _ := quiz.ParseCategory(p.Name)
		if have[c.String()] {
			continue
		}
		_, err := s.Personalities.Update(ctx, actor, c.String(), models.Personality{
			Title:       strings.TrimSpace(p.Title),
			Description: p.Description,
			Traits:      p.Traits,
			Icon:        p.Icon,
			ImagePath:   p.ImagePath,
			Color:       p.Color,
		})
		if err != nil {
			return rep, fmt.Errorf("seed personality %q: %w", p.Name, err)
		}
		rep.Personalities++
	}
	logger.Info("seed applied",
		zap.Int("questions", rep.Questions),
		zap.Int("options", rep.Options),
		zap.Int("personalities", rep.Personalities))
	return rep, nil
}
