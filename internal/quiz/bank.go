package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// WeightVector holds a non-negative weight for every category. Categories
// that were never set weigh zero.
type WeightVector [numCategories]int

// NewWeightVector builds a vector from per-category weights.
func NewWeightVector(weights map[Category]int) (WeightVector, error) {
	var wv WeightVector
	for c, w := range weights {
		if !c.Valid() {
			return WeightVector{}, fmt.Errorf("invalid personality category %d", uint8(c))
		}
		if w < 0 {
			return WeightVector{}, fmt.Errorf("negative weight %d for %s", w, c)
		}
		wv[c] = w
	}
	return wv, nil
}

// ParseWeights builds a vector from weights keyed by category name.
func ParseWeights(weights map[string]int) (WeightVector, error) {
	byCategory := make(map[Category]int, len(weights))
	for name, w := range weights {
		c, err := ParseCategory(name)
		if err != nil {
			return WeightVector{}, err
		}
		byCategory[c] += w
	}
	return NewWeightVector(byCategory)
}

func (wv WeightVector) Get(c Category) int {
	if !c.Valid() {
		return 0
	}
	return wv[c]
}

// Map returns the vector keyed by category name, zero entries included.
func (wv WeightVector) Map() map[string]int {
	out := make(map[string]int, numCategories)
	for i, w := range wv {
		out[categoryNames[i]] = w
	}
	return out
}

type Option struct {
	ID      string
	Text    string
	Weights WeightVector
}

type Question struct {
	ID      string
	Prompt  string
	Options []Option
}

// Option finds an option of q by id.
func (q Question) Option(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

var ErrEmptyBank = errors.New("question bank is empty")

// Bank is the ordered, read-only set of questions for a playthrough.
type Bank struct {
	questions []Question
	index     map[string]int
}

// NewBank validates and freezes an ordered question list. Question ids must
// be unique, and option ids unique within their question.
func NewBank(questions []Question) (*Bank, error) {
	b := &Bank{
		questions: make([]Question, 0, len(questions)),
		index:     make(map[string]int, len(questions)),
	}
	for i, q := range questions {
		id := strings.TrimSpace(q.ID)
		if id == "" {
			return nil, fmt.Errorf("question %d: id required", i)
		}
		if _, dup := b.index[id]; dup {
			return nil, fmt.Errorf("question %q: duplicate id", id)
		}
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("question %q: no options", id)
		}
		seen := make(map[string]struct{}, len(q.Options))
		opts := make([]Option, 0, len(q.Options))
		for _, o := range q.Options {
			if strings.TrimSpace(o.ID) == "" {
				return nil, fmt.Errorf("question %q: option id required", id)
			}
			if _, dup := seen[o.ID]; dup {
				return nil, fmt.Errorf("question %q: duplicate option %q", id, o.ID)
			}
			for c, w := range o.Weights {
				if w < 0 {
					return nil, fmt.Errorf("question %q option %q: negative weight for %s", id, o.ID, Category(c))
				}
			}
			seen[o.ID] = struct{}{}
			opts = append(opts, o)
		}
		b.index[id] = len(b.questions)
		b.questions = append(b.questions, Question{ID: id, Prompt: q.Prompt, Options: opts})
	}
	return b, nil
}

// Len is the number of questions; nil banks are empty.
func (b *Bank) Len() int {
	if b == nil {
		return 0
	}
	return len(b.questions)
}

// At returns the question at position i.
func (b *Bank) At(i int) (Question, bool) {
	if b == nil || i < 0 || i >= len(b.questions) {
		return Question{}, false
	}
	return b.questions[i], true
}

// Lookup finds a question by id.
func (b *Bank) Lookup(id string) (Question, bool) {
	if b == nil {
		return Question{}, false
	}
	i, ok := b.index[id]
	if !ok {
		return Question{}, false
	}
	return b.questions[i], true
}

// Questions returns a copy of the ordered question list.
func (b *Bank) Questions() []Question {
	if b == nil {
		return nil
	}
	return append([]Question(nil), b.questions...)
}

// Truncate returns a bank holding at most n leading questions. n <= 0 keeps all.
func (b *Bank) Truncate(n int) *Bank {
	if b == nil || n <= 0 || n >= len(b.questions) {
		return b
	}
	out := &Bank{questions: append([]Question(nil), b.questions[:n]...), index: make(map[string]int, n)}
	for i, q := range out.questions {
		out.index[q.ID] = i
	}
	return out
}

// BankProvider loads the question bank once at quiz start.
type BankProvider interface {
	LoadQuestions(ctx context.Context) (*Bank, error)
}

// StaticBank serves a bank held in memory.
type StaticBank struct {
	Bank *Bank
}

func (s StaticBank) LoadQuestions(context.Context) (*Bank, error) {
	if s.Bank.Len() == 0 {
		return nil, ErrEmptyBank
	}
	return s.Bank, nil
}
