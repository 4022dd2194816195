package quiz

import (
	"math/rand/v2"
	"sync"
)

// ScoreTable is the accumulated score per category.
type ScoreTable [numCategories]int

func (t ScoreTable) Get(c Category) int {
	if !c.Valid() {
		return 0
	}
	return t[c]
}

// Map returns the table keyed by category name.
func (t ScoreTable) Map() map[string]int {
	return WeightVector(t).Map()
}

// Score sums the weight vectors of every answered option. Pairs whose
// question or option is not in the bank contribute nothing.
func Score(answers AnswerLedger, bank *Bank) ScoreTable {
	var table ScoreTable
	for questionID, optionID := range answers {
		q, ok := bank.Lookup(questionID)
		if !ok {
			continue
		}
		opt, ok := q.Option(optionID)
		if !ok {
			continue
		}
		for c, w := range opt.Weights {
			table[c] += w
		}
	}
	return table
}

// Leaders returns every category holding the maximum score, in declaration order.
func (t ScoreTable) Leaders() []Category {
	top := t[0]
	for _, s := range t[1:] {
		if s > top {
			top = s
		}
	}
	var out []Category
	for i, s := range t {
		if s == top {
			out = append(out, Category(i))
		}
	}
	return out
}

// TieBreaker picks one category out of two or more tied leaders.
type TieBreaker interface {
	Break(tied []Category) Category
}

// Resolve picks the winning category of t, consulting tb only on a tie.
func Resolve(t ScoreTable, tb TieBreaker) Category {
	leaders := t.Leaders()
	if len(leaders) == 1 || tb == nil {
		return leaders[0]
	}
	return tb.Break(leaders)
}

// FirstDeclared resolves ties to the earliest declared category.
type FirstDeclared struct{}

func (FirstDeclared) Break(tied []Category) Category { return tied[0] }

// RandomTieBreaker picks uniformly among tied categories.
type RandomTieBreaker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomTieBreaker draws from src; a nil src uses a randomly seeded PCG.
func NewRandomTieBreaker(src rand.Source) *RandomTieBreaker {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &RandomTieBreaker{rnd: rand.New(src)}
}

func (r *RandomTieBreaker) Break(tied []Category) Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	return tied[r.rnd.IntN(len(tied))]
}
