package quiz

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weights(t *testing.T, m map[Category]int) WeightVector {
	t.Helper()
	wv, err := NewWeightVector(m)
	require.NoError(t, err)
	return wv
}

// twoQuestionBank builds the bank used by the scoring scenarios: each
// question has one option per weight vector given.
func twoQuestionBank(t *testing.T, q1, q2 []WeightVector) *Bank {
	t.Helper()
	mk := func(id string, wvs []WeightVector) Question {
		q := Question{ID: id, Prompt: "prompt " + id}
		for i, wv := range wvs {
			q.Options = append(q.Options, Option{ID: id + string(rune('a'+i)), Text: "option", Weights: wv})
		}
		return q
	}
	b, err := NewBank([]Question{mk("q1", q1), mk("q2", q2)})
	require.NoError(t, err)
	return b
}

func TestScoreSumsSelectedOptions(t *testing.T) {
	bank := twoQuestionBank(t,
		[]WeightVector{weights(t, map[Category]int{Timekeeper: 3})},
		[]WeightVector{weights(t, map[Category]int{MasterChef: 1})},
	)
	table := Score(AnswerLedger{"q1": "q1a", "q2": "q2a"}, bank)

	assert.Equal(t, 3, table.Get(Timekeeper))
	assert.Equal(t, 1, table.Get(MasterChef))
	assert.Equal(t, Timekeeper, Resolve(table, FirstDeclared{}))
}

func TestScoreSkipsUnknownPairs(t *testing.T) {
	bank := twoQuestionBank(t,
		[]WeightVector{weights(t, map[Category]int{Gamemaster: 2})},
		[]WeightVector{weights(t, map[Category]int{Gamemaster: 2})},
	)
	table := Score(AnswerLedger{"q1": "q1a", "q2": "nope", "q9": "q1a"}, bank)

	assert.Equal(t, 2, table.Get(Gamemaster))
	for _, c := range Categories() {
		if c != Gamemaster {
			assert.Zero(t, table.Get(c), c.String())
		}
	}
}

func TestScoreEmptyLedgerTiesEveryCategory(t *testing.T) {
	table := Score(AnswerLedger{}, nil)
	assert.Len(t, table.Leaders(), NumCategories())
	assert.Equal(t, Timekeeper, Resolve(table, FirstDeclared{}))
}

func TestResolveIsDeterministicWithoutTies(t *testing.T) {
	bank := twoQuestionBank(t,
		[]WeightVector{weights(t, map[Category]int{KnowledgeKeeper: 4, FamilyConnector: 1})},
		[]WeightVector{weights(t, map[Category]int{FamilyConnector: 2})},
	)
	ledger := AnswerLedger{"q1": "q1a", "q2": "q2a"}
	tb := NewRandomTieBreaker(rand.NewPCG(1, 2))
	first := Resolve(Score(ledger, bank), tb)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Resolve(Score(ledger, bank), tb))
	}
	assert.Equal(t, KnowledgeKeeper, first)
}

func TestResolveTieStaysWithinLeaders(t *testing.T) {
	bank := twoQuestionBank(t,
		[]WeightVector{weights(t, map[Category]int{Timekeeper: 2, CreativeSparkle: 2})},
		[]WeightVector{weights(t, map[Category]int{})},
	)
	table := Score(AnswerLedger{"q1": "q1a", "q2": "q2a"}, bank)
	require.Equal(t, []Category{Timekeeper, CreativeSparkle}, table.Leaders())

	tb := NewRandomTieBreaker(rand.NewPCG(7, 7))
	seen := map[Category]int{}
	for i := 0; i < 200; i++ {
		seen[Resolve(table, tb)]++
	}
	assert.Len(t, seen, 2)
	assert.Positive(t, seen[Timekeeper])
	assert.Positive(t, seen[CreativeSparkle])
}

func TestRandomTieBreakerIsReproducibleWithSeed(t *testing.T) {
	tied := []Category{MasterChef, Gamemaster, HarmonyKeeper}
	a := NewRandomTieBreaker(rand.NewPCG(42, 99))
	b := NewRandomTieBreaker(rand.NewPCG(42, 99))
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Break(tied), b.Break(tied))
	}
}

func TestFirstDeclaredPicksEarliestCategory(t *testing.T) {
	assert.Equal(t, Gamemaster, FirstDeclared{}.Break([]Category{Gamemaster, KnowledgeKeeper}))
}

func TestNewWeightVectorRejectsNegativeWeights(t *testing.T) {
	_, err := NewWeightVector(map[Category]int{MasterChef: -1})
	assert.Error(t, err)

	_, err = ParseWeights(map[string]int{"notACategory": 1})
	assert.Error(t, err)

	wv, err := ParseWeights(map[string]int{"masterChef": 3, "chillGuy": 1})
	require.NoError(t, err)
	assert.Equal(t, 3, wv.Get(MasterChef))
	assert.Equal(t, 1, wv.Get(HarmonyKeeper))
	assert.Len(t, wv.Map(), NumCategories())
}
