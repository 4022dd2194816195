package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/soaringjerry/kavili/internal/quiz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPoolRunsEveryJob(t *testing.T) {
	p := NewPool[int](3, 10)
	for i := 0; i < 10; i++ {
		n := i
		require.NoError(t, p.Submit(string(rune('a'+n)), func() int { return n * n }))
	}
	p.Close()

	var got []int
	for r := range p.Results() {
		got = append(got, r.Output)
	}
	sort.Ints(got)
	assert.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, got)
	assert.ErrorIs(t, p.Submit("late", func() int { return 0 }), ErrPoolClosed)
}

func TestTrySubmitReportsFullQueue(t *testing.T) {
	block := make(chan struct{})
	p := NewPool[int](1, 0)
	started := make(chan struct{})
	require.NoError(t, p.Submit("busy", func() int { close(started); <-block; return 1 }))
	<-started

	assert.ErrorIs(t, p.TrySubmit("extra", func() int { return 2 }), ErrQueueFull)
	close(block)
	<-p.Results()
	p.Close()
}

type recordingSaver struct {
	mu      sync.Mutex
	entries []quiz.ResultEntry
	err     error
}

func (r *recordingSaver) SaveResult(_ context.Context, e quiz.ResultEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

func TestAsyncResultSaver(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	next := &recordingSaver{err: errors.New("db down")}
	s := NewAsyncResultSaver(next, 2, 0, zap.New(core))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveResult(context.Background(), quiz.ResultEntry{Name: "n", Personality: quiz.Gamemaster}))
	}
	s.Close()

	assert.Len(t, next.entries, 3)
	assert.Equal(t, 3, logs.FilterMessage("save quiz result failed").Len())
}
