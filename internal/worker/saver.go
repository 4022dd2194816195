package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soaringjerry/kavili/internal/quiz"
	"go.uber.org/zap"
)

// AsyncResultSaver hands result saves to a pool so callers never wait on
// storage. Outcomes are logged.
type AsyncResultSaver struct {
	next    quiz.ResultSaver
	pool    *Pool[error]
	timeout time.Duration
	logger  *zap.Logger
	done    chan struct{}
	once    sync.Once
}

var _ quiz.ResultSaver = (*AsyncResultSaver)(nil)

func NewAsyncResultSaver(next quiz.ResultSaver, workers int, timeout time.Duration, logger *zap.Logger) *AsyncResultSaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if workers < 1 {
		workers = 1
	}
	s := &AsyncResultSaver{
		next:    next,
		pool:    NewPool[error](workers, workers*16),
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go s.drain()
	return s
}

func (s *AsyncResultSaver) drain() {
	defer close(s.done)
	for res := range s.pool.Results() {
		if res.Output != nil {
			s.logger.Warn("save quiz result failed", zap.String("job", res.JobID), zap.Error(res.Output))
			continue
		}
		s.logger.Debug("quiz result saved", zap.String("job", res.JobID))
	}
}

// SaveResult queues the save. It only fails when the queue cannot take it.
func (s *AsyncResultSaver) SaveResult(_ context.Context, entry quiz.ResultEntry) error {
	return s.pool.TrySubmit(uuid.NewString(), func() error {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		return s.next.SaveResult(ctx, entry)
	})
}

// Close waits for queued saves to finish.
func (s *AsyncResultSaver) Close() {
	s.once.Do(s.pool.Close)
	<-s.done
}
