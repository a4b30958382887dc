package escalation

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Processor is satisfied by *Coordinator.
type Processor interface {
	Process(ctx context.Context, req Request) Outcome
}

// DefaultMaxOverflow caps extra goroutines when MaxOverflow is unset.
const DefaultMaxOverflow = 1024

type SchedulerConfig struct {
	Workers     int
	QueueSize   int
	MaxOverflow int
	TaskTimeout time.Duration
}

// Scheduler runs escalation requests in the background. Submit never
// blocks: when the queue is full the request runs on an overflow goroutine,
// at most MaxOverflow at a time, which Close still waits for. With both the
// queue and the overflow saturated the request is dropped and logged.
type Scheduler struct {
	processor Processor
	timeout   time.Duration
	logger    *zap.Logger

	queue         chan Request
	workers       errgroup.Group
	overflow      sync.WaitGroup
	overflowSlots chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewScheduler(processor Processor, config SchedulerConfig, logger *zap.Logger) *Scheduler {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	if config.MaxOverflow <= 0 {
		config.MaxOverflow = DefaultMaxOverflow
	}

	s := &Scheduler{
		processor: processor,
		timeout:   config.TaskTimeout,
		logger:    logger,
		queue:     make(chan Request, config.QueueSize),

		overflowSlots: make(chan struct{}, config.MaxOverflow),
	}

	for i := 0; i < config.Workers; i++ {
		s.workers.Go(func() error {
			for req := range s.queue {
				s.run(req)
			}
			return nil
		})
	}

	logger.Info("Escalation scheduler started",
		zap.Int("workers", config.Workers),
		zap.Int("queue_size", config.QueueSize),
		zap.Int("max_overflow", config.MaxOverflow),
		zap.Duration("task_timeout", config.TaskTimeout))

	return s
}

// Submit schedules req and reports whether it was accepted. It returns false
// after Close or when the queue and every overflow slot are taken.
func (s *Scheduler) Submit(req Request) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.logger.Warn("Escalation dropped, scheduler closed", zap.String("message_id", req.MessageID))
		return false
	}

	select {
	case s.queue <- req:
		return true
	default:
	}

	select {
	case s.overflowSlots <- struct{}{}:
	default:
		s.logger.Error("Escalation dropped, queue and overflow saturated",
			zap.String("message_id", req.MessageID),
			zap.Int("max_overflow", cap(s.overflowSlots)),
			zap.String("severity", "critical"))
		return false
	}

	s.logger.Warn("Escalation queue full, running on overflow goroutine",
		zap.String("message_id", req.MessageID))
	s.overflow.Add(1)
	go func() {
		defer func() {
			<-s.overflowSlots
			s.overflow.Done()
		}()
		s.run(req)
	}()
	return true
}

// Close stops accepting work, drains the queue and waits for every task.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	err := s.workers.Wait()
	s.overflow.Wait()
	return err
}

// run is the task boundary: a detached context with its own deadline and a
// recover so one bad message cannot take the process down.
func (s *Scheduler) run(req Request) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Escalation task panicked",
				zap.String("message_id", req.MessageID),
				zap.String("panic", fmt.Sprint(r)),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	outcome := s.processor.Process(ctx, req)
	if outcome.Flagged() {
		s.logger.Info("Escalation produced a flag",
			zap.String("message_id", req.MessageID),
			zap.Stringer("outcome", outcome),
			zap.Duration("elapsed", time.Since(start)))
		return
	}
	s.logger.Debug("Escalation finished",
		zap.String("message_id", req.MessageID),
		zap.Stringer("outcome", outcome),
		zap.Duration("elapsed", time.Since(start)))
}
