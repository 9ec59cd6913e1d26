package rpc

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/blerpc/internal/groutine"
)

// Executor runs posted tasks one at a time, in the order they were posted.
// Post must not block and must be safe to call from any goroutine.
type Executor interface {
	Post(task func())
}

// Sequencer is an Executor backed by a single named goroutine and an
// unbounded FIFO. Tasks posted after Close are dropped.
type Sequencer struct {
	name   string
	logger *logrus.Logger

	mu     sync.Mutex
	tasks  []func()
	closed bool

	wake chan struct{}
	done chan struct{}
}

// NewSequencer starts a sequencer goroutine named name. It exits after
// Close once every previously posted task has run, or when ctx is done.
func NewSequencer(ctx context.Context, name string, logger *logrus.Logger) *Sequencer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Sequencer{
		name:   name,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	groutine.Go(ctx, name, s.run)
	return s
}

// Post enqueues task
func (s *Sequencer) Post(task func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.WithField("sequencer", s.name).Debug("Dropping task posted after close")
		return
	}
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting tasks. Already posted tasks still run.
func (s *Sequencer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Done is closed when the sequencer goroutine has exited
func (s *Sequencer) Done() <-chan struct{} {
	return s.done
}

func (s *Sequencer) run(ctx context.Context) {
	defer close(s.done)

	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-s.wake:
				continue
			case <-ctx.Done():
				s.logger.WithField("goroutine", groutine.Name(ctx)).Debug("Sequencer context done, exiting")
				return
			}
		}
		task := s.tasks[0]
		s.tasks[0] = nil
		s.tasks = s.tasks[1:]
		s.mu.Unlock()

		s.runTask(task)
	}
}

func (s *Sequencer) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{
				"sequencer": s.name,
				"panic":     r,
			}).Error("Task panicked")
		}
	}()
	task()
}
