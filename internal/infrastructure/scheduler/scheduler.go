// Package scheduler runs periodic background tasks such as the mail
// failure alert and the unpaid order sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a function run on a fixed interval
type Task struct {
	Name     string
	Interval time.Duration
	// Timeout bounds each run; zero means the interval
	Timeout time.Duration
	// RunOnStart triggers a first run right after Start
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// TaskStatus reports the outcome of past runs
type TaskStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Runs      int           `json:"runs"`
	Failures  int           `json:"failures"`
	LastRunAt *time.Time    `json:"last_run_at,omitempty"`
	LastError string        `json:"last_error,omitempty"`
	Running   bool          `json:"running"`
}

type taskState struct {
	task   Task
	mu     sync.Mutex // guards status
	status TaskStatus
}

// Scheduler runs registered tasks, one goroutine per task
type Scheduler struct {
	logger *zap.Logger

	mu        sync.Mutex
	tasks     map[string]*taskState
	order     []string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// New creates a scheduler
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger: logger,
		tasks:  make(map[string]*taskState),
	}
}

// Register adds a task. Tasks must be registered before Start.
func (s *Scheduler) Register(task Task) error {
	if task.Name == "" || task.Interval <= 0 || task.Run == nil {
		return fmt.Errorf("%w: %q", ErrInvalidTask, task.Name)
	}
	if task.Timeout <= 0 {
		task.Timeout = task.Interval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, exists := s.tasks[task.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTask, task.Name)
	}
	s.tasks[task.Name] = &taskState{
		task:   task,
		status: TaskStatus{Name: task.Name, Interval: task.Interval},
	}
	s.order = append(s.order, task.Name)
	return nil
}

// Start launches the task loops
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, name := range s.order {
		st := s.tasks[name]
		s.wg.Add(1)
		go s.loop(ctx, st)
	}
	s.logger.Info("Scheduler started", zap.Strings("tasks", s.order))
}

// Stop cancels the loops and waits for running tasks until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow runs a task synchronously outside its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	st, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrTaskNotFound, name)
	}
	return s.execute(ctx, st)
}

// Status returns a snapshot of every task in registration order
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskStatus, 0, len(s.order))
	for _, name := range s.order {
		st := s.tasks[name]
		st.mu.Lock()
		out = append(out, st.status)
		st.mu.Unlock()
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, st *taskState) {
	defer s.wg.Done()

	if st.task.RunOnStart {
		_ = s.execute(ctx, st)
	}

	ticker := time.NewTicker(st.task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.execute(ctx, st)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, st *taskState) (err error) {
	st.mu.Lock()
	st.status.Running = true
	st.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, st.task.Timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", st.task.Name, r)
		}

		st.mu.Lock()
		st.status.Running = false
		st.status.Runs++
		st.status.LastRunAt = &start
		st.status.LastError = ""
		if err != nil {
			st.status.Failures++
			st.status.LastError = err.Error()
		}
		st.mu.Unlock()

		if err != nil {
			s.logger.Error("Scheduled task failed",
				zap.String("task", st.task.Name),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err))
			return
		}
		s.logger.Debug("Scheduled task completed",
			zap.String("task", st.task.Name),
			zap.Duration("duration", time.Since(start)))
	}()

	return st.task.Run(runCtx)
}
