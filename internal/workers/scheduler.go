package workers

import (
	"context"
	"fmt"
	"time"

	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/metrics"

	"github.com/robfig/cron/v3"
)

// JobFunc - одна периодическая задача
type JobFunc func(ctx context.Context) error

// Scheduler - обертка над robfig/cron с логированием и метриками.
// Расписания в формате с секундами: "0 */10 * * * *".
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

func NewScheduler(timeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
}

// Add регистрирует задачу. Пустое расписание означает, что задача выключена.
func (s *Scheduler) Add(name, spec string, job JobFunc) error {
	if spec == "" {
		logger.Info("cron job disabled", "job", name)
		return nil
	}

	_, err := s.cron.AddFunc(spec, func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	logger.Info("cron job scheduled", "job", name, "schedule", spec)
	return nil
}

func (s *Scheduler) run(name string, job JobFunc) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = job(ctx)
	}()

	metrics.RecordCronRun(name, err)
	logger.WorkerLog("cron", name, err, "duration_ms", time.Since(start).Milliseconds())
}

// RunNow выполняет задачу вне расписания (CLI, тесты)
func (s *Scheduler) RunNow(name string, job JobFunc) {
	s.run(name, job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop отменяет контекст задач и ждет завершения текущих запусков
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warn("cron jobs did not finish before shutdown deadline")
	}
}

func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}
