package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const idlePoll = 500 * time.Millisecond

// WorkerPool polls the jobs table and dispatches due jobs to registered
// handlers. Handlers may be added to the map after construction as long as
// it happens before Start.
type WorkerPool struct {
	repo        *Repository
	handlers    map[string]Handler
	logger      *slog.Logger
	workerCount int
	stop        chan struct{}
	wg          sync.WaitGroup
}

func NewWorkerPool(repo *Repository, handlers map[string]Handler, logger *slog.Logger, workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		repo:        repo,
		handlers:    handlers,
		logger:      logger,
		workerCount: workerCount,
		stop:        make(chan struct{}),
	}
}

func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals all workers and blocks until they drain.
func (p *WorkerPool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Info("worker stopping", "id", id)
			return
		case <-ctx.Done():
			p.logger.Info("worker context canceled", "id", id)
			return
		default:
		}

		job, err := p.repo.FetchNext(ctx)
		if err != nil {
			p.logger.Error("fetch job", "err", err)
			p.sleep(time.Second)
			continue
		}
		if job == nil {
			p.sleep(idlePoll)
			continue
		}
		p.process(ctx, job)
	}
}

func (p *WorkerPool) process(ctx context.Context, job *Job) {
	h, ok := p.handlers[job.Type]
	if !ok {
		job.Status = StatusFailed
		job.LastError = "no handler registered for type"
		if err := p.repo.MoveToDeadLetter(ctx, job); err != nil {
			p.logger.Error("dead-letter unhandled job", "type", job.Type, "err", err)
		}
		return
	}

	err := h(ctx, job)
	if err == nil {
		job.Status = StatusDone
		if upErr := p.repo.UpdateJob(ctx, job); upErr != nil {
			p.logger.Error("mark job done", "id", job.ID, "err", upErr)
		}
		return
	}
	job.Attempts++
	job.LastError = err.Error()

	if job.Attempts >= job.MaxAttempts {
		job.Status = StatusFailed
		if err := p.repo.MoveToDeadLetter(ctx, job); err != nil {
			p.logger.Error("dead-letter exhausted job", "id", job.ID, "err", err)
		}
		return
	}

	retryAt := time.Now().Add(BackoffDuration(job.Attempts))
	job.NextTryAt = &retryAt
	job.Status = StatusRetry
	if err := p.repo.UpdateJob(ctx, job); err != nil {
		p.logger.Error("schedule retry", "id", job.ID, "err", err)
	}
}

// sleep waits for d but wakes early on Stop so shutdown is not delayed by
// the idle poll interval.
func (p *WorkerPool) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-p.stop:
	}
}

// Enqueue persists a job eligible to run immediately.
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority, maxAttempts int) (int64, error) {
	return p.EnqueueAt(ctx, typ, payload, time.Now(), priority, maxAttempts)
}

// EnqueueAt persists a job that becomes eligible at the given time.
func (p *WorkerPool) EnqueueAt(ctx context.Context, typ string, payload any, at time.Time, priority, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	j := &Job{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: at}
	return p.repo.Enqueue(ctx, j)
}
