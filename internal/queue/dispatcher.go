package queue

import (
	"container/heap"
	"context"
	"time"

	"github.com/harrison/agentcore/internal/agentcore"
)

// Start launches maxConcurrent worker goroutines plus the dependency
// checker and retention sweeper, all stopped by Close. ctx bounds the
// lifetime of every task execution; cancelling it does not stop the
// workers themselves (use Close for that), only any strategy currently
// running.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.maxConcurrent; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	q.wg.Add(1)
	go q.dependencyCheckLoop()
	q.wg.Add(1)
	go q.cleanupLoop()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case <-q.wake:
		case <-ticker.C:
		}
		for {
			task, ok := q.popReady()
			if !ok {
				break
			}
			q.runTask(ctx, task)
			select {
			case <-q.stopCh:
				return
			default:
			}
		}
	}
}

// popReady removes and returns the highest-priority ready task, or false if
// the ready set is empty, paused, or a worker slot is unavailable.
func (q *Queue) popReady() (*agentcore.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.paused || len(q.running) >= q.maxConcurrent || q.ready.Len() == 0 {
		return nil, false
	}
	e := heap.Pop(&q.ready).(*entry)
	delete(q.entries, e.taskID)
	task, ok := q.tasks[e.taskID]
	if !ok || !task.CanExecute() {
		return nil, false
	}
	// Reserve a running slot immediately so the maxConcurrent check above
	// stays accurate; runTask replaces this no-op with the real
	// cancellation func once the strategy's context exists.
	q.running[task.ID] = func() {}
	return task, true
}

// runTask executes task's strategy to completion (success, failure, timeout,
// or cooperative cancellation) and applies the resulting transition.
func (q *Queue) runTask(parent context.Context, task *agentcore.Task) {
	if !task.CanExecute() {
		// Cancelled between popReady reserving this slot and here.
		q.mu.Lock()
		delete(q.running, task.ID)
		q.mu.Unlock()
		return
	}
	task.MarkStarted()
	if q.logger != nil {
		q.logger.LogTaskStarted(task)
	}
	q.store.Set("current_task_id", task.ID)

	runCtx := parent
	var timeoutCancel context.CancelFunc
	if task.Timeout > 0 {
		runCtx, timeoutCancel = context.WithTimeout(parent, task.Timeout)
	}
	// runCtx is also the handle Cancel(id) uses: a cooperative Cancel()
	// call invokes runCancel below to interrupt the strategy in place.
	runCtx, runCancel := context.WithCancel(runCtx)
	q.mu.Lock()
	q.running[task.ID] = runCancel
	q.mu.Unlock()

	var result agentcore.TaskResult
	var err error
	if q.registry != nil {
		if strat, ok := q.registry.Lookup(task.Kind); ok {
			result, err = strat.Execute(runCtx, task)
		} else {
			err = agentcore.NewTaskError(task.ID, "no strategy registered for kind "+string(task.Kind), nil)
		}
	} else {
		err = agentcore.NewTaskError(task.ID, "queue has no strategy registry", nil)
	}
	// Capture the cancellation state before runCancel below makes runCtx.Err()
	// unconditionally non-nil.
	ctxErr := runCtx.Err()
	if timeoutCancel != nil {
		timeoutCancel()
	}
	runCancel()

	q.mu.Lock()
	delete(q.running, task.ID)
	q.mu.Unlock()

	var willRetry bool
	switch {
	case ctxErr == context.Canceled:
		// Cancel() already applied the CANCELLED transition and notified.
	case ctxErr == context.DeadlineExceeded:
		task.MarkTimeout()
		if q.logger != nil {
			q.logger.LogTaskFailed(task, err)
		}
	case err == nil:
		task.MarkCompleted(result)
		q.store.IncrementTotalTasksExecuted()
		if q.logger != nil {
			q.logger.LogTaskCompleted(task)
		}
		q.promoteDependents(task.ID)
	default:
		task.MarkFailed(err.Error())
		if q.logger != nil {
			q.logger.LogTaskFailed(task, err)
		}
		if task.ShouldRetry() && isRetryable(err) {
			willRetry = true
			delay := retryBackoff(task.RetryCount)
			if q.logger != nil {
				q.logger.LogTaskRetryScheduled(task, delay)
			}
			q.scheduleRetry(task, delay)
		}
	}

	q.mu.Lock()
	if ctxErr != context.Canceled && !willRetry {
		q.notifyCompletionLocked(task)
	}
	q.publishCountsLocked()
	q.mu.Unlock()
}

// isRetryable reports whether err belongs to a class the dispatcher should
// retry. Validation and denylist failures are deterministic: the same
// parameters will fail again, so retrying only burns the backoff budget for
// no gain. Everything else (transient TaskErrors, remote protocol failures)
// is assumed retryable.
func isRetryable(err error) bool {
	if agentcore.IsValidationError(err) || agentcore.IsCommandBlocked(err) {
		return false
	}
	return true
}

// retryBackoff is the linear, capped retry delay: min(60s, retryCount*10s).
func retryBackoff(retryCount int) time.Duration {
	d := time.Duration(retryCount) * 10 * time.Second
	if d > MaxRetryBackoff {
		return MaxRetryBackoff
	}
	return d
}

// scheduleRetry re-queues task after delay. The task re-enters QUEUED with a
// fresh sequence number, so it does not preserve its original position.
func (q *Queue) scheduleRetry(task *agentcore.Task, delay time.Duration) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.stopCh:
			return
		case <-timer.C:
		}
		q.mu.Lock()
		if _, live := q.tasks[task.ID]; !live {
			q.mu.Unlock()
			return
		}
		task.Status = agentcore.StatusPending
		task.MarkQueued()
		q.pushReadyLocked(task)
		q.publishCountsLocked()
		q.mu.Unlock()
		q.signalWake()
	}()
}

// promoteDependents re-scans every WAITING_FOR_DEPENDENCIES task and moves
// it to QUEUED if completedTaskID was its last unmet dependency. This is the
// fast path; dependencyCheckLoop is the periodic belt-and-braces sweep in
// case promotion ordering ever misses a case.
func (q *Queue) promoteDependents(completedTaskID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	promoted := false
	for _, t := range q.tasks {
		if t.Status != agentcore.StatusWaitingForDependencies {
			continue
		}
		dependsOnCompleted := false
		for _, dep := range t.Dependencies {
			if dep == completedTaskID {
				dependsOnCompleted = true
				break
			}
		}
		if !dependsOnCompleted {
			continue
		}
		if q.allDependenciesCompleteLocked(t) {
			t.MarkQueued()
			q.pushReadyLocked(t)
			promoted = true
		}
	}
	if promoted {
		q.publishCountsLocked()
		q.signalWake()
	}
}

// dependencyCheckLoop is the periodic sweep spec.md calls for in addition to
// promote-on-completion: every WAITING_FOR_DEPENDENCIES task is re-examined
// in case its dependency completed via a path that didn't call
// promoteDependents.
func (q *Queue) dependencyCheckLoop() {
	defer q.wg.Done()
	ticker := time.NewTicker(q.dependencyCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
		}
		q.mu.Lock()
		promoted := false
		for _, t := range q.tasks {
			if t.Status == agentcore.StatusWaitingForDependencies && q.allDependenciesCompleteLocked(t) {
				t.MarkQueued()
				q.pushReadyLocked(t)
				promoted = true
			}
		}
		if promoted {
			q.publishCountsLocked()
		}
		q.mu.Unlock()
		if promoted {
			q.signalWake()
		}
	}
}

// cleanupLoop runs the retention sweep on cleanupInterval.
func (q *Queue) cleanupLoop() {
	defer q.wg.Done()
	ticker := time.NewTicker(q.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.Cleanup()
		}
	}
}
