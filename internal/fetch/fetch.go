package fetch

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"entrain/internal/biosignal"
	"entrain/internal/logging"
)

// Task is the input bundle for one respondent fetch. Everything a worker
// needs travels in the task itself; workers capture no ambient state.
type Task struct {
	Study      string
	Stimulus   string
	Segment    string
	Respondent biosignal.Respondent
	Bands      []biosignal.Band
}

// Fetcher retrieves one respondent's series. Implementations must be safe
// for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, task Task) (biosignal.Series, error)
}

// Func adapts a plain function to the Fetcher interface.
type Func func(ctx context.Context, task Task) (biosignal.Series, error)

func (f Func) Fetch(ctx context.Context, task Task) (biosignal.Series, error) {
	return f(ctx, task)
}

// Result pairs a task with its outcome. Err is per-task; the batch always
// runs to completion.
type Result struct {
	Task   Task
	Series biosignal.Series
	Err    error
}

// All fans the tasks out over a bounded worker pool and returns one result
// per task, in task order. Workers pull task indexes from a channel and
// write only their own result slot, so no locking is needed and the merge
// is deterministic.
func All(ctx context.Context, fetcher Fetcher, tasks []Task, parallelism int, logger *slog.Logger) []Result {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	log := logging.NewComponentLogger(logger, "fetch")

	workers := Workers(parallelism, len(tasks))
	log.Debug("dispatching fetch tasks",
		logging.Int("task_count", len(tasks)),
		logging.Int("workers", workers))

	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				task := tasks[i]
				started := time.Now()
				series, err := fetcher.Fetch(ctx, task)
				results[i] = Result{Task: task, Series: series, Err: err}
				if err != nil {
					log.Warn("respondent fetch failed",
						logging.String(logging.FieldRespondent, task.Respondent.ID),
						logging.Error(err),
						logging.Duration("duration", time.Since(started)))
					continue
				}
				log.Debug("respondent fetched",
					logging.String(logging.FieldRespondent, task.Respondent.ID),
					logging.Int("sample_count", series.Len()),
					logging.Duration("duration", time.Since(started)))
			}
		}()
	}
	for i := range tasks {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return results
}

// Workers is the pool size for a given parallelism and task count: one
// below the available parallelism, at least one, at most one per task.
// Zero parallelism means the machine's CPU count.
func Workers(parallelism, taskCount int) int {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	workers := parallelism - 1
	if workers < 1 {
		workers = 1
	}
	if workers > taskCount {
		workers = taskCount
	}
	return workers
}
