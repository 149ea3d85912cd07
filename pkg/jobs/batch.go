package jobs

import (
	"context"
	"sync"
)

// Task is a single unit of a batch identified by a caller-supplied key.
type Task struct {
	Key string
	Run func(ctx context.Context) error
}

// BatchResult reports the outcome of one task.
type BatchResult struct {
	Key string
	Err error
}

// RunBatch fans the tasks out over a bounded pool of workers and waits for
// all of them to finish. Each task runs independently; one failure never
// aborts the others. Results are returned in task order.
func RunBatch(ctx context.Context, workers int, tasks []Task) []BatchResult {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	results := make([]BatchResult, len(tasks))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				task := tasks[idx]
				results[idx] = BatchResult{Key: task.Key, Err: task.Run(ctx)}
			}
		}()
	}

	for i := range tasks {
		select {
		case indexes <- i:
		case <-ctx.Done():
			results[i] = BatchResult{Key: tasks[i].Key, Err: ctx.Err()}
		}
	}
	close(indexes)
	wg.Wait()

	return results
}
