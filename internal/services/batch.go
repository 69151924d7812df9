package services

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one independent unit of best-effort work
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// TaskResult is the outcome of one task
type TaskResult struct {
	Name string
	Err  error
}

// RunBatch runs tasks concurrently, at most limit at a time, and returns one
// result per task in input order. A failing task never cancels its siblings.
func RunBatch(ctx context.Context, limit int, tasks []Task) []TaskResult {
	results := make([]TaskResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			results[i] = TaskResult{Name: task.Name, Err: task.Run(ctx)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// FailedResults filters results down to failures
func FailedResults(results []TaskResult) []TaskResult {
	var failed []TaskResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
