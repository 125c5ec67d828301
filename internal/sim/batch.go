package sim

import (
	"context"
	"sync"
)

// Job is one independent offline run.
type Job struct {
	Name       string
	Controller *StepController
}

type BatchResult struct {
	Name   string
	Result *Result
	Err    error
}

// Batch runs independent controllers concurrently, one goroutine each, up to
// workers at a time. Results keep the order of jobs.
type Batch struct {
	jobs    []Job
	workers int
}

func NewBatch(workers int, jobs ...Job) *Batch {
	if workers <= 0 {
		workers = 1
	}
	return &Batch{jobs: jobs, workers: workers}
}

func (b *Batch) Add(name string, c *StepController) {
	b.jobs = append(b.jobs, Job{Name: name, Controller: c})
}

func (b *Batch) Run(ctx context.Context) []BatchResult {
	results := make([]BatchResult, len(b.jobs))
	sem := make(chan struct{}, b.workers)

	var wg sync.WaitGroup
	for i, job := range b.jobs {
		wg.Add(1)
		go func(idx int, job Job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := job.Controller.Run(ctx)
			results[idx] = BatchResult{Name: job.Name, Result: res, Err: err}
		}(i, job)
	}

	wg.Wait()
	return results
}
