package cron

import "context"

// Job is a unit of scheduled work. Name labels logs and metrics; Run does the
// work and reports failure without stopping the rest of the cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in registration order. Order matters: the auction sweep
// runs before retention jobs so cleanup never races a close.
type Registry struct {
	jobs []Job
}

// NewRegistry seeds a registry, silently dropping nil entries so optional
// jobs can be passed straight from conditional construction.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends a job. Nil jobs are ignored.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns a copy so callers cannot mutate the schedule.
func (r *Registry) Jobs() []Job {
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}
