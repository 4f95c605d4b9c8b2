package cron

import "context"

// Job is one unit of scheduled work run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order.
type Registry struct {
	jobs []Job
}

func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds job unless it is nil or its name is already taken.
func (r *Registry) Register(job Job) bool {
	if job == nil || r.Lookup(job.Name()) != nil {
		return false
	}
	r.jobs = append(r.jobs, job)
	return true
}

// Lookup returns the job registered under name, or nil.
func (r *Registry) Lookup(name string) Job {
	for _, job := range r.jobs {
		if job.Name() == name {
			return job
		}
	}
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
