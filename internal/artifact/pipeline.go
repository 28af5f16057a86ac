package artifact

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Job is one pipeline stage. Consumes and Produces name artifacts; the
// pipeline orders jobs so every producer runs before its consumers.
// Consumed artifacts nothing produces are treated as preexisting inputs.
type Job struct {
	Name     string
	Consumes []string
	Produces []string
	Run      func() error
}

// Pipeline runs jobs in dependency order.
type Pipeline struct {
	jobs []Job
}

// Add appends a job. Registration order breaks ties between independent
// jobs, keeping runs deterministic.
func (p *Pipeline) Add(jobs ...Job) {
	p.jobs = append(p.jobs, jobs...)
}

// Jobs returns the registered jobs in registration order.
func (p *Pipeline) Jobs() []Job {
	return p.jobs
}

// Order returns the jobs sorted so producers precede consumers. A
// dependency cycle is an error naming the jobs involved.
func (p *Pipeline) Order() ([]Job, error) {
	producer := make(map[string]int)
	for i, job := range p.jobs {
		for _, art := range job.Produces {
			if prev, ok := producer[art]; ok {
				return nil, fmt.Errorf("artifact %s produced by both %s and %s", art, p.jobs[prev].Name, job.Name)
			}
			producer[art] = i
		}
	}

	// Kahn's algorithm over job indexes, visiting ready jobs in
	// registration order.
	deps := make([]map[int]bool, len(p.jobs))
	dependents := make([][]int, len(p.jobs))
	for i, job := range p.jobs {
		deps[i] = make(map[int]bool)
		for _, art := range job.Consumes {
			if from, ok := producer[art]; ok && from != i {
				if !deps[i][from] {
					deps[i][from] = true
					dependents[from] = append(dependents[from], i)
				}
			}
		}
	}

	var order []Job
	done := make([]bool, len(p.jobs))
	for len(order) < len(p.jobs) {
		progressed := false
		for i, job := range p.jobs {
			if done[i] || len(deps[i]) > 0 {
				continue
			}
			done[i] = true
			progressed = true
			order = append(order, job)
			for _, dep := range dependents[i] {
				delete(deps[dep], i)
			}
		}
		if !progressed {
			var stuck []string
			for i, job := range p.jobs {
				if !done[i] {
					stuck = append(stuck, job.Name)
				}
			}
			return nil, fmt.Errorf("dependency cycle among jobs: %s", strings.Join(stuck, ", "))
		}
	}
	return order, nil
}

// Run executes every job in dependency order, stopping at the first
// failure.
func (p *Pipeline) Run() error {
	order, err := p.Order()
	if err != nil {
		return err
	}
	for _, job := range order {
		log.Printf("running %s", job.Name)
		start := time.Now()
		if err := job.Run(); err != nil {
			return fmt.Errorf("%s: %w", job.Name, err)
		}
		log.Printf("%s completed in %v", job.Name, time.Since(start))
	}
	return nil
}
