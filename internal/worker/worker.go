// Package worker runs remote gateway calls on a bounded pool of goroutines,
// serving workspaces fairly.
package worker

import (
	"fmt"

	"sahaj/internal/logger"
)

type JobType string

const (
	Analyze JobType = "analyze"
	Chat    JobType = "chat"
	Locate  JobType = "locate"

	stop JobType = "stop"
)

// Job is one unit of work owned by a workspace.
type Job struct {
	Type      JobType
	Workspace string
	Run       func()
}

type Worker struct {
	id         int
	pool       *jobChannelPool
	jobChannel chan Job
	log        logger.Logger
}

func newWorker(id int, pool *jobChannelPool) *Worker {
	return &Worker{
		id:         id,
		pool:       pool,
		jobChannel: make(chan Job, 1),
		log:        pool.log,
	}
}

// Start runs jobs until the worker is told to stop or the pool refuses to
// take it back.
func (w *Worker) Start() {
	go func() {
		for job := range w.jobChannel {
			if job.Type == stop {
				w.pool.retire(w.jobChannel)
				return
			}
			w.run(job)
			if !w.pool.Release(w.jobChannel) {
				w.pool.retire(w.jobChannel)
				return
			}
		}
	}()
}

func (w *Worker) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("worker", "job panicked", map[string]interface{}{
				"worker":    w.id,
				"job":       job.Type,
				"workspace": job.Workspace,
				"error":     fmt.Errorf("%v", r),
			})
		}
	}()
	w.log.Debug("worker", "run job", map[string]interface{}{"worker": w.id, "job": job.Type, "workspace": job.Workspace})
	job.Run()
}
