package worker

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"

	"sahaj/internal/logger"
)

var (
	ErrDispatcherBusy   = errors.New("dispatcher queue full")
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

type workspaceQueue struct {
	jobs     []Job
	enqueued bool
}

// Dispatcher queues jobs per workspace and hands them to the pool
// round-robin, so one busy workspace cannot starve the others.
type Dispatcher struct {
	pool     *jobChannelPool
	jobQueue chan Job // intake for outer jobs
	log      logger.Logger

	mu        sync.Mutex
	queues    map[string]*workspaceQueue
	ready     *list.List // workspaces with pending jobs, in service order
	positions map[string]*list.Element

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewDispatcher(minWorkers, maxWorkers, queueSize int, idleTimeout time.Duration, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		pool:      newJobChannelPool(minWorkers, maxWorkers, idleTimeout, log),
		jobQueue:  make(chan Job, queueSize),
		log:       log,
		queues:    make(map[string]*workspaceQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	for i := 0; i < minWorkers; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Submit hands a job to the dispatcher without blocking.
func (d *Dispatcher) Submit(job Job) error {
	if job.Run == nil {
		return errors.New("job has nothing to run")
	}
	select {
	case <-d.quit:
		return ErrDispatcherClosed
	default:
	}
	select {
	case d.jobQueue <- job:
		return nil
	default:
		d.log.Warn("dispatcher", "intake queue full", map[string]interface{}{"job": job.Type, "workspace": job.Workspace})
		return ErrDispatcherBusy
	}
}

// Do submits fn and waits for its result or for ctx to end. A job that is
// already queued still runs after ctx ends; its result is discarded.
func Do[T any](ctx context.Context, d *Dispatcher, typ JobType, workspace string, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	var zero T
	out := make(chan result, 1)
	err := d.Submit(Job{Type: typ, Workspace: workspace, Run: func() {
		val, err := fn()
		out <- result{val: val, err: err}
	}})
	if err != nil {
		return zero, err
	}
	select {
	case r := <-out:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-d.done:
		return zero, ErrDispatcherClosed
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		// dispatch one job of the workspace at the front of the queue
		if !d.dispatchOne() {
			select {
			case job := <-d.jobQueue:
				d.enqueueJob(job)
			case <-d.quit:
				return
			}
			continue
		}
		select {
		case job := <-d.jobQueue:
			d.enqueueJob(job)
		case <-d.quit:
			return
		default:
		}
	}
}

// CancelWorkspace drops every job still queued for workspace.
func (d *Dispatcher) CancelWorkspace(workspace string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.queues, workspace)
	if elem, ok := d.positions[workspace]; ok {
		d.ready.Remove(elem)
		delete(d.positions, workspace)
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.Workspace]
	if q == nil {
		q = &workspaceQueue{}
		d.queues[job.Workspace] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued {
		return
	}
	q.enqueued = true
	d.positions[job.Workspace] = d.ready.PushBack(job.Workspace)
}

// next pops one job from the workspace at the front and moves that workspace
// to the back if it still has work.
func (d *Dispatcher) next() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	elem := d.ready.Front()
	if elem == nil {
		return Job{}, false
	}
	workspace := elem.Value.(string)
	q := d.queues[workspace]
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		q.enqueued = false
		d.ready.Remove(elem)
		delete(d.positions, workspace)
		delete(d.queues, workspace)
	} else {
		d.ready.MoveToBack(elem)
	}
	return job, true
}

func (d *Dispatcher) dispatchOne() bool {
	job, ok := d.next()
	if !ok {
		return false
	}
	workerChan := d.pool.acquire()
	if workerChan == nil {
		return false
	}
	d.log.Debug("dispatcher", "assign job", map[string]interface{}{
		"job":       job.Type,
		"workspace": job.Workspace,
		"worker":    d.pool.workerID(workerChan),
	})
	workerChan <- job
	return true
}

// Close stops dispatching and retires the workers. Queued jobs are dropped;
// running jobs finish.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.quit)
		d.pool.close()
		<-d.done
	})
}
