package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima2d/engine/core"
)

// JobTask is a unit of work. Run executes on a worker goroutine; OnComplete
// and OnFailure execute on the goroutine that calls JobSystem.Update, which
// is the render thread.
type JobTask struct {
	Name       string
	Run        func() (interface{}, error)
	OnComplete func(result interface{})
	OnFailure  func(err error)
}

type jobResult struct {
	task   JobTask
	result interface{}
	err    error
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	results    chan jobResult
	wg         sync.WaitGroup

	mutex   sync.Mutex
	pending int
	closed  bool
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemClosed = fmt.Errorf("job system is shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
		results:    make(chan jobResult, channelSize+numWorkers),
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				result, err := job.Run()
				if err != nil {
					core.LogError("job %s failed: %s", job.Name, err)
				}
				js.results <- jobResult{task: job, result: result, err: err}
			}
		}()
	}
}

/**
 * @brief Shuts the job system down. Queued jobs still run; their callbacks
 * are dropped.
 */
func (js *JobSystem) Shutdown() error {
	js.mutex.Lock()
	if js.closed {
		js.mutex.Unlock()
		return nil
	}
	js.closed = true
	js.mutex.Unlock()

	close(js.jobQueue)
	go func() {
		// Drain so workers never block on a full results channel.
		for range js.results {
		}
	}()
	js.wg.Wait()
	close(js.results)
	return nil
}

/**
 * @brief Runs the callbacks of finished jobs. Should happen once an update
 * cycle, on the render thread.
 */
func (js *JobSystem) Update() {
	for {
		select {
		case r := <-js.results:
			js.mutex.Lock()
			js.pending--
			js.mutex.Unlock()
			if r.err != nil {
				if r.task.OnFailure != nil {
					r.task.OnFailure(r.err)
				}
				continue
			}
			if r.task.OnComplete != nil {
				r.task.OnComplete(r.result)
			}
		default:
			return
		}
	}
}

// Pending counts submitted jobs whose callbacks have not run yet.
func (js *JobSystem) Pending() int {
	js.mutex.Lock()
	defer js.mutex.Unlock()
	return js.pending
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 * @param info The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt JobTask) error {
	js.mutex.Lock()
	if js.closed {
		js.mutex.Unlock()
		return ErrJobSystemClosed
	}
	js.pending++
	js.mutex.Unlock()

	js.jobQueue <- jt
	return nil
}
