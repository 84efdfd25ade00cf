package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/driftsync/driftsync/internal/engine"
)

// Executor runs engine storage tasks against a Store on a single worker
// goroutine, preserving submission order, and hands each completion to the
// sink. It satisfies engine.Storage.
//
// Submit never blocks: tasks park in an internal unbounded queue, the same
// contract the engine's own event queue gives its submitters.
type Executor struct {
	store *Store
	sink  func(engine.IoResult)
	log   *slog.Logger

	mu     sync.Mutex
	tasks  []engine.IoTask
	closed bool
	signal chan struct{}

	done chan struct{}
}

// NewExecutor creates an executor and starts its worker. The sink receives
// every completion, in task order; it must not block for long.
func NewExecutor(store *Store, log *slog.Logger, sink func(engine.IoResult)) *Executor {
	x := &Executor{
		store:  store,
		sink:   sink,
		log:    log,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go x.work()
	return x
}

// Submit queues a task for execution. Tasks submitted after Close are
// dropped; the engine is shutting down and no longer routes completions.
func (x *Executor) Submit(task engine.IoTask) {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return
	}
	x.tasks = append(x.tasks, task)
	x.mu.Unlock()

	select {
	case x.signal <- struct{}{}:
	default:
	}
}

// Close stops the worker after it drains queued tasks.
func (x *Executor) Close() {
	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		return
	}
	x.closed = true
	x.mu.Unlock()

	select {
	case x.signal <- struct{}{}:
	default:
	}
	<-x.done
}

func (x *Executor) work() {
	defer close(x.done)

	for {
		task, ok := x.next()
		if !ok {
			x.mu.Lock()
			closed := x.closed
			x.mu.Unlock()
			if closed {
				return
			}
			<-x.signal
			continue
		}
		x.sink(x.execute(task))
	}
}

func (x *Executor) next() (engine.IoTask, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(x.tasks) == 0 {
		return engine.IoTask{}, false
	}
	task := x.tasks[0]
	x.tasks[0] = engine.IoTask{}
	x.tasks = x.tasks[1:]
	return task, true
}

func (x *Executor) execute(task engine.IoTask) engine.IoResult {
	ctx := context.Background()
	res := engine.IoResult{TaskID: task.ID, Action: task.Action}

	switch task.Action {
	case engine.IoPut:
		if err := x.store.Put(ctx, task.Key, task.Payload); err != nil {
			res.Err = err.Error()
		}
	case engine.IoLoad:
		value, err := x.store.Get(ctx, task.Key)
		if err != nil {
			res.Err = err.Error()
			break
		}
		res.Payload = value
	case engine.IoLoadRange:
		entries, err := x.store.LoadRange(ctx, task.Key)
		if err != nil {
			res.Err = err.Error()
			break
		}
		res.Entries = make([]engine.IoEntry, len(entries))
		for i, e := range entries {
			res.Entries[i] = engine.IoEntry{Key: e.Key, Value: e.Value}
		}
	case engine.IoDelete:
		if err := x.store.Delete(ctx, task.Key); err != nil {
			res.Err = err.Error()
		}
	default:
		res.Err = "unknown storage action"
	}

	if res.Err != "" {
		x.log.Warn("storage task failed",
			"task_id", task.ID,
			"action", task.Action.String(),
			"key", task.Key,
			"err", res.Err)
	}
	return res
}
