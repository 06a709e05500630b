package actorutil

import (
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// BackgroundTask runs a blocking call off the actor goroutine and pipes its
// outcome back as a message. Without a fallback, failures are dropped.
type BackgroundTask[T any] struct {
	system   *actor.ActorSystem
	call     func() (T, error)
	timeout  time.Duration
	fallback func(error) T
}

func NewBackgroundTask[T any](ctx actor.Context, call func() (T, error)) *BackgroundTask[T] {
	return &BackgroundTask[T]{
		system: ctx.ActorSystem(),
		call:   call,
	}
}

func (t *BackgroundTask[T]) WithTimeout(timeout time.Duration) *BackgroundTask[T] {
	t.timeout = timeout
	return t
}

// Fallback turns a failure, timeouts included, into a regular result.
func (t *BackgroundTask[T]) Fallback(fn func(error) T) *BackgroundTask[T] {
	t.fallback = fn
	return t
}

func (t *BackgroundTask[T]) PipeTo(pid *actor.PID) {
	go func() {
		if value, ok := t.Await(); ok {
			t.system.Root.Send(pid, value)
		}
	}()
}

// Await runs the call on the current goroutine.
func (t *BackgroundTask[T]) Await() (T, bool) {
	task := io.Eval(t.call)
	if t.timeout > 0 {
		task = io.WithTimeout[T](t.timeout)(task)
	}
	if t.fallback != nil {
		task = io.Recover(task, func(err error) io.IO[T] {
			return io.Eval(func() (T, error) {
				return t.fallback(err), nil
			})
		})
	}
	result := io.RunSync(task)
	if result.Error != nil {
		return result.Value, false
	}
	return result.Value, true
}
