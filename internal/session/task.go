package session

import "context"

// turnTask is the cancellable handle for an in-flight turn pipeline. The
// owning goroutine must call finish exactly once when it exits; cancellers
// call cancelAndWait and may rely on the task having fully unwound when it
// returns.
type turnTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func newTurnTask(cancel context.CancelFunc) *turnTask {
	return &turnTask{cancel: cancel, done: make(chan struct{})}
}

// finish marks the task as unwound. Called by the pipeline goroutine itself.
func (t *turnTask) finish() {
	close(t.done)
}

// cancelAndWait cancels the task's context and blocks until the pipeline
// goroutine has exited. Safe to call multiple times and from any goroutine
// except the pipeline's own.
func (t *turnTask) cancelAndWait() {
	t.cancel()
	<-t.done
}

// running reports whether the pipeline goroutine is still alive.
func (t *turnTask) running() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}
