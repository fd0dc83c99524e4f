package script

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// ErrSuperseded is returned when a newer evaluation started while this one
// was running.
var ErrSuperseded = errors.New("script: evaluation superseded by newer request")

// evalResult passes an evaluation outcome from the worker goroutine.
type evalResult struct {
	result *Result
	errors []EvalError
	err    error
}

// waitWithTimeout waits for the worker's result or gives up after timeout.
// A result whose generation is no longer current is discarded. On timeout
// the worker may still be running; its result is dropped when it arrives.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	timeout time.Duration,
) (*Result, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.result, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("script: evaluation timed out after %s", timeout)
	}
}
