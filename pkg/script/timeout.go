package script

import (
	"fmt"
	"sync"
	"time"
)

type evalResult struct {
	res *Result
	err error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// once timeout elapses. A result from an older generation is discarded.
//
// On timeout the goroutine may still be running; the generation check
// discards its result when it eventually completes.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	timeout time.Duration,
	mu *sync.Mutex,
	currentGen *uint64,
) (*Result, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()
		if gen != current {
			return nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return r.res, r.err

	case <-timer.C:
		return nil, fmt.Errorf("evaluation timed out after %s", timeout)
	}
}
