package explore

import (
	"context"
	"time"
)

// Op is one cancellable step of a race. It must return soon after ctx is done.
type Op func(ctx context.Context) error

// FirstOf runs ops concurrently and returns the result of the first one to
// finish, successful or not. The others are cancelled through their context
// and their results are discarded. With a positive timeout the whole race is
// bounded and context.DeadlineExceeded is returned when nothing finished in time.
func FirstOf(ctx context.Context, timeout time.Duration, ops ...Op) error {
	if len(ops) == 0 {
		return nil
	}

	var (
		raceCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		raceCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		raceCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	// buffered so losers never block after the race is decided
	results := make(chan error, len(ops))
	for _, op := range ops {
		go func(op Op) {
			results <- op(raceCtx)
		}(op)
	}

	select {
	case err := <-results:
		return err
	case <-raceCtx.Done():
		return raceCtx.Err()
	}
}
