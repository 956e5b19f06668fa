package bot

import (
	"context"
	"time"
)

// Clock is the time source consulted by the search.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// deadline computes the cut-off for one move selection. A context deadline
// earlier than start+budget wins.
func deadline(ctx context.Context, start time.Time, budget time.Duration) time.Time {
	d := start.Add(budget)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		d = ctxDeadline
	}
	return d
}
