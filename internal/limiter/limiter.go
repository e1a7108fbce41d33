package limiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"treeprune/internal/fsops"
)

// Deleter throttles removals to a maximum rate before handing them to the
// wrapped deleter
type Deleter struct {
	ctx     context.Context
	next    fsops.Deleter
	limiter *rate.Limiter
}

// NewDeleter wraps next so that at most perSecond removals happen per second,
// with bursts of up to burst removals. A non-positive rate returns next as is.
// Waiting stops as soon as ctx is done.
func NewDeleter(ctx context.Context, next fsops.Deleter, perSecond float64, burst int) fsops.Deleter {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Deleter{
		ctx:     ctx,
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (d *Deleter) Remove(path string) error {
	if err := d.wait(); err != nil {
		return err
	}
	return d.next.Remove(path)
}

func (d *Deleter) RemoveDir(path string) error {
	if err := d.wait(); err != nil {
		return err
	}
	return d.next.RemoveDir(path)
}

func (d *Deleter) wait() error {
	if err := d.limiter.Wait(d.ctx); err != nil {
		return fmt.Errorf("throttle: %w", err)
	}
	return nil
}
