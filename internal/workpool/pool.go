// Package workpool bounds how many blocking jobs (ffmpeg runs) execute at once.
package workpool

import (
	"context"
	"fmt"
)

// Pool runs jobs on at most Size concurrent slots.
type Pool struct {
	slots chan struct{}
}

// New creates a pool with size slots. size < 1 is treated as 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{slots: make(chan struct{}, size)}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return cap(p.slots)
}

// Do waits for a free slot and runs fn in it. It returns ctx.Err() if the
// context ends before a slot frees up. A panic in fn is returned as an error.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.slots }()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workpool: job panicked: %v", r)
		}
	}()

	return fn(ctx)
}
