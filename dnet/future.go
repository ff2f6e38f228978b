package dnet

import (
	"context"
	"sync"
)

// Future is the pending outcome of a Fire. It settles at most once.
type Future struct {
	id     string
	action string
	reg    *Registry
	entry  *entry

	once sync.Once
	done chan struct{}
	res  *Response
	err  error
}

func newFuture(id, action string, reg *Registry) *Future {
	return &Future{id: id, action: action, reg: reg, done: make(chan struct{})}
}

// ID returns the correlation id carried by the request.
func (f *Future) ID() string { return f.id }

// Action returns the fully prefixed action the request was sent on.
func (f *Future) Action() string { return f.action }

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the future settles or ctx ends. Giving up on ctx leaves the
// request registered; call Cancel to drop it.
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel drops the pending request and settles the future with ErrCanceled.
// It has no effect on a future that already settled.
func (f *Future) Cancel() {
	if f.settle(nil, ErrCanceled) && f.entry != nil {
		f.reg.drop(f.entry)
	}
}

// complete is the OneShot handler behind the future.
func (f *Future) complete(res *Response) {
	if res.OK {
		f.settle(res, nil)
		return
	}
	f.settle(res, &StatusError{Action: f.action, Response: res})
}

func (f *Future) settle(res *Response, err error) bool {
	settled := false
	f.once.Do(func() {
		f.res, f.err = res, err
		close(f.done)
		settled = true
	})
	return settled
}
