package dnet

import (
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher matches inbound frames against a Registry.
type Dispatcher struct {
	mu     sync.Mutex
	reg    *Registry
	ids    *IDGenerator
	logger *zap.Logger
}

// NewDispatcher returns a dispatcher over reg that releases correlation ids through ids.
func NewDispatcher(reg *Registry, ids *IDGenerator, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{reg: reg, ids: ids, logger: logger}
}

// Dispatch decodes raw and dispatches it. Frames that do not decode are dropped.
func (d *Dispatcher) Dispatch(raw []byte) {
	f, err := decodeFrame(raw)
	if err != nil {
		d.logger.Warn("dnet: dropping undecodable frame", zap.Error(err))
		return
	}
	d.DispatchFrame(f)
}

// DispatchFrame invokes every entry matching f and returns how many ran.
// Only one pass runs at a time. Entries registered by a handler during the
// pass are not visited until the next frame.
func (d *Dispatcher) DispatchFrame(f *Frame) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := d.reg.snapshot()
	defer d.reg.compact()

	ok := StatusOK(f.Status)
	invoked := 0
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.action != f.Action || e.removed.Load() {
			continue
		}
		switch e.mode {
		case OneShot:
			if !f.IsSource || f.AsyncID == "" || e.asyncID != f.AsyncID {
				continue
			}
			if !d.reg.remove(e) {
				continue
			}
			d.ids.Release(e.asyncID)
		case Persistent:
			if !ok {
				continue
			}
		}

		d.invoke(e, newResponse(f))
		invoked++
	}

	if invoked == 0 {
		d.logger.Debug("dnet: no handler matched",
			zap.String("action", f.Action),
			zap.Int("status", f.Status),
		)
	}
	return invoked
}

func (d *Dispatcher) invoke(e *entry, res *Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("dnet: handler panicked",
				zap.String("action", e.action),
				zap.Stringer("mode", e.mode),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	e.handler(res)
}
