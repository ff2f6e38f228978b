// Package dnet routes messages over a single duplex connection by action name.
//
// Handlers are registered against actions with On, requests are sent with Fire
// and settle through a Future when the correlated reply arrives, and Namespace
// composes action prefixes over the same handler registry.
package dnet

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mrjvadi/go-dnet/transport"
)

// Router owns the connection, the handler registry and the correlation ids.
type Router struct {
	dialer   transport.Dialer
	logger   *zap.Logger
	idSource func() string

	ids  *IDGenerator
	reg  *Registry
	disp *Dispatcher

	mu          sync.Mutex
	conn        transport.Conn
	endpoint    string
	gen         uint64
	active      atomic.Bool
	dialing     bool
	pendingOpen bool
	lost        bool
	opened      chan struct{}
	openOnce    *sync.Once

	hooksMu sync.RWMutex
	onOpen  func()
	onClose func()
	onError func(error)
}

// New returns a router that connects through dialer.
func New(dialer transport.Dialer, options ...Option) *Router {
	r := &Router{
		dialer:   dialer,
		logger:   zap.NewNop(),
		opened:   make(chan struct{}),
		openOnce: new(sync.Once),
	}
	for _, opt := range options {
		opt(r)
	}
	r.ids = NewIDGenerator(r.idSource)
	r.reg = NewRegistry(r.ids, r.logger)
	r.disp = NewDispatcher(r.reg, r.ids, r.logger)

	r.onOpen = func() {
		r.logger.Info("dnet: connection opened", zap.String("endpoint", r.Endpoint()))
	}
	r.onClose = func() {
		r.logger.Info("dnet: connection closed", zap.String("endpoint", r.Endpoint()))
	}
	r.onError = func(err error) {
		r.logger.Error("dnet: connection error", zap.String("endpoint", r.Endpoint()), zap.Error(err))
	}
	return r
}

// Connect dials endpoint and starts dispatching its frames.
func (r *Router) Connect(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return ErrEmptyEndpoint
	}
	r.mu.Lock()
	if r.active.Load() || r.dialing {
		r.mu.Unlock()
		return ErrAlreadyActive
	}
	old := r.conn
	r.conn = nil
	r.gen++
	gen := r.gen
	r.dialing = true
	r.pendingOpen = false
	r.lost = false
	r.endpoint = endpoint
	r.opened = make(chan struct{})
	r.openOnce = new(sync.Once)
	r.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	conn, err := r.dialer.Dial(ctx, endpoint, transport.Events{
		Frame: r.disp.Dispatch,
		Open:  func() { r.handleOpen(gen) },
		Error: func(err error) { r.handleError(gen, err) },
		Close: func() { r.handleClose(gen) },
	})

	r.mu.Lock()
	r.dialing = false
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.conn = conn
	pending := r.pendingOpen
	r.active.Store(!r.lost)
	r.mu.Unlock()

	if pending {
		r.markOpen()
	}
	return nil
}

// handleOpen defers the open hook until Dial has returned, so the hook can send.
func (r *Router) handleOpen(gen uint64) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return
	}
	if r.dialing {
		r.pendingOpen = true
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.markOpen()
}

func (r *Router) markOpen() {
	r.mu.Lock()
	opened, once := r.opened, r.openOnce
	r.mu.Unlock()
	r.active.Store(true)
	once.Do(func() { close(opened) })

	r.hooksMu.RLock()
	h := r.onOpen
	r.hooksMu.RUnlock()
	h()
}

func (r *Router) handleError(gen uint64, err error) {
	if !r.markLost(gen) {
		return
	}
	r.hooksMu.RLock()
	h := r.onError
	r.hooksMu.RUnlock()
	h(err)
}

func (r *Router) handleClose(gen uint64) {
	if !r.markLost(gen) {
		return
	}
	r.hooksMu.RLock()
	h := r.onClose
	r.hooksMu.RUnlock()
	h()
}

// markLost reports false for events from a connection that was already replaced.
func (r *Router) markLost(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return false
	}
	if r.dialing {
		r.lost = true
		r.pendingOpen = false
	}
	r.active.Store(false)
	return true
}

// WaitOpen blocks until the current connection reports open.
func (r *Router) WaitOpen(ctx context.Context) error {
	r.mu.Lock()
	opened := r.opened
	r.mu.Unlock()
	select {
	case <-opened:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the connection. Registered handlers are kept.
func (r *Router) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()
	r.active.Store(false)
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (r *Router) IsActive() bool { return r.active.Load() }

func (r *Router) Endpoint() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endpoint
}

// On registers a persistent handler for action.
func (r *Router) On(action string, h HandlerFunc) error {
	return r.reg.Register(action, h, Persistent, "")
}

// OnOpen sets the hook called when the connection opens.
func (r *Router) OnOpen(h func()) error {
	if h == nil {
		r.logger.Warn(ErrNilHandler.Error(), zap.String("hook", "open"))
		return ErrNilHandler
	}
	r.hooksMu.Lock()
	r.onOpen = h
	r.hooksMu.Unlock()
	return nil
}

// OnClose sets the hook called when the connection closes.
func (r *Router) OnClose(h func()) error {
	if h == nil {
		r.logger.Warn(ErrNilHandler.Error(), zap.String("hook", "close"))
		return ErrNilHandler
	}
	r.hooksMu.Lock()
	r.onClose = h
	r.hooksMu.Unlock()
	return nil
}

// OnError sets the hook called when the connection fails.
func (r *Router) OnError(h func(error)) error {
	if h == nil {
		r.logger.Warn(ErrNilHandler.Error(), zap.String("hook", "error"))
		return ErrNilHandler
	}
	r.hooksMu.Lock()
	r.onError = h
	r.hooksMu.Unlock()
	return nil
}

// Refresh drops every handler and outstanding correlation id while keeping the
// connection open. Pending futures never settle after a Refresh.
func (r *Router) Refresh() {
	r.reg.RemoveAll()
}

// Namespace returns a view that prefixes every action with prefix.
func (r *Router) Namespace(prefix string) *Namespace {
	return &Namespace{router: r, prefix: prefix}
}

// Registry exposes the shared handler registry.
func (r *Router) Registry() *Registry { return r.reg }

// Dispatcher exposes the dispatcher installed on the connection.
func (r *Router) Dispatcher() *Dispatcher { return r.disp }

func (r *Router) currentConn() transport.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn
}
