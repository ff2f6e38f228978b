package dnet

import "context"

// Namespace prefixes actions before handing them to its root router.
// Prefixes are joined by plain concatenation: no separator is added.
type Namespace struct {
	router *Router
	prefix string
}

func (n *Namespace) Prefix() string { return n.prefix }

func (n *Namespace) sub(action string) string {
	return n.prefix + action
}

// Namespace nests prefix under this namespace.
func (n *Namespace) Namespace(prefix string) *Namespace {
	return &Namespace{router: n.router, prefix: n.sub(prefix)}
}

func (n *Namespace) On(action string, h HandlerFunc) error {
	if action == "" {
		n.router.logger.Warn(ErrEmptyAction.Error())
		return ErrEmptyAction
	}
	return n.router.On(n.sub(action), h)
}

func (n *Namespace) Fire(ctx context.Context, action string, data any) (*Future, error) {
	return n.FireTo(ctx, action, data, "")
}

func (n *Namespace) FireTo(ctx context.Context, action string, data any, rec string) (*Future, error) {
	if action == "" {
		n.router.logger.Warn(ErrEmptyAction.Error())
		return nil, ErrEmptyAction
	}
	return n.router.FireTo(ctx, n.sub(action), data, rec)
}

func (n *Namespace) Emit(ctx context.Context, action string, data any) error {
	return n.EmitTo(ctx, action, data, "")
}

func (n *Namespace) EmitTo(ctx context.Context, action string, data any, rec string) error {
	if action == "" {
		n.router.logger.Warn(ErrEmptyAction.Error())
		return ErrEmptyAction
	}
	return n.router.EmitTo(ctx, n.sub(action), data, rec)
}
