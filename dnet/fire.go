package dnet

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Fire sends data on action and returns a Future settled by the correlated reply.
func (r *Router) Fire(ctx context.Context, action string, data any) (*Future, error) {
	return r.FireTo(ctx, action, data, "")
}

// FireTo is Fire with a recipient id.
func (r *Router) FireTo(ctx context.Context, action string, data any, rec string) (*Future, error) {
	if action == "" {
		r.logger.Warn(ErrEmptyAction.Error())
		return nil, ErrEmptyAction
	}
	return r.fire(ctx, action, data, rec)
}

// Emit sends data on action without waiting for a reply.
func (r *Router) Emit(ctx context.Context, action string, data any) error {
	return r.EmitTo(ctx, action, data, "")
}

// EmitTo is Emit with a recipient id.
func (r *Router) EmitTo(ctx context.Context, action string, data any, rec string) error {
	if action == "" {
		r.logger.Warn(ErrEmptyAction.Error())
		return ErrEmptyAction
	}
	return r.send(ctx, &Message{Action: action, Data: normalizePayload(data), Rec: rec})
}

func (r *Router) fire(ctx context.Context, action string, data any, rec string) (*Future, error) {
	conn := r.currentConn()
	if conn == nil {
		return nil, ErrNotConnected
	}

	id := r.ids.Generate()
	fut := newFuture(id, action, r.reg)

	// register before sending so an early reply still finds its entry
	e, err := r.reg.add(action, fut.complete, OneShot, id)
	if err != nil {
		r.ids.Release(id)
		return nil, err
	}
	fut.entry = e

	msg := &Message{Action: action, Data: normalizePayload(data), Rec: rec, AsyncID: id}
	if err := r.send(ctx, msg); err != nil {
		r.reg.drop(e)
		return nil, err
	}
	return fut, nil
}

func (r *Router) send(ctx context.Context, msg *Message) error {
	conn := r.currentConn()
	if conn == nil {
		return ErrNotConnected
	}
	b, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	if err := conn.Send(ctx, b); err != nil {
		r.logger.Warn("dnet: send failed", zap.String("action", msg.Action), zap.Error(err))
		return err
	}
	return nil
}

// normalizePayload maps a missing payload to "" and passes JSON bytes through untouched.
// Only nil and empty bytes count as missing; false, 0 and "" are sent as given
// (see "Open question decisions" in DESIGN.md).
func normalizePayload(data any) any {
	switch v := data.(type) {
	case nil:
		return ""
	case json.RawMessage:
		if len(v) == 0 {
			return ""
		}
		return v
	case []byte:
		if len(v) == 0 {
			return ""
		}
		if json.Valid(v) {
			return json.RawMessage(v)
		}
		return string(v)
	default:
		return v
	}
}
