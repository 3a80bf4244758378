package cobbler

import (
	"context"
	"fmt"

	"github.com/kolo/xmlrpc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/micahrl/cobsync/internal/resource"
)

// RPC is a Client backed by a real XML-RPC connection. Each call is sent
// exactly once; nothing is retried.
type RPC struct {
	url    string
	client *xmlrpc.Client
	log    zerolog.Logger
}

var _ Client = (*RPC)(nil)

// Dial prepares a client for the server described by conn. No request is
// sent until the first call.
func Dial(conn Conn, log zerolog.Logger) (*RPC, error) {
	url := conn.URL()
	c, err := xmlrpc.NewClient(url, conn.Transport())
	if err != nil {
		return nil, &ConnectionError{URL: url, Err: err}
	}
	return &RPC{url: url, client: c, log: log.With().Str("url", url).Logger()}, nil
}

// URL is the endpoint this client talks to.
func (r *RPC) URL() string { return r.url }

// Close releases the underlying connection.
func (r *RPC) Close() error { return r.client.Close() }

func (r *RPC) call(ctx context.Context, method string, args []any, reply any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.log.Debug().Str("method", method).Msg("xmlrpc call")
	// A nil slice sends no params; a []any spreads into positional params.
	var params any
	if len(args) > 0 {
		params = args
	}
	if err := r.client.Call(method, params, reply); err != nil {
		r.log.Debug().Str("method", method).Err(err).Msg("xmlrpc call failed")
		return err
	}
	return nil
}

func (r *RPC) Login(ctx context.Context, username, password string) (Token, error) {
	var token string
	if err := r.call(ctx, "login", []any{username, password}, &token); err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", classifyLogin(r.url, username, err)
	}
	return Token(token), nil
}

func (r *RPC) Find(ctx context.Context, kind resource.Kind, name string, token Token) ([]resource.Properties, error) {
	// The second positional parameter of find_* is "expand" on the server;
	// passing the token there makes it return full items instead of names.
	var reply any
	err := r.call(ctx, "find_"+kind.String(), []any{map[string]any{"name": name}, string(token)}, &reply)
	if err != nil {
		return nil, errors.Wrapf(err, "find_%s %q", kind, name)
	}
	items, err := decodeItems(reply)
	if err != nil {
		return nil, errors.Wrapf(err, "find_%s %q", kind, name)
	}
	return items, nil
}

func (r *RPC) List(ctx context.Context, kind resource.Kind) ([]resource.Properties, error) {
	method := "get_" + kind.Plural()
	var reply any
	if err := r.call(ctx, method, nil, &reply); err != nil {
		return nil, errors.Wrap(err, method)
	}
	items, err := decodeItems(reply)
	if err != nil {
		return nil, errors.Wrap(err, method)
	}
	return items, nil
}

func (r *RPC) Handle(ctx context.Context, kind resource.Kind, name string, token Token) (Handle, error) {
	var h string
	if err := r.call(ctx, "get_"+kind.String()+"_handle", []any{name, string(token)}, &h); err != nil {
		return "", err
	}
	return Handle(h), nil
}

func (r *RPC) New(ctx context.Context, kind resource.Kind, token Token) (Handle, error) {
	var h string
	if err := r.call(ctx, "new_"+kind.String(), []any{string(token)}, &h); err != nil {
		return "", err
	}
	return Handle(h), nil
}

func (r *RPC) Modify(ctx context.Context, kind resource.Kind, h Handle, key string, value any, token Token) error {
	var ok any
	return r.call(ctx, "modify_"+kind.String(), []any{string(h), key, encodeValue(value), string(token)}, &ok)
}

func (r *RPC) Save(ctx context.Context, kind resource.Kind, h Handle, token Token) error {
	var ok any
	return r.call(ctx, "save_"+kind.String(), []any{string(h), string(token)}, &ok)
}

func (r *RPC) Remove(ctx context.Context, kind resource.Kind, name string, token Token) error {
	var ok any
	return r.call(ctx, "remove_"+kind.String(), []any{name, string(token)}, &ok)
}

func (r *RPC) Sync(ctx context.Context, token Token) error {
	var ok any
	return r.call(ctx, "sync", []any{string(token)}, &ok)
}

func decodeItems(reply any) ([]resource.Properties, error) {
	switch t := reply.(type) {
	case nil:
		return nil, nil
	case []any:
		items := make([]resource.Properties, 0, len(t))
		for i, e := range t {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("item %d: expected a struct, got %T", i, e)
			}
			items = append(items, resource.Properties(m))
		}
		return items, nil
	}
	return nil, fmt.Errorf("expected an array, got %T", reply)
}

// encodeValue converts values into types the XML-RPC encoder accepts.
func encodeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case int:
		return int64(t)
	case resource.Properties:
		return map[string]any(t)
	case map[any]any:
		return resource.Normalize(t)
	}
	return v
}
