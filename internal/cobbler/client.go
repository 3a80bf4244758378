package cobbler

import (
	"context"

	"github.com/micahrl/cobsync/internal/resource"
)

// Token is the session token returned by login.
type Token string

// Handle is an opaque server-side reference to an item being edited.
type Handle string

// Client abstracts the Cobbler XML-RPC API, one method per remote procedure.
type Client interface {
	// Login calls login(username, password).
	Login(ctx context.Context, username, password string) (Token, error)
	// Find calls find_<kind>({"name": name}, token).
	Find(ctx context.Context, kind resource.Kind, name string, token Token) ([]resource.Properties, error)
	// List calls get_<kind>s().
	List(ctx context.Context, kind resource.Kind) ([]resource.Properties, error)
	// Handle calls get_<kind>_handle(name, token).
	Handle(ctx context.Context, kind resource.Kind, name string, token Token) (Handle, error)
	// New calls new_<kind>(token).
	New(ctx context.Context, kind resource.Kind, token Token) (Handle, error)
	// Modify calls modify_<kind>(handle, key, value, token).
	Modify(ctx context.Context, kind resource.Kind, h Handle, key string, value any, token Token) error
	// Save calls save_<kind>(handle, token).
	Save(ctx context.Context, kind resource.Kind, h Handle, token Token) error
	// Remove calls remove_<kind>(name, token).
	Remove(ctx context.Context, kind resource.Kind, name string, token Token) error
	// Sync calls sync(token).
	Sync(ctx context.Context, token Token) error
}

// Lookup returns the snapshot of the item called exactly name, or nil when the
// server has no such item. find_* matches patterns, so other items it returns
// are ignored. An empty name never matches.
func Lookup(ctx context.Context, client Client, kind resource.Kind, name string, token Token) (resource.Properties, error) {
	if name == "" {
		return nil, nil
	}
	items, err := client.Find(ctx, kind, name, token)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if resource.FromSnapshot(kind, item).Name == name {
			return item, nil
		}
	}
	return nil, nil
}
