// Package cobblertest provides an in-memory Cobbler server that records every
// call made through the cobbler.Client interface.
package cobblertest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kolo/xmlrpc"

	"github.com/micahrl/cobsync/internal/cobbler"
	"github.com/micahrl/cobsync/internal/resource"
)

// Call is one recorded remote procedure call.
type Call struct {
	Method string
	Args   []any
}

type pending struct {
	kind  resource.Kind
	props resource.Properties
}

// Fake is an in-memory Cobbler. The zero value is not usable; use New.
type Fake struct {
	mu       sync.Mutex
	users    map[string]string
	items    map[resource.Kind]map[string]resource.Properties
	handles  map[cobbler.Handle]*pending
	nextID   int
	calls    []Call
	failures map[string]error

	// Defaults are the properties every newly created item starts with, so
	// fresh items report the same field set the real server would.
	Defaults map[resource.Kind]resource.Properties

	// Syncs counts successful sync calls.
	Syncs int
}

var _ cobbler.Client = (*Fake)(nil)

const token = "fake-token"

// New returns a Fake accepting username/password.
func New(username, password string) *Fake {
	return &Fake{
		users:    map[string]string{username: password},
		items:    map[resource.Kind]map[string]resource.Properties{},
		handles:  map[cobbler.Handle]*pending{},
		failures: map[string]error{},
		Defaults: map[resource.Kind]resource.Properties{},
	}
}

// Seed stores an existing item. props must contain "name".
func (f *Fake) Seed(kind resource.Kind, props resource.Properties) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, _ := props["name"].(string)
	f.collection(kind)[name] = props.Clone()
}

// Get returns a copy of the stored item, or nil.
func (f *Fake) Get(kind resource.Kind, name string) resource.Properties {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[kind][name].Clone()
}

// FailOn makes every call of method return err.
func (f *Fake) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

// Calls returns the recorded calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many times method was called.
func (f *Fake) Count(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Mutations returns the recorded calls that change server state.
func (f *Fake) Mutations() []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == "sync" || isMutation(c.Method) {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets the recorded calls.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func isMutation(method string) bool {
	for _, prefix := range []string{"new_", "modify_", "save_", "remove_"} {
		if strings.HasPrefix(method, prefix) {
			return true
		}
	}
	return false
}

func (f *Fake) collection(kind resource.Kind) map[string]resource.Properties {
	c, ok := f.items[kind]
	if !ok {
		c = map[string]resource.Properties{}
		f.items[kind] = c
	}
	return c
}

func (f *Fake) record(method string, args ...any) error {
	f.calls = append(f.calls, Call{Method: method, Args: args})
	return f.failures[method]
}

func (f *Fake) checkToken(t cobbler.Token) error {
	if t != token {
		return xmlrpc.FaultError{Code: 1, String: "invalid token: " + string(t)}
	}
	return nil
}

func (f *Fake) Login(_ context.Context, username, password string) (cobbler.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("login", username); err != nil {
		return "", err
	}
	if want, ok := f.users[username]; !ok || want != password {
		return "", &cobbler.AuthError{
			URL:      "fake://cobbler",
			Username: username,
			Err:      xmlrpc.FaultError{Code: 1, String: "login failed"},
		}
	}
	return token, nil
}

func (f *Fake) Find(_ context.Context, kind resource.Kind, name string, t cobbler.Token) ([]resource.Properties, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("find_"+kind.String(), name); err != nil {
		return nil, err
	}
	if err := f.checkToken(t); err != nil {
		return nil, err
	}
	item, ok := f.items[kind][name]
	if !ok {
		return []resource.Properties{}, nil
	}
	return []resource.Properties{item.Clone()}, nil
}

func (f *Fake) List(_ context.Context, kind resource.Kind) ([]resource.Properties, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("get_" + kind.Plural()); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.items[kind]))
	for n := range f.items[kind] {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]resource.Properties, 0, len(names))
	for _, n := range names {
		out = append(out, f.items[kind][n].Clone())
	}
	return out, nil
}

func (f *Fake) Handle(_ context.Context, kind resource.Kind, name string, t cobbler.Token) (cobbler.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("get_"+kind.String()+"_handle", name); err != nil {
		return "", err
	}
	if err := f.checkToken(t); err != nil {
		return "", err
	}
	item, ok := f.items[kind][name]
	if !ok {
		return "", xmlrpc.FaultError{Code: 1, String: fmt.Sprintf("internal error: unknown %s name %s", kind, name)}
	}
	return f.open(kind, item.Clone()), nil
}

func (f *Fake) New(_ context.Context, kind resource.Kind, t cobbler.Token) (cobbler.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("new_" + kind.String()); err != nil {
		return "", err
	}
	if err := f.checkToken(t); err != nil {
		return "", err
	}
	props := f.Defaults[kind].Clone()
	if props == nil {
		props = resource.Properties{}
	}
	return f.open(kind, props), nil
}

func (f *Fake) open(kind resource.Kind, props resource.Properties) cobbler.Handle {
	f.nextID++
	h := cobbler.Handle(fmt.Sprintf("___NEW___%s::%d", kind, f.nextID))
	f.handles[h] = &pending{kind: kind, props: props}
	return h
}

func (f *Fake) Modify(_ context.Context, kind resource.Kind, h cobbler.Handle, key string, value any, t cobbler.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("modify_"+kind.String(), string(h), key, value); err != nil {
		return err
	}
	if err := f.checkToken(t); err != nil {
		return err
	}
	p, ok := f.handles[h]
	if !ok || p.kind != kind {
		return xmlrpc.FaultError{Code: 1, String: "invalid handle " + string(h)}
	}
	p.props[key] = value
	return nil
}

func (f *Fake) Save(_ context.Context, kind resource.Kind, h cobbler.Handle, t cobbler.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("save_"+kind.String(), string(h)); err != nil {
		return err
	}
	if err := f.checkToken(t); err != nil {
		return err
	}
	p, ok := f.handles[h]
	if !ok || p.kind != kind {
		return xmlrpc.FaultError{Code: 1, String: "invalid handle " + string(h)}
	}
	name, _ := p.props["name"].(string)
	if name == "" {
		return xmlrpc.FaultError{Code: 1, String: "name is required"}
	}
	f.collection(kind)[name] = p.props.Clone()
	delete(f.handles, h)
	return nil
}

func (f *Fake) Remove(_ context.Context, kind resource.Kind, name string, t cobbler.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("remove_"+kind.String(), name); err != nil {
		return err
	}
	if err := f.checkToken(t); err != nil {
		return err
	}
	if _, ok := f.items[kind][name]; !ok {
		return xmlrpc.FaultError{Code: 1, String: fmt.Sprintf("internal error: unknown %s name %s", kind, name)}
	}
	delete(f.items[kind], name)
	return nil
}

func (f *Fake) Sync(_ context.Context, t cobbler.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("sync"); err != nil {
		return err
	}
	if err := f.checkToken(t); err != nil {
		return err
	}
	f.Syncs++
	return nil
}
