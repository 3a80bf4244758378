package resource

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Kind is a Cobbler object collection that can be converged.
type Kind string

const (
	KindDistro  Kind = "distro"
	KindProfile Kind = "profile"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindDistro, KindProfile}

// ParseKind returns the Kind named by s.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", errors.Errorf("unsupported resource kind %q", s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k == KindDistro || k == KindProfile
}

// Plural is the collection name, used for bulk listing keys and procedures.
func (k Kind) Plural() string { return string(k) + "s" }

func (k Kind) String() string { return string(k) }

// Properties is a property snapshot as returned by the server, or a set of
// desired property values.
type Properties map[string]any

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of p. Nil stays nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Resource is a distro or profile as it exists on the server. The fields
// every Cobbler item carries are lifted out; everything else the server
// reported stays in Properties, which always holds the complete snapshot.
type Resource struct {
	Kind       Kind
	Name       string
	UID        string
	Comment    string
	Owners     []string
	Properties Properties
}

// FromSnapshot builds a Resource from a raw server snapshot.
func FromSnapshot(kind Kind, snap Properties) *Resource {
	r := &Resource{Kind: kind, Properties: snap.Clone()}
	if r.Properties == nil {
		r.Properties = Properties{}
	}
	r.Name, _ = snap["name"].(string)
	r.UID, _ = snap["uid"].(string)
	r.Comment, _ = snap["comment"].(string)
	r.Owners = stringList(snap["owners"])
	return r
}

// Has reports whether the server knows the property key for this resource.
func (r *Resource) Has(key string) bool {
	_, ok := r.Properties[key]
	return ok
}

// Get returns the current value of key.
func (r *Resource) Get(key string) (any, bool) {
	v, ok := r.Properties[key]
	return v, ok
}

// Snapshot returns a copy of the full property set.
func (r *Resource) Snapshot() Properties {
	if r == nil {
		return nil
	}
	return r.Properties.Clone()
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		// profiles report "<<inherit>>" instead of a list
		if t == "" || t == Inherit {
			return nil
		}
		return strings.Fields(t)
	}
	return nil
}
