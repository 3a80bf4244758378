package desired

import (
	"bytes"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/micahrl/cobsync/internal/resource"
)

// File is a desired-state document describing a single distro or profile.
// JSON documents are accepted too, being valid YAML.
//
//	name: debian-11
//	state: present
//	sync: true
//	properties:
//	  breed: debian
//	  kernel: /var/lib/tftpboot/debian/11/linux
type File struct {
	Kind       string              `yaml:"kind"`
	Name       string              `yaml:"name"`
	State      string              `yaml:"state"`
	Sync       *bool               `yaml:"sync"`
	Properties resource.Properties `yaml:"properties"`
}

// ParseFile reads a desired-state document from path.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return f, nil
}

// Parse decodes a desired-state document. Unknown top-level keys are an
// error so a typo cannot silently drop a setting.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	for k, v := range f.Properties {
		if overflows(v) {
			return nil, errors.Errorf("property %s: integer out of range", k)
		}
		f.Properties[k] = resource.Normalize(v)
	}
	return &f, nil
}

// overflows reports whether v holds an unsigned integer that does not fit the
// signed 64-bit integers XML-RPC can carry.
func overflows(v any) bool {
	switch t := v.(type) {
	case uint64:
		return t > math.MaxInt64
	case uint:
		return uint64(t) > math.MaxInt64
	case []any:
		for _, e := range t {
			if overflows(e) {
				return true
			}
		}
	case map[string]any:
		for _, e := range t {
			if overflows(e) {
				return true
			}
		}
	}
	return false
}
