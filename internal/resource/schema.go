package resource

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Inherit is the value Cobbler uses for a profile field that takes its value
// from the parent object.
const Inherit = "<<inherit>>"

// FieldType is the value type Cobbler stores for a field.
type FieldType int

const (
	TypeString FieldType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeList
	TypeMap
)

func (t FieldType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeList:
		return "list"
	case TypeMap:
		return "map"
	default:
		return "string"
	}
}

// Field describes one known property of a kind.
type Field struct {
	Name     string
	Type     FieldType
	ReadOnly bool
}

var commonFields = []Field{
	{Name: "name", Type: TypeString},
	{Name: "comment", Type: TypeString},
	{Name: "owners", Type: TypeList},
	{Name: "uid", Type: TypeString, ReadOnly: true},
	{Name: "ctime", Type: TypeFloat, ReadOnly: true},
	{Name: "mtime", Type: TypeFloat, ReadOnly: true},
	{Name: "depth", Type: TypeInt, ReadOnly: true},
	{Name: "autoinstall_meta", Type: TypeMap},
	{Name: "boot_files", Type: TypeMap},
	{Name: "boot_loaders", Type: TypeList},
	{Name: "fetchable_files", Type: TypeMap},
	{Name: "kernel_options", Type: TypeMap},
	{Name: "kernel_options_post", Type: TypeMap},
	{Name: "mgmt_classes", Type: TypeList},
	{Name: "redhat_management_key", Type: TypeString},
	{Name: "template_files", Type: TypeMap},
}

var distroFields = []Field{
	{Name: "arch", Type: TypeString},
	{Name: "breed", Type: TypeString},
	{Name: "initrd", Type: TypeString},
	{Name: "kernel", Type: TypeString},
	{Name: "os_version", Type: TypeString},
	{Name: "remote_boot_initrd", Type: TypeString},
	{Name: "remote_boot_kernel", Type: TypeString},
	{Name: "remote_grub_initrd", Type: TypeString},
	{Name: "remote_grub_kernel", Type: TypeString},
	{Name: "source_repos", Type: TypeList},
	{Name: "tree_build_time", Type: TypeFloat, ReadOnly: true},
}

var profileFields = []Field{
	{Name: "autoinstall", Type: TypeString},
	{Name: "dhcp_tag", Type: TypeString},
	{Name: "distro", Type: TypeString},
	{Name: "enable_ipxe", Type: TypeBool},
	{Name: "enable_menu", Type: TypeBool},
	{Name: "mgmt_parameters", Type: TypeMap},
	{Name: "name_servers", Type: TypeList},
	{Name: "name_servers_search", Type: TypeList},
	{Name: "next_server_v4", Type: TypeString},
	{Name: "next_server_v6", Type: TypeString},
	{Name: "parent", Type: TypeString},
	{Name: "proxy", Type: TypeString},
	{Name: "repos", Type: TypeList},
	{Name: "server", Type: TypeString},
	{Name: "virt_auto_boot", Type: TypeBool},
	{Name: "virt_bridge", Type: TypeString},
	{Name: "virt_cpus", Type: TypeInt},
	{Name: "virt_disk_driver", Type: TypeString},
	{Name: "virt_file_size", Type: TypeFloat},
	{Name: "virt_path", Type: TypeString},
	{Name: "virt_ram", Type: TypeInt},
	{Name: "virt_type", Type: TypeString},
}

var schemas = map[Kind]map[string]Field{
	KindDistro:  buildSchema(commonFields, distroFields),
	KindProfile: buildSchema(commonFields, profileFields),
}

func buildSchema(sets ...[]Field) map[string]Field {
	m := make(map[string]Field)
	for _, set := range sets {
		for _, f := range set {
			m[f.Name] = f
		}
	}
	return m
}

// Lookup returns the schema entry for a field of kind.
func (k Kind) Lookup(name string) (Field, bool) {
	f, ok := schemas[k][name]
	return f, ok
}

// Coerce converts a raw command-line value into the type Cobbler stores for
// the field. Unknown fields and the inherit marker are passed through as
// strings.
func (k Kind) Coerce(name, raw string) (any, error) {
	f, ok := k.Lookup(name)
	if !ok || raw == Inherit {
		return raw, nil
	}
	switch f.Type {
	case TypeBool:
		b, err := parseBool(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "%s %s", k, name)
		}
		return b, nil
	case TypeInt:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, errors.Errorf("%s %s: expected an integer, got %q", k, name, raw)
		}
		return n, nil
	case TypeFloat:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, errors.Errorf("%s %s: expected a number, got %q", k, name, raw)
		}
		return n, nil
	case TypeList:
		return splitList(raw), nil
	}
	// Map fields are sent as "k=v k2" strings; the server parses them.
	return raw, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "on", "y":
		return true, nil
	case "no", "off", "n":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, errors.Errorf("expected a boolean, got %q", raw)
	}
	return b, nil
}

func splitList(raw string) []any {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, f)
	}
	return out
}
