package scaffold

import (
	"bytes"
	_ "embed"
	"fmt"
	"strconv"

	"github.com/micahrl/cobsync/internal/resource"
)

//go:embed cobsync.toml
var ConfigTOML []byte

//go:embed distro.yaml
var DistroYAML []byte

//go:embed profile.yaml
var ProfileYAML []byte

// BuildConfig returns the sample config with host and use-ssl filled in.
func BuildConfig(src []byte, host string, useSSL bool) []byte {
	out := bytes.Replace(src, []byte(`host = "127.0.0.1"`), []byte(fmt.Sprintf("host = %q", host)), 1)
	return bytes.Replace(out, []byte("use-ssl = true"), []byte("use-ssl = "+strconv.FormatBool(useSSL)), 1)
}

// Desired returns the sample desired-state document for kind.
func Desired(kind resource.Kind) []byte {
	if kind == resource.KindProfile {
		return ProfileYAML
	}
	return DistroYAML
}
