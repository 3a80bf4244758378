package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micahrl/cobsync/internal/converge"
	"github.com/micahrl/cobsync/internal/resource"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestInit_Print(t *testing.T) {
	out, err := execute(t, "init", "--host", "cobbler.example.org")
	require.NoError(t, err)
	assert.Contains(t, out, "# ==> cobsync.toml <==")
	assert.Contains(t, out, "# ==> distro.yaml <==")
	assert.Contains(t, out, "# ==> profile.yaml <==")
	assert.Contains(t, out, `host = "cobbler.example.org"`)
}

func TestInit_Dir(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "init", "--dir", dir)
	require.NoError(t, err)
	for _, name := range []string{"cobsync.toml", "distro.yaml", "profile.yaml"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	_, err = execute(t, "init", "--dir", dir)
	assert.Error(t, err, "existing files must not be overwritten")
}

func TestResource_ValidationFailsBeforeConnecting(t *testing.T) {
	_, err := execute(t, "distro", "--state", "absent", "--host", "203.0.113.1")
	assert.ErrorIs(t, err, errValidation)
}

func TestResource_BadOutputFormat(t *testing.T) {
	_, err := execute(t, "profile", "--name", "p", "--output", "xml")
	assert.Error(t, err)
}

func parseDesired(t *testing.T, kind resource.Kind, args ...string) (converge.Desired, error) {
	t.Helper()
	cmd := &cobra.Command{}
	opts := &resourceOptions{}
	opts.bind(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(args))
	return buildDesired(cmd, opts, kind)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "desired.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildDesired_Flags(t *testing.T) {
	want, err := parseDesired(t, resource.KindProfile,
		"--name", "computenodes", "--set", "distro=debian-11", "--set", "enable_menu=no", "--sync")
	require.NoError(t, err)

	assert.Equal(t, "computenodes", want.Name)
	assert.Equal(t, converge.StatePresent, want.State)
	assert.True(t, want.Sync)
	assert.Equal(t, resource.Properties{"distro": "debian-11", "enable_menu": false}, want.Properties)
}

func TestBuildDesired_FileWithOverrides(t *testing.T) {
	path := writeFile(t, `
name: debian-11
state: present
sync: true
properties:
  breed: debian
  arch: x86_64
`)
	want, err := parseDesired(t, resource.KindDistro, "--file", path, "--set", "arch=aarch64", "--sync=false")
	require.NoError(t, err)

	assert.Equal(t, "debian-11", want.Name)
	assert.False(t, want.Sync)
	assert.Equal(t, resource.Properties{"breed": "debian", "arch": "aarch64"}, want.Properties)
}

func TestBuildDesired_KindMismatch(t *testing.T) {
	path := writeFile(t, "kind: profile\nname: p\n")
	_, err := parseDesired(t, resource.KindDistro, "--file", path)
	assert.Error(t, err)
}

func TestBuildDesired_FileKind(t *testing.T) {
	want, err := parseDesired(t, resource.KindProfile, "--file", writeFile(t, "kind: Profile\nname: p\n"))
	require.NoError(t, err)
	assert.Equal(t, "p", want.Name)

	_, err = parseDesired(t, resource.KindProfile, "--file", writeFile(t, "kind: system\nname: p\n"))
	assert.ErrorContains(t, err, "unsupported resource kind")
}

func TestBuildDesired_BadState(t *testing.T) {
	_, err := parseDesired(t, resource.KindDistro, "--name", "x", "--state", "gone")
	assert.Error(t, err)
}

var methodRe = regexp.MustCompile(`<methodName>([^<]+)</methodName>`)

// cannedServer answers XML-RPC calls with fixed values and records the
// method names in order.
type cannedServer struct {
	mu      sync.Mutex
	values  map[string]string
	methods []string
}

func (s *cannedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	m := methodRe.FindStringSubmatch(string(body))
	if m == nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.methods = append(s.methods, m[1])
	value := s.values[m[1]]
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/xml")
	_, _ = io.WriteString(w, `<?xml version="1.0"?><methodResponse><params><param><value>`+
		value+`</value></param></params></methodResponse>`)
}

func TestResource_CreateAgainstServer(t *testing.T) {
	srv := &cannedServer{values: map[string]string{
		"login":         `<string>tok</string>`,
		"find_distro":   `<array><data></data></array>`,
		"new_distro":    `<string>___NEW___distro::1</string>`,
		"modify_distro": `<boolean>1</boolean>`,
		"save_distro":   `<boolean>1</boolean>`,
	}}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)

	_, err = execute(t, "distro",
		"--config", filepath.Join(t.TempDir(), "missing.toml"),
		"--host", u.Hostname(), "--port", u.Port(), "--use-ssl=false",
		"--password", "secret",
		"--name", "debian-11", "--set", "breed=debian",
		"--output", "json")
	assert.Error(t, err, "an explicit --config that does not exist is an error")

	out, err := execute(t, "distro",
		"--host", u.Hostname(), "--port", u.Port(), "--use-ssl=false",
		"--password", "secret",
		"--name", "debian-11", "--set", "breed=debian",
		"--output", "json")
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, true, rec["changed"])
	assert.Contains(t, rec, "distro")

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, []string{
		"login", "find_distro", "new_distro", "modify_distro", "modify_distro", "save_distro", "find_distro",
	}, srv.methods)
}
