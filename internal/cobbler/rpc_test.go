package cobbler

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micahrl/cobsync/internal/resource"
)

var methodRe = regexp.MustCompile(`<methodName>([^<]+)</methodName>`)

func response(value string) string {
	return `<?xml version="1.0"?><methodResponse><params><param><value>` + value + `</value></param></params></methodResponse>`
}

func fault(code int, msg string) string {
	return `<?xml version="1.0"?><methodResponse><fault><value><struct>` +
		`<member><name>faultCode</name><value><int>` + strconv.Itoa(code) + `</int></value></member>` +
		`<member><name>faultString</name><value><string>` + msg + `</string></value></member>` +
		`</struct></value></fault></methodResponse>`
}

// xmlrpcServer answers each method with a canned body and records the
// request bodies it received.
type xmlrpcServer struct {
	mu        sync.Mutex
	responses map[string]string
	bodies    map[string]string
}

func (s *xmlrpcServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	m := methodRe.FindStringSubmatch(string(body))
	if m == nil || r.URL.Path != APIPath {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.bodies[m[1]] = string(body)
	resp, ok := s.responses[m[1]]
	s.mu.Unlock()
	if !ok {
		resp = fault(1, "unknown method "+m[1])
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = io.WriteString(w, resp)
}

func newTestRPC(t *testing.T, responses map[string]string) (*RPC, *xmlrpcServer) {
	t.Helper()
	srv := &xmlrpcServer{responses: responses, bodies: map[string]string{}}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	rpc, err := Dial(Conn{Host: u.Hostname(), Port: port, UseSSL: false}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rpc.Close() })
	return rpc, srv
}

func TestRPC_Login(t *testing.T) {
	rpc, srv := newTestRPC(t, map[string]string{
		"login": response(`<string>tok123</string>`),
	})

	token, err := rpc.Login(context.Background(), "cobbler", "secret")
	require.NoError(t, err)
	assert.Equal(t, Token("tok123"), token)
	assert.Contains(t, srv.bodies["login"], "<string>cobbler</string>")
}

func TestRPC_LoginFault(t *testing.T) {
	rpc, _ := newTestRPC(t, map[string]string{
		"login": fault(1, "login failed (cobbler)"),
	})

	_, err := rpc.Login(context.Background(), "cobbler", "wrong")
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr), "got %T: %v", err, err)
	assert.Equal(t, "cobbler", authErr.Username)
	assert.Contains(t, err.Error(), rpc.URL())
	assert.Contains(t, err.Error(), "as 'cobbler'")
}

func TestRPC_LoginRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	rpc, err := Dial(Conn{Host: "127.0.0.1", Port: port}, zerolog.Nop())
	require.NoError(t, err)

	_, err = rpc.Login(context.Background(), "cobbler", "secret")
	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr), "got %T: %v", err, err)
	var urlErr *url.Error
	assert.True(t, errors.As(err, &urlErr), "a refused dial surfaces as *url.Error, got %T", connErr.Err)
	assert.Equal(t, rpc.URL(), connErr.URL)
	assert.True(t, strings.HasPrefix(err.Error(), "connection to 'http://127.0.0.1:"))
}

func TestRPC_LoginBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(ts.Close)
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	rpc, err := Dial(Conn{Host: u.Hostname(), Port: port}, zerolog.Nop())
	require.NoError(t, err)

	_, err = rpc.Login(context.Background(), "cobbler", "secret")
	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr), "a non-XML-RPC answer is not an auth failure, got %T: %v", err, err)
}

func TestRPC_FindDecodesItems(t *testing.T) {
	rpc, srv := newTestRPC(t, map[string]string{
		"find_distro": response(`<array><data><value><struct>` +
			`<member><name>name</name><value><string>debian-11</string></value></member>` +
			`<member><name>depth</name><value><int>0</int></value></member>` +
			`<member><name>owners</name><value><array><data><value><string>admin</string></value></data></array></value></member>` +
			`<member><name>kernel_options</name><value><struct><member><name>quiet</name><value><string></string></value></member></struct></value></member>` +
			`</struct></value></data></array>`),
	})

	items, err := rpc.Find(context.Background(), resource.KindDistro, "debian-11", "tok")
	require.NoError(t, err)
	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "debian-11", item["name"])
	assert.True(t, resource.Equal(0, item["depth"]))
	assert.True(t, resource.Equal([]string{"admin"}, item["owners"]))
	assert.True(t, resource.Equal("quiet", item["kernel_options"]))

	body := srv.bodies["find_distro"]
	assert.Contains(t, body, "<name>name</name>")
	assert.Contains(t, body, "<string>tok</string>")
}

func TestRPC_FindEmpty(t *testing.T) {
	rpc, _ := newTestRPC(t, map[string]string{
		"find_profile": response(`<array><data></data></array>`),
	})

	item, err := Lookup(context.Background(), rpc, resource.KindProfile, "missing", "tok")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestLookup_ExactNameOnly(t *testing.T) {
	rpc, _ := newTestRPC(t, map[string]string{
		"find_distro": response(`<array><data>` +
			`<value><struct><member><name>name</name><value><string>debian-11</string></value></member></struct></value>` +
			`<value><struct><member><name>name</name><value><string>debian-12</string></value></member></struct></value>` +
			`</data></array>`),
	})
	ctx := context.Background()

	item, err := Lookup(ctx, rpc, resource.KindDistro, "deb*", "tok")
	require.NoError(t, err)
	assert.Nil(t, item, "a pattern must not resolve to the first match")

	item, err = Lookup(ctx, rpc, resource.KindDistro, "debian-12", "tok")
	require.NoError(t, err)
	assert.Equal(t, "debian-12", item["name"])
}

func TestRPC_ListUsesPluralProcedure(t *testing.T) {
	rpc, srv := newTestRPC(t, map[string]string{
		"get_profiles": response(`<array><data><value><struct><member><name>name</name><value><string>a</string></value></member></struct></value></data></array>`),
	})

	items, err := rpc.List(context.Background(), resource.KindProfile)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0]["name"])
	assert.NotContains(t, srv.bodies["get_profiles"], "<params><param>")
}

func TestRPC_MutatingCalls(t *testing.T) {
	rpc, srv := newTestRPC(t, map[string]string{
		"new_distro":    response(`<string>___NEW___distro::1</string>`),
		"modify_distro": response(`<boolean>1</boolean>`),
		"save_distro":   response(`<boolean>1</boolean>`),
		"remove_distro": response(`<boolean>1</boolean>`),
		"sync":          response(`<boolean>1</boolean>`),
	})
	ctx := context.Background()

	h, err := rpc.New(ctx, resource.KindDistro, "tok")
	require.NoError(t, err)
	assert.Equal(t, Handle("___NEW___distro::1"), h)

	require.NoError(t, rpc.Modify(ctx, resource.KindDistro, h, "virt_ram", 512, "tok"))
	assert.Contains(t, srv.bodies["modify_distro"], "<int>512</int>")
	assert.Contains(t, srv.bodies["modify_distro"], "<string>virt_ram</string>")

	require.NoError(t, rpc.Save(ctx, resource.KindDistro, h, "tok"))
	require.NoError(t, rpc.Remove(ctx, resource.KindDistro, "debian-11", "tok"))
	require.NoError(t, rpc.Sync(ctx, "tok"))
}

func TestRPC_ModifyFault(t *testing.T) {
	rpc, _ := newTestRPC(t, map[string]string{
		"modify_profile": fault(1, "invalid distro"),
	})

	err := rpc.Modify(context.Background(), resource.KindProfile, "h", "distro", "nope", "tok")
	require.Error(t, err)
	assert.True(t, IsFault(err), "got %T: %v", err, err)
}

func TestRPC_CanceledContext(t *testing.T) {
	rpc, srv := newTestRPC(t, map[string]string{"sync": response(`<boolean>1</boolean>`)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rpc.Sync(ctx, "tok")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, srv.bodies)
}
