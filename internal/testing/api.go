package testing

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/mcbrc/rcrx/internal/server/api"
)

// StartAPIServer starts an API server for a fresh Rig on a free port and
// calls register so the test can add the handlers it needs. key enables
// the auth handshake when non-nil.
func StartAPIServer(t *testing.T, key []byte, register func(r *api.Router, rig *Rig)) (addr string, rig *Rig, done func()) {
	t.Helper()
	rig = NewRig(t)

	apiSrv := api.New(api.ServerConfig{Addr: "127.0.0.1:0", RequireAuth: key != nil}, key, discardLogger())
	if register != nil {
		register(apiSrv.Router(), rig)
	}
	if err := apiSrv.Start(); err != nil {
		t.Fatalf("api start failed: %v", err)
	}
	return apiSrv.Addr(), rig, apiSrv.Close
}

// ExecCmd dials the API server, sends cmd and reads the one line response
// without its trailing newline.
func ExecCmd(t *testing.T, addr string, cmd string) string {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer c.Close()

	_, _ = fmt.Fprintf(c, "%s\x00", cmd)

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil && err != io.EOF {
		t.Fatalf("read failed: %v", err)
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
}
