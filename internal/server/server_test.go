package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkvs-io/kvstored/internal/config"
	"github.com/mkvs-io/kvstored/internal/object"
)

func newTestServer(t *testing.T, configure func(*config.Config)) (*Server, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Bind = "127.0.0.1"
	cfg.Port = 0
	cfg.Dir = t.TempDir()
	cfg.Databases = 4
	if configure != nil {
		configure(cfg)
	}

	srv, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, srv.Listen())
	t.Cleanup(func() { srv.Close() })
	return srv, srv.Conn.Addr().String()
}

func TestServerEndToEndSetSaveReload(t *testing.T) {
	dir := t.TempDir()
	srv, addr := newTestServer(t, func(c *config.Config) {
		c.Dir = dir
	})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"))
	require.NoError(t, err)
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "+OK\r\n", line)

	require.NoError(t, srv.Save())

	reloaded, err := New(&config.Config{
		Bind: "127.0.0.1", Port: 0, Dir: dir,
		Databases: 4, DBFilename: srv.Config.DBFilename,
		AppendFilename: srv.Config.AppendFilename, AppendFsync: "no",
		RDBCompression: true, PidFile: "",
	})
	require.NoError(t, err)
	defer reloaded.Close()

	db0, err := reloaded.Store.DB(0)
	require.NoError(t, err)
	v, ok := db0.Lookup("foo", time.Now())
	require.True(t, ok)
	require.Equal(t, "bar", string(v.(*object.String).Bytes()))
}

func TestInfoReportsRunID(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	info := srv.Info()
	require.Contains(t, info, "run_id:")
	require.Contains(t, info, "tcp_port:")
}

func TestBGSaveThenPollCompletes(t *testing.T) {
	srv, addr := newTestServer(t, nil)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"))
	require.NoError(t, err)
	bufio.NewReader(conn).ReadString('\n')

	require.NoError(t, srv.BGSave())
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && srv.rewriter.Busy() {
		time.Sleep(time.Millisecond)
		srv.pollRewrite(time.Now())
	}
	require.False(t, srv.rewriter.Busy())
}
