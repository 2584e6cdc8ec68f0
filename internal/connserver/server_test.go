package connserver

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/mkvs-io/kvstored/internal/keyspace"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	store := keyspace.NewStore(16)
	s := NewServer(store)
	var dirty int64
	s.Dirty = &dirty
	require.NoError(t, s.Listen("127.0.0.1:0"))
	t.Cleanup(func() { s.Close() })
	return s, s.listener.Addr().String()
}

func TestEndToEndSetGet(t *testing.T) {
	_, addr := startTestServer(t)
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"))
	require.NoError(t, err)
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "+OK\r\n", line)

	_, err = conn.Write([]byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))
	require.NoError(t, err)
	lenLine, _ := r.ReadString('\n')
	require.Equal(t, "$3\r\n", lenLine)
	payload := make([]byte, 5)
	_, err = r.Read(payload)
	require.NoError(t, err)
	require.Equal(t, "bar\r\n", string(payload))
}

func TestMaxClientsRejected(t *testing.T) {
	store := keyspace.NewStore(1)
	s := NewServer(store)
	s.MaxClients = 1
	var dirty int64
	s.Dirty = &dirty
	require.NoError(t, s.Listen("127.0.0.1:0"))
	defer s.Close()

	c1, err := net.Dial("tcp", s.listener.Addr().String())
	require.NoError(t, err)
	defer c1.Close()
	time.Sleep(20 * time.Millisecond)

	c2, err := net.Dial("tcp", s.listener.Addr().String())
	require.NoError(t, err)
	defer c2.Close()

	r := bufio.NewReader(c2)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, line, "max number of clients")
}
