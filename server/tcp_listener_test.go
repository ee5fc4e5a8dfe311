package server

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gocddb/core/cddb"
)

type cddbpClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func (c *cddbpClient) line() string {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	s, err := c.r.ReadString('\n')
	require.NoError(c.t, err)
	return strings.TrimRight(s, "\r\n")
}

func (c *cddbpClient) send(command string) string {
	c.t.Helper()
	_, err := c.conn.Write([]byte(command + "\r\n"))
	require.NoError(c.t, err)
	return c.line()
}

func startTCP(t *testing.T, b *scriptedBackend) (*TCPListener, *cddbpClient) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	l := NewTCPListener(NewDispatcher(b, nil), "cddb.test")
	done := make(chan error, 1)
	go func() { done <- l.Serve(ln) }()
	t.Cleanup(func() {
		assert.NoError(t, l.Close())
		assert.NoError(t, <-done)
	})

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return l, &cddbpClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func TestTCPSession(t *testing.T) {
	// Registered first so it runs after the listener cleanup.
	ignore := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, ignore) })

	b := &scriptedBackend{replies: map[string]reply{
		"cddb query 2003c01 1 150 62": {200, "rock 2003c01 Artist / Title"},
	}}
	_, c := startTCP(t, b)

	banner := c.line()
	assert.True(t, strings.HasPrefix(banner, "201 cddb.test CDDBP server "+cddb.ClientName), banner)

	assert.Equal(t, "409 No handshake.", c.send("cddb query 2003c01 1 150 62"))
	assert.Equal(t, "431 Handshake not successful, closing connection.", c.send("cddb hello joe"))
	assert.Equal(t, "200 Hello and welcome joe@example.com running xmcd 2.1.", c.send("cddb hello joe example.com xmcd 2.1"))
	assert.Equal(t, "402 Already shook hands.", c.send("cddb hello joe example.com xmcd 2.1"))
	assert.Equal(t, "201 OK, protocol version now: 5", c.send("proto 5"))
	assert.Equal(t, "501 Illegal protocol level.", c.send("proto 9"))

	assert.Equal(t, "200 rock 2003c01 Artist / Title", c.send("cddb query 2003c01 1 150 62"))

	assert.Equal(t, "230 cddb.test Closing connection.  Goodbye.", c.send("quit"))
	_, err := c.r.ReadString('\n')
	assert.Error(t, err)
}

func TestTCPCloseDropsConnections(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	l := NewTCPListener(NewDispatcher(&scriptedBackend{}, nil), "cddb.test")
	done := make(chan error, 1)
	go func() { done <- l.Serve(ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	r := bufio.NewReader(conn)
	_, err = r.ReadString('\n')
	require.NoError(t, err)

	require.NoError(t, l.Close())
	require.NoError(t, <-done)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = r.ReadString('\n')
	assert.Error(t, err)
}
