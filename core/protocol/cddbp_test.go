package protocol

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocddb/core/cddb"
)

// fakeCDDBPServer answers scripted replies over the cddbp line protocol.
type fakeCDDBPServer struct {
	ln        net.Listener
	replies   map[string]string
	helloCode string
	dropFirst bool
	conns     int32
	mu        sync.Mutex
	hellos    []string
	wg        sync.WaitGroup
}

func newFakeCDDBPServer(t *testing.T, replies map[string]string, opts ...func(*fakeCDDBPServer)) *fakeCDDBPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeCDDBPServer{ln: ln, replies: replies, helloCode: "200"}
	for _, opt := range opts {
		opt(s)
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeCDDBPServer) addr() string {
	return s.ln.Addr().String()
}

func (s *fakeCDDBPServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		n := atomic.AddInt32(&s.conns, 1)
		s.wg.Add(1)
		go s.handle(conn, n)
	}
}

func (s *fakeCDDBPServer) handle(conn net.Conn, n int32) {
	defer s.wg.Done()
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	write := func(line string) {
		_, _ = conn.Write([]byte(line + "\r\n"))
	}
	write("201 fake CDDBP server v1.0 ready at Mon Jan 01 00:00:00 2024")

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "cddb hello "):
			s.mu.Lock()
			s.hellos = append(s.hellos, line)
			s.mu.Unlock()
			write(s.helloCode + " hello response")
		case strings.HasPrefix(line, "proto "):
			write("201 OK, CDDB protocol level now: 5")
		case line == "quit":
			write("230 Closing connection. Goodbye.")
			return
		default:
			if s.dropFirst && n == 1 {
				return
			}
			reply, ok := s.replies[line]
			if !ok {
				reply = "500 Unrecognized command."
			}
			write(strings.ReplaceAll(reply, "\n", "\r\n"))
		}
	}
}

func TestCDDBPExchange(t *testing.T) {
	server := newFakeCDDBPServer(t, map[string]string{
		"cddb lscat": "210 OK, category list follows (until terminating `.')\nrock\njazz\n..dotted\n...x\n.",
		"ver":        "200 cddbd v1.5.2PL0 Copyright (c) Steve Scherf et al.",
	})

	c := NewCDDBP(server.addr(), Options{User: "tester", Host: "example.com"})
	defer c.Disconnect()

	require.NoError(t, c.Send(context.Background(), "cddb lscat"))
	assert.Equal(t, cddb.StatusFollows, c.Status())
	assert.Equal(t, "rock\njazz\n.dotted\n..x", c.Receive())
	assert.Equal(t, []string{"rock", "jazz", ".dotted", "..x"}, cddb.PayloadLines(c.Receive()))
	assert.True(t, c.Connected())

	require.NoError(t, c.Send(context.Background(), "ver"))
	assert.Equal(t, cddb.StatusOK, c.Status())
	assert.Equal(t, "cddbd v1.5.2PL0 Copyright (c) Steve Scherf et al.", c.Receive())

	assert.Equal(t, int32(1), atomic.LoadInt32(&server.conns))
	server.mu.Lock()
	require.Len(t, server.hellos, 1)
	assert.Equal(t, "cddb hello tester example.com gocddb "+cddb.Version, server.hellos[0])
	server.mu.Unlock()
}

func TestCDDBPReconnectsOnEmptyReply(t *testing.T) {
	server := newFakeCDDBPServer(t, map[string]string{
		"ver": "200 cddbd v1.5.2PL0",
	}, func(s *fakeCDDBPServer) { s.dropFirst = true })

	c := NewCDDBP(server.addr(), Options{Timeout: 2 * time.Second})
	defer c.Disconnect()

	require.NoError(t, c.Send(context.Background(), "ver"))
	assert.Equal(t, cddb.StatusOK, c.Status())
	assert.Equal(t, "cddbd v1.5.2PL0", c.Receive())
	assert.Equal(t, int32(2), atomic.LoadInt32(&server.conns))
}

func TestCDDBPHandshakeRejected(t *testing.T) {
	server := newFakeCDDBPServer(t, nil, func(s *fakeCDDBPServer) { s.helloCode = "431" })

	c := NewCDDBP(server.addr(), Options{Timeout: 2 * time.Second})
	err := c.Connect(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, cddb.ErrHandshake))
	assert.False(t, c.Connected())
}

func TestCDDBPDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	c := NewCDDBP(addr, Options{Timeout: time.Second})
	assert.Error(t, c.Send(context.Background(), "ver"))
	assert.False(t, c.Connected())
}
