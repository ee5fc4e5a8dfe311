package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"gocddb/core/cddb"
	"gocddb/logger"
)

// idleTimeout closes CDDBP connections without traffic.
const idleTimeout = 5 * time.Minute

// TCPListener serves the CDDBP line protocol.
type TCPListener struct {
	d        *Dispatcher
	hostname string

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewTCPListener returns a CDDBP listener announcing itself as hostname.
func NewTCPListener(d *Dispatcher, hostname string) *TCPListener {
	return &TCPListener{d: d, hostname: hostname, conns: make(map[net.Conn]struct{})}
}

// ListenAndServe listens on addr and serves until Close.
func (t *TCPListener) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return t.Serve(ln)
}

// Serve accepts connections on ln until Close.
func (t *TCPListener) Serve(ln net.Listener) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		ln.Close()
		return net.ErrClosed
	}
	t.listener = ln
	t.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if t.isClosed() {
				return nil
			}
			return fmt.Errorf("failed to accept: %w", err)
		}

		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			conn.Close()
			return nil
		}
		t.conns[conn] = struct{}{}
		t.wg.Add(1)
		t.mu.Unlock()
		go func() {
			defer t.wg.Done()
			t.serveConn(conn)
		}()
	}
}

// Addr returns the listening address, or nil before Serve.
func (t *TCPListener) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Close stops accepting, closes open connections and waits for their
// goroutines to finish.
func (t *TCPListener) Close() error {
	t.mu.Lock()
	t.closed = true
	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}
	for conn := range t.conns {
		conn.Close()
	}
	t.mu.Unlock()

	t.wg.Wait()
	return err
}

func (t *TCPListener) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// tcpWriter writes responses to one CDDBP connection.
type tcpWriter struct {
	conn net.Conn
}

func (w tcpWriter) Interface() string {
	return "cddbp"
}

func (w tcpWriter) Respond(resp *cddb.Response) error {
	_, err := resp.WriteTo(w.conn)
	return err
}

func (t *TCPListener) serveConn(conn net.Conn) {
	defer func() {
		conn.Close()
		t.mu.Lock()
		delete(t.conns, conn)
		t.mu.Unlock()
	}()

	remote := conn.RemoteAddr().String()
	logger.Debug("cddbp connection opened", logger.String("remote", remote))
	w := tcpWriter{conn}

	banner := fmt.Sprintf("%s CDDBP server %s v%s ready at %s",
		t.hostname, cddb.ClientName, cddb.Version, time.Now().Format(time.RFC1123))
	if err := w.Respond(cddb.NewResponse(cddb.StatusOKReadOnly, banner)); err != nil {
		return
	}

	ctx := context.Background()
	greeted := false
	scanner := bufio.NewScanner(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
				logger.Debug("cddbp connection dropped", logger.String("remote", remote), logger.ErrorField(err))
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		cmd, args := cddb.SplitCommand(line)
		var resp *cddb.Response
		switch {
		case cmd == "quit":
			w.Respond(cddb.NewResponse(cddb.StatusGoodbye, t.hostname+" Closing connection.  Goodbye."))
			return
		case cmd == "cddb hello":
			resp = t.hello(args, &greeted)
		case cmd == "proto":
			resp = proto(args)
		case cmd == "cddb query" || cmd == "cddb read":
			if !greeted {
				resp = cddb.NewResponse(cddb.StatusNoHandshake, "No handshake.")
			}
		}
		if resp != nil {
			if err := w.Respond(resp); err != nil {
				return
			}
			continue
		}
		if err := t.d.Handle(ctx, []string{line}, w); err != nil {
			logger.Debug("cddbp write failed", logger.String("remote", remote), logger.ErrorField(err))
			return
		}
	}
}

func (t *TCPListener) hello(args string, greeted *bool) *cddb.Response {
	fields := strings.Fields(args)
	if len(fields) != 4 {
		return cddb.NewResponse(cddb.StatusBadHandshake, "Handshake not successful, closing connection.")
	}
	if *greeted {
		return cddb.NewResponse(cddb.StatusAlready, "Already shook hands.")
	}
	*greeted = true
	return cddb.NewResponse(cddb.StatusOK, fmt.Sprintf("Hello and welcome %s@%s running %s %s.",
		fields[0], fields[1], fields[2], fields[3]))
}

func proto(args string) *cddb.Response {
	if args == "" {
		return cddb.NewResponse(cddb.StatusOK,
			fmt.Sprintf("CDDB protocol level: current %d, supported %d", cddb.ProtoLevel, cddb.ProtoLevel))
	}
	level, err := strconv.Atoi(args)
	if err != nil || level < 1 || level > cddb.ProtoLevel {
		return cddb.NewResponse(cddb.StatusIllegal, "Illegal protocol level.")
	}
	return cddb.NewResponse(cddb.StatusOKSet, fmt.Sprintf("OK, protocol version now: %d", level))
}
