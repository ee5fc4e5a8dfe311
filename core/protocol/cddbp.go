package protocol

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"gocddb/core/cddb"
	"gocddb/logger"
)

const multiLineMarker = "until terminating"

// CDDBP talks the line based CDDB protocol over TCP.
type CDDBP struct {
	exchange
	addr string
	opts Options
	conn net.Conn
	rd   *bufio.Reader
}

// NewCDDBP returns a backend for the cddbp server at addr (host:port).
func NewCDDBP(addr string, opts Options) *CDDBP {
	return &CDDBP{addr: addr, opts: opts.withDefaults()}
}

// Connect dials the server, reads its banner, shakes hands and switches to
// protocol level 5.
func (c *CDDBP) Connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: c.opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}
	c.conn = conn
	c.rd = bufio.NewReader(conn)

	if err := c.handshake(ctx); err != nil {
		_ = c.Disconnect()
		return err
	}
	logger.Debug("cddbp connected", logger.String("addr", c.addr))
	return nil
}

func (c *CDDBP) handshake(ctx context.Context) error {
	c.deadline(ctx)

	banner, err := c.readLine()
	if err != nil {
		return fmt.Errorf("failed to read banner: %w", err)
	}
	if code := cddb.ParseStatus(banner); !cddb.IsOK(code) {
		return &cddb.StatusError{Op: "connect", Code: code, Message: banner, Err: ErrNotConnected}
	}

	if err := c.writeLine("cddb hello " + c.opts.hello()); err != nil {
		return err
	}
	reply, err := c.readLine()
	if err != nil {
		return fmt.Errorf("failed to read hello reply: %w", err)
	}
	switch code := cddb.ParseStatus(reply); code {
	case cddb.StatusOK, cddb.StatusAlready:
	default:
		return &cddb.StatusError{Op: "hello", Code: code, Message: reply, Err: cddb.ErrHandshake}
	}

	if err := c.writeLine("proto " + strconv.Itoa(cddb.ProtoLevel)); err != nil {
		return err
	}
	if _, err := c.readLine(); err != nil {
		return fmt.Errorf("failed to read proto reply: %w", err)
	}
	return nil
}

// Disconnect closes the connection.
func (c *CDDBP) Disconnect() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.rd = nil
	return err
}

// Connected reports whether a connection is open.
func (c *CDDBP) Connected() bool {
	return c.conn != nil
}

// Remote is always true.
func (c *CDDBP) Remote() bool {
	return true
}

// Send writes command and reads the full reply. Servers may drop idle
// connections without notice, so an empty reply causes one reconnect and resend.
func (c *CDDBP) Send(ctx context.Context, command string) error {
	return c.send(ctx, command, true)
}

func (c *CDDBP) send(ctx context.Context, command string, tryAgain bool) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}

	reply, err := c.roundTrip(ctx, command)
	if err == nil && reply != "" {
		c.parseReply(reply)
		logger.Debug("cddbp exchange",
			logger.String("command", command),
			logger.Int("status", c.status))
		return nil
	}

	_ = c.Disconnect()
	if tryAgain {
		logger.Debug("cddbp empty reply, reconnecting", logger.String("command", command))
		return c.send(ctx, command, false)
	}
	if err != nil {
		return fmt.Errorf("cddbp %q: %w", command, err)
	}
	return fmt.Errorf("cddbp %q: %w", command, ErrEmptyResponse)
}

func (c *CDDBP) roundTrip(ctx context.Context, command string) (string, error) {
	c.deadline(ctx)
	if err := c.writeLine(command); err != nil {
		return "", err
	}

	first, err := c.readLine()
	if err != nil {
		return "", err
	}
	if !strings.Contains(first, multiLineMarker) {
		return strings.TrimSpace(first), nil
	}

	lines := []string{first}
	for {
		line, err := c.readLine()
		if err != nil {
			return "", err
		}
		if line == "." {
			break
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func (c *CDDBP) deadline(ctx context.Context) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.opts.Timeout)
	}
	_ = c.conn.SetDeadline(deadline)
}

func (c *CDDBP) readLine() (string, error) {
	line, err := c.rd.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *CDDBP) writeLine(line string) error {
	if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
		return fmt.Errorf("failed to write %q: %w", line, err)
	}
	return nil
}
