// Package protocol provides the transports a CDDB client or server talks to:
// remote CDDBP and HTTP servers, and local FreeDB dumps held on disk, in an
// SQL database or in an object store.
package protocol

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"gocddb/core/cddb"
)

var (
	// ErrUnknownScheme is returned by New for DSNs it cannot serve.
	ErrUnknownScheme = errors.New("protocol: unknown backend scheme")
	// ErrNotConnected is returned when a backend could not be reached.
	ErrNotConnected = errors.New("protocol: not connected")
	// ErrEmptyResponse is returned when a server answered with nothing, twice.
	ErrEmptyResponse = errors.New("protocol: empty response")
)

// Backend is one exchange channel with a CDDB database. Send issues a command
// line; Status and Receive then expose the status code and the payload of the
// reply (without status line or terminator).
type Backend interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Connected() bool
	Send(ctx context.Context, command string) error
	Receive() string
	Status() int
	// Remote reports whether replies come from another CDDB server.
	Remote() bool
}

// Options tunes backends. Zero values select sensible defaults.
type Options struct {
	// Identity sent in the cddb hello handshake.
	User          string
	Host          string
	ClientName    string
	ClientVersion string

	Timeout     time.Duration
	UseMotdFile bool
	UseStatFile bool

	HTTPClient *http.Client
	// Store serves the object store scheme.
	Store ObjectStore
}

func (o Options) withDefaults() Options {
	if o.User == "" {
		o.User = "unknown_user"
	}
	if o.Host == "" {
		o.Host = "localhost"
	}
	if o.ClientName == "" {
		o.ClientName = cddb.ClientName
	}
	if o.ClientVersion == "" {
		o.ClientVersion = cddb.Version
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
	return o
}

func (o Options) hello() string {
	return strings.Join([]string{o.User, o.Host, o.ClientName, o.ClientVersion}, " ")
}

// exchange holds the reply of the last command.
type exchange struct {
	status int
	buffer string
}

func (e *exchange) Receive() string {
	return e.buffer
}

func (e *exchange) Status() int {
	return e.status
}

func (e *exchange) set(status int, body string) {
	e.status = status
	e.buffer = body
}

// unstuff drops the "." terminator of a multi-line payload and the leading
// dot the server added to body lines starting with ".".
func unstuff(payload string) string {
	payload = strings.TrimRight(payload, " \r\n\t")
	if payload == "." {
		return ""
	}
	payload = strings.TrimSuffix(payload, "\n.")
	lines := strings.Split(payload, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "..") {
			lines[i] = line[1:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// parseReply splits a raw server reply into status and payload. Multi-line
// replies drop their status line, single-line replies keep the text after
// the status code.
func (e *exchange) parseReply(reply string) {
	reply = strings.TrimSpace(reply)
	first, rest, multi := strings.Cut(reply, "\n")
	e.status = cddb.ParseStatus(first)
	if multi {
		e.buffer = unstuff(rest)
		return
	}
	e.buffer = ""
	if len(first) > 4 {
		e.buffer = strings.TrimSpace(first[4:])
	}
}
