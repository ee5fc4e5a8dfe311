package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gocddb/core/cddb"
	"gocddb/core/protocol"
	"gocddb/logger"
)

// RequestHook sees every command of a request before dispatch. A non-nil
// response is sent instead of handling the request.
type RequestHook func(ctx context.Context, commands []string) *cddb.Response

// CommandHook sees each command before its handler. A non-nil response is
// sent instead of running the handler.
type CommandHook func(ctx context.Context, command string) *cddb.Response

// ResponseHook sees each handler response before it is sent and may modify it
// in place. A non-nil return replaces the response and ends the chain.
type ResponseHook func(ctx context.Context, command string, resp *cddb.Response) *cddb.Response

// ResponseWriter delivers responses to the client of one listener.
type ResponseWriter interface {
	// Interface names the listener in stat replies, e.g. "http" or "cddbp".
	Interface() string
	Respond(resp *cddb.Response) error
}

// handler serves one command; a nil response means no output.
type handler func(ctx context.Context, command, args, iface string) *cddb.Response

// Dispatcher answers CDDB requests from a backend. Requests are handled one at
// a time since a backend holds a single connection.
type Dispatcher struct {
	mu            sync.Mutex
	backend       protocol.Backend
	metrics       *Metrics
	handlers      map[string]handler
	requestHooks  []RequestHook
	commandHooks  []CommandHook
	responseHooks []ResponseHook
	now           func() time.Time
}

// NewDispatcher returns a dispatcher over backend. metrics may be nil.
func NewDispatcher(backend protocol.Backend, metrics *Metrics) *Dispatcher {
	d := &Dispatcher{backend: backend, metrics: metrics, now: time.Now}
	d.handlers = map[string]handler{
		"cddb lscat": d.lscat,
		"cddb hello": noOutput,
		"cddb query": d.query,
		"proto":      noOutput,
		"cddb read":  d.read,
		"motd":       d.motd,
		"ver":        d.ver,
		"stat":       d.stat,
	}
	return d
}

// AddRequestHook appends h to the request hook chain.
func (d *Dispatcher) AddRequestHook(h RequestHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requestHooks = append(d.requestHooks, h)
}

// AddCommandHook appends h to the command hook chain.
func (d *Dispatcher) AddCommandHook(h CommandHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commandHooks = append(d.commandHooks, h)
}

// AddResponseHook appends h to the response hook chain.
func (d *Dispatcher) AddResponseHook(h ResponseHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responseHooks = append(d.responseHooks, h)
}

// Handle runs every command of one request and writes the responses to w.
func (d *Dispatcher) Handle(ctx context.Context, commands []string, w ResponseWriter) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	requestID := uuid.New().String()
	logger.Debug("handling request",
		logger.String("request_id", requestID),
		logger.String("interface", w.Interface()),
		logger.Int("commands", len(commands)))

	for _, hook := range d.requestHooks {
		if resp := hook(ctx, commands); resp != nil {
			d.metrics.shortCircuit("request")
			return w.Respond(resp)
		}
	}
	if len(commands) == 0 {
		return w.Respond(cddb.NewResponse(cddb.StatusSyntaxError, cddb.MsgSyntaxError))
	}

	for _, command := range commands {
		command = strings.TrimSpace(command)
		resp := d.handleCommand(ctx, command, w.Interface())
		if resp == nil {
			continue
		}
		logger.Debug("command handled",
			logger.String("request_id", requestID),
			logger.String("command", command),
			logger.Int("status", resp.Status))
		if err := w.Respond(resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	return nil
}

func (d *Dispatcher) handleCommand(ctx context.Context, command, iface string) *cddb.Response {
	start := time.Now()

	for _, hook := range d.commandHooks {
		if resp := hook(ctx, command); resp != nil {
			d.metrics.shortCircuit("command")
			d.metrics.observe("hook", resp.Status, time.Since(start))
			return resp
		}
	}

	cmd, args := cddb.SplitCommand(command)
	var resp *cddb.Response
	switch h, ok := d.handlers[cmd]; {
	case cmd == "":
		resp = cddb.NewResponse(cddb.StatusEmpty, cddb.MsgEmptyCommand)
	case !ok:
		resp = cddb.NewResponse(cddb.StatusUnrecognized, cddb.MsgUnrecognized)
	default:
		resp = h(ctx, cmd, args, iface)
	}
	if resp == nil {
		return nil
	}

	for _, hook := range d.responseHooks {
		if replaced := hook(ctx, command, resp); replaced != nil {
			d.metrics.shortCircuit("response")
			resp = replaced
			break
		}
	}
	d.metrics.observe(metricCommand(cmd, d.handlers), resp.Status, time.Since(start))
	return resp
}

// exchange sends command to the backend and returns its reply.
func (d *Dispatcher) exchange(ctx context.Context, command string) (int, string, bool) {
	if err := d.backend.Send(ctx, command); err != nil {
		logger.Warn("backend exchange failed", logger.String("command", command), logger.ErrorField(err))
		return 0, "", false
	}
	return d.backend.Status(), d.backend.Receive(), true
}

func internalError() *cddb.Response {
	return cddb.NewResponse(cddb.StatusServerError, cddb.MsgInternalError)
}

func noOutput(context.Context, string, string, string) *cddb.Response {
	return nil
}

func (d *Dispatcher) lscat(ctx context.Context, _, _, _ string) *cddb.Response {
	status, body, ok := d.exchange(ctx, "cddb lscat")
	if !ok || status != cddb.StatusFollows {
		return internalError()
	}
	return cddb.NewListResponse(status, "OK, category list follows "+cddb.MsgListFollows, body)
}

func (d *Dispatcher) query(ctx context.Context, cmd, args, _ string) *cddb.Response {
	status, body, ok := d.exchange(ctx, cmd+" "+args)
	if !ok {
		return internalError()
	}
	switch status {
	case cddb.StatusOK:
		return cddb.NewResponse(status, body)
	case cddb.StatusFollows:
		return cddb.NewListResponse(status, "Found exact matches, list follows "+cddb.MsgListFollows, body)
	case cddb.StatusInexact:
		return cddb.NewListResponse(status, "Found inexact matches, list follows "+cddb.MsgListFollows, body)
	case cddb.StatusNoMatch:
		return cddb.NewResponse(status, cddb.MsgNoMatch)
	default:
		return internalError()
	}
}

func (d *Dispatcher) read(ctx context.Context, cmd, args, _ string) *cddb.Response {
	status, body, ok := d.exchange(ctx, cmd+" "+args)
	if !ok {
		return internalError()
	}
	switch status {
	case cddb.StatusFollows:
		return cddb.NewListResponse(status, args+" CD database entry follows "+cddb.MsgListFollows, body)
	case cddb.StatusUnavailable:
		return cddb.NewResponse(status, cddb.MsgNotFound)
	default:
		return internalError()
	}
}

func (d *Dispatcher) motd(ctx context.Context, _, _, _ string) *cddb.Response {
	status, body, ok := d.exchange(ctx, "motd")
	if !ok || status != cddb.StatusFollows {
		return internalError()
	}
	message := "Last modified: " + d.now().Format("01/02/2006 15:04:05") + " MOTD follows " + cddb.MsgListFollows
	return cddb.NewListResponse(status, message, body)
}

func (d *Dispatcher) ver(ctx context.Context, _, _, _ string) *cddb.Response {
	status, body, ok := d.exchange(ctx, "ver")
	if !ok || status != cddb.StatusOK {
		return internalError()
	}
	if d.backend.Remote() {
		body += " (Tunnelled through " + cddb.ClientName + " v" + cddb.Version + ")"
	}
	return cddb.NewResponse(status, body)
}

func (d *Dispatcher) stat(ctx context.Context, _, _, iface string) *cddb.Response {
	status, body, ok := d.exchange(ctx, "stat")
	if !ok || status != cddb.StatusFollows {
		return internalError()
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if key, _, _ := strings.Cut(line, ":"); strings.TrimSpace(key) == "interface" {
			lines[i] = "    interface: " + iface
		}
	}
	return cddb.NewListResponse(status, "OK, status information follows "+cddb.MsgListFollows,
		strings.TrimSpace(strings.Join(lines, "\n")))
}
