package protocol

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gocddb/core/cddb"
	"gocddb/logger"
)

// HTTP tunnels CDDB commands through a cddb.cgi endpoint. Every command is a
// separate request, so there is no connection state.
type HTTP struct {
	exchange
	endpoint string
	opts     Options
}

// NewHTTP returns a backend posting to endpoint, e.g.
// http://freedb.freedb.org/~cddb/cddb.cgi.
func NewHTTP(endpoint string, opts Options) *HTTP {
	return &HTTP{endpoint: endpoint, opts: opts.withDefaults()}
}

// Connect is a no-op.
func (h *HTTP) Connect(ctx context.Context) error {
	return nil
}

// Disconnect is a no-op.
func (h *HTTP) Disconnect() error {
	return nil
}

// Connected is always false; every Send performs its own request.
func (h *HTTP) Connected() bool {
	return false
}

// Remote is always true.
func (h *HTTP) Remote() bool {
	return true
}

// Send posts command together with the hello and proto fields.
func (h *HTTP) Send(ctx context.Context, command string) error {
	form := url.Values{}
	form.Set("cmd", command)
	form.Set("hello", h.opts.hello())
	form.Set("proto", strconv.Itoa(cddb.ProtoLevel))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", h.opts.ClientName+"/"+h.opts.ClientVersion)

	resp, err := h.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post %q to %s: %w", command, h.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned HTTP %d: %w", h.endpoint, resp.StatusCode, ErrNotConnected)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return fmt.Errorf("%s %q: %w", h.endpoint, command, ErrEmptyResponse)
	}

	h.parseReply(strings.ReplaceAll(string(body), "\r\n", "\n"))
	logger.Debug("http exchange",
		logger.String("endpoint", h.endpoint),
		logger.String("command", command),
		logger.Int("status", h.status))
	return nil
}
