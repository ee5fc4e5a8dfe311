// Package client queries a CDDB database through any protocol backend.
package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gocddb/core/cddb"
	"gocddb/core/protocol"
	"gocddb/core/reader"
	"gocddb/logger"
	"gocddb/model"
)

// ErrNoDisc is returned when the CD reader found no table of contents.
var ErrNoDisc = errors.New("client: no readable disc")

// statisticKeys are the stat lines Statistics reports.
var statisticKeys = map[string]bool{
	"current_proto": true,
	"max_proto":     true,
	"interface":     true,
	"gets":          true,
	"puts":          true,
	"updates":       true,
	"posting":       true,
	"validation":    true,
	"quotes":        true,
	"strip_ext":     true,
	"secure":        true,
	"current_users": true,
	"max_users":     true,
	"data":          true,
	"folk":          true,
	"jazz":          true,
	"misc":          true,
	"rock":          true,
	"country":       true,
	"blues":         true,
	"newage":        true,
	"reggae":        true,
	"classical":     true,
	"soundtrack":    true,
}

// Options tunes a Client.
type Options struct {
	// Persist keeps the backend connected between commands.
	Persist bool
	// Sudo runs the CD reader through sudo.
	Sudo bool
	// Device is the default CD device.
	Device string
}

// Client runs CDDB commands one at a time over a backend.
type Client struct {
	mu      sync.Mutex
	backend protocol.Backend
	reader  reader.Reader
	opts    Options
}

// New returns a client. rd may be nil when no CD helpers are used.
func New(backend protocol.Backend, rd reader.Reader, opts Options) *Client {
	if opts.Device == "" {
		opts.Device = reader.DefaultDevice
	}
	return &Client{backend: backend, reader: rd, opts: opts}
}

// Connect connects the backend unless it already is.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect(ctx)
}

// Disconnect closes the backend connection.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnect()
}

func (c *Client) connect(ctx context.Context) error {
	if c.backend.Connected() {
		return nil
	}
	return c.backend.Connect(ctx)
}

func (c *Client) disconnect() error {
	if !c.backend.Connected() {
		return nil
	}
	return c.backend.Disconnect()
}

// send runs one command and returns the status and payload of its reply.
func (c *Client) send(ctx context.Context, command string) (int, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(ctx); err != nil {
		return 0, "", fmt.Errorf("failed to connect: %w", err)
	}
	if err := c.backend.Send(ctx, command); err != nil {
		return 0, "", fmt.Errorf("failed to send %q: %w", command, err)
	}
	status, body := c.backend.Status(), c.backend.Receive()
	logger.Debug("cddb exchange", logger.String("command", command), logger.Int("status", status))

	if !c.opts.Persist {
		if err := c.disconnect(); err != nil {
			logger.Warn("failed to disconnect backend", logger.ErrorField(err))
		}
	}
	return status, body, nil
}

// Search looks up discs matching a table of contents.
func (c *Client) Search(ctx context.Context, offsets []int, lengthSeconds int) ([]model.Disc, error) {
	return c.SearchRaw(ctx, cddb.QueryCommand(offsets, lengthSeconds))
}

// SearchRaw runs a prepared "cddb query" line. No match yields an empty slice.
func (c *Client) SearchRaw(ctx context.Context, query string) ([]model.Disc, error) {
	for attempt := 0; ; attempt++ {
		status, body, err := c.send(ctx, query)
		if err != nil {
			return nil, err
		}

		switch status {
		case cddb.StatusOK:
			return []model.Disc{cddb.ParseSearchResult(body)}, nil
		case cddb.StatusFollows, cddb.StatusInexact:
			lines := cddb.PayloadLines(body)
			discs := make([]model.Disc, 0, len(lines))
			for _, line := range lines {
				discs = append(discs, cddb.ParseSearchResult(line))
			}
			return discs, nil
		case cddb.StatusNoMatch:
			return []model.Disc{}, nil
		case cddb.StatusErrorAlready:
			if attempt == 0 {
				logger.Debug("query already performed, retrying", logger.String("query", query))
				if err := c.Disconnect(); err != nil {
					return nil, fmt.Errorf("failed to reset connection: %w", err)
				}
				continue
			}
		}
		return nil, &cddb.StatusError{Op: "query", Code: status, Message: body, Err: cddb.ErrorForStatus(status)}
	}
}

// Read fetches the full record of one disc.
func (c *Client) Read(ctx context.Context, category, discID string) (model.Disc, error) {
	status, body, err := c.send(ctx, "cddb read "+category+" "+discID)
	if err != nil {
		return model.Disc{}, err
	}
	if status != cddb.StatusFollows {
		return model.Disc{}, &cddb.StatusError{Op: "read", Code: status, Message: body, Err: cddb.ErrNotFound}
	}
	return cddb.ParseRecord(body, category), nil
}

// Details reads the full record of a search result.
func (c *Client) Details(ctx context.Context, d model.Disc) (model.Disc, error) {
	return c.Read(ctx, d.Category, strings.TrimSpace(d.DiscID))
}

// Categories lists the server's categories.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	status, body, err := c.send(ctx, "cddb lscat")
	if err != nil {
		return nil, err
	}
	if status != cddb.StatusFollows {
		return []string{}, nil
	}
	return cddb.PayloadLines(body), nil
}

// Statistics returns the known "key: value" lines of the stat reply, with
// spaces in keys replaced by underscores.
func (c *Client) Statistics(ctx context.Context) (map[string]string, error) {
	_, body, err := c.send(ctx, "stat")
	if err != nil {
		return nil, err
	}

	stats := make(map[string]string)
	for _, line := range cddb.PayloadLines(body) {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ReplaceAll(strings.TrimSpace(key), " ", "_")
		if statisticKeys[key] {
			stats[key] = strings.TrimSpace(value)
		}
	}
	return stats, nil
}

// Sites lists the mirrors the server knows about.
func (c *Client) Sites(ctx context.Context) ([]model.Site, error) {
	status, body, err := c.send(ctx, "sites")
	if err != nil {
		return nil, err
	}
	if status != cddb.StatusFollows {
		return []model.Site{}, nil
	}

	var sites []model.Site
	for _, line := range cddb.PayloadLines(body) {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		port, _ := strconv.Atoi(fields[2])
		sites = append(sites, model.Site{
			Site:        fields[0],
			Protocol:    fields[1],
			Port:        port,
			Address:     fields[3],
			Latitude:    fields[4],
			Longitude:   fields[5],
			Description: strings.Join(fields[6:], " "),
		})
	}
	return sites, nil
}

// Motd returns the message of the day.
func (c *Client) Motd(ctx context.Context) (string, error) {
	_, body, err := c.send(ctx, "motd")
	if err != nil {
		return "", err
	}
	return strings.Trim(body, " ."), nil
}

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	_, body, err := c.send(ctx, "ver")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

// Help returns the server's help text for cmd and sub, both optional.
func (c *Client) Help(ctx context.Context, cmd, sub string) (string, error) {
	_, body, err := c.send(ctx, strings.TrimSpace("help "+cmd+" "+sub))
	if err != nil {
		return "", err
	}
	return strings.Trim(body, " ."), nil
}

// RemoteDiscID asks the server to compute the disc id of a TOC.
func (c *Client) RemoteDiscID(ctx context.Context, offsets []int, lengthSeconds int) (string, error) {
	status, body, err := c.send(ctx, cddb.DiscIDCommand(offsets, lengthSeconds))
	if err != nil {
		return "", err
	}
	fields := strings.Fields(body)
	if status != cddb.StatusOK || len(fields) == 0 {
		return "", &cddb.StatusError{Op: "discid", Code: status, Message: body, Err: cddb.ErrorForStatus(status)}
	}
	return fields[len(fields)-1], nil
}

// toc reads offsets and disc length from device, or the default device.
func (c *Client) toc(ctx context.Context, device string) ([]int, int, error) {
	if c.reader == nil {
		return nil, 0, fmt.Errorf("%w: no reader configured", ErrNoDisc)
	}
	if device == "" {
		device = c.opts.Device
	}
	values, err := c.reader.TrackOffsets(ctx, c.opts.Sudo, device)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read toc of %s: %w", device, err)
	}
	if len(values) < 2 {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoDisc, device)
	}
	return values[:len(values)-1], values[len(values)-1], nil
}

// TrackOffsetsForCD returns the track offsets of the disc in device.
func (c *Client) TrackOffsetsForCD(ctx context.Context, device string) ([]int, error) {
	offsets, _, err := c.toc(ctx, device)
	return offsets, err
}

// LengthForCD returns the length in seconds of the disc in device.
func (c *Client) LengthForCD(ctx context.Context, device string) (int, error) {
	_, length, err := c.toc(ctx, device)
	return length, err
}

// DiscIDForCD computes the disc id of the disc in device.
func (c *Client) DiscIDForCD(ctx context.Context, device string) (string, error) {
	offsets, length, err := c.toc(ctx, device)
	if err != nil {
		return "", err
	}
	return cddb.DiscID(offsets, length), nil
}

// SearchCD looks up the disc in device.
func (c *Client) SearchCD(ctx context.Context, device string) ([]model.Disc, error) {
	offsets, length, err := c.toc(ctx, device)
	if err != nil {
		return nil, err
	}
	return c.Search(ctx, offsets, length)
}
