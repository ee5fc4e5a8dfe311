// Package reader extracts the table of contents of an audio CD in the drive.
package reader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"gocddb/logger"
)

var (
	// ErrBinaryNotFound is returned when the helper program is not installed.
	ErrBinaryNotFound = errors.New("reader: binary not found")
	// ErrUnknownReader is returned by New for unsupported schemes.
	ErrUnknownReader = errors.New("reader: unknown reader")
)

// DefaultDevice is used when a reader DSN names no device.
const DefaultDevice = "/dev/cdrom"

// Reader returns the frame offsets of every track followed by the total disc
// length in seconds. An empty slice means no disc could be read.
type Reader interface {
	TrackOffsets(ctx context.Context, sudo bool, device string) ([]int, error)
}

// Runner executes a program and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// tool locates and runs one external helper.
type tool struct {
	binary   string
	run      Runner
	lookPath func(string) (string, error)
}

func (t tool) exec(ctx context.Context, sudo bool, args ...string) (string, error) {
	lookPath := t.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(t.binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrBinaryNotFound, t.binary, err)
	}

	run := t.run
	if run == nil {
		run = execRunner
	}
	name := path
	if sudo {
		name = "sudo"
		args = append([]string{path}, args...)
	}
	logger.Debug("reading disc toc", logger.String("command", name), logger.Strings("args", args))
	out, err := run(ctx, name, args...)
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", t.binary, err)
	}
	return string(out), nil
}

// New returns the reader named by dsn, e.g. "cddiscid:///dev/cdrom",
// "cdparanoia:///dev/sr0" or "test:///dev/acd0". The device path is returned
// alongside.
func New(dsn string) (Reader, string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, "", fmt.Errorf("invalid reader %q: %w", dsn, err)
	}
	device := u.Path
	if device == "" {
		device = DefaultDevice
	}

	switch strings.ToLower(u.Scheme) {
	case "cddiscid", "cd-discid":
		return NewCDDiscID(), device, nil
	case "cdparanoia":
		return NewCDParanoia(), device, nil
	case "test":
		return Fixture{}, device, nil
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownReader, u.Scheme)
	}
}
