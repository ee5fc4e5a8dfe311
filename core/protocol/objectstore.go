package protocol

import (
	"context"
	"errors"
	"fmt"
	"path"

	"gocddb/logger"
	"gocddb/model"
)

// ErrObjectNotFound is returned by ObjectStore implementations for missing keys.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the subset of a bucket client the object store backend needs.
type ObjectStore interface {
	GetObjectText(ctx context.Context, key string) (string, error)
	ListPrefixes(ctx context.Context, prefix string) ([]string, error)
	CountObjects(ctx context.Context, prefix string) (int, error)
	Ping(ctx context.Context) error
}

// ObjectStoreBackend serves a FreeDB dump mirrored into a bucket, laid out as
// <prefix>/<category>/<discid>.
type ObjectStoreBackend struct {
	exchange
	store     ObjectStore
	prefix    string
	commands  commandTable
	connected bool
}

// NewObjectStore returns a backend reading the dump below prefix.
func NewObjectStore(store ObjectStore, prefix string, opts Options) *ObjectStoreBackend {
	b := &ObjectStoreBackend{store: store, prefix: prefix}
	ds := bucketStore{store: store, prefix: prefix}
	counts := func(ctx context.Context) ([]model.CategoryCount, error) {
		return countAll(ctx, ds)
	}
	cmds := &dumpCommands{store: ds, iface: "ObjectStore", opts: opts.withDefaults(), counts: counts}
	b.commands = cmds.table()
	return b
}

// Connect verifies the bucket is reachable.
func (b *ObjectStoreBackend) Connect(ctx context.Context) error {
	if b.connected {
		return nil
	}
	if err := b.store.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach object store: %w", err)
	}
	b.connected = true
	return nil
}

// Disconnect forgets the connection; the bucket client is shared.
func (b *ObjectStoreBackend) Disconnect() error {
	b.connected = false
	return nil
}

// Connected reports whether Connect succeeded.
func (b *ObjectStoreBackend) Connected() bool {
	return b.connected
}

// Remote is always false.
func (b *ObjectStoreBackend) Remote() bool {
	return false
}

// Send executes command against the bucket.
func (b *ObjectStoreBackend) Send(ctx context.Context, command string) error {
	if err := b.Connect(ctx); err != nil {
		return err
	}
	b.run(ctx, b.commands, command)
	logger.Debug("object store exchange", logger.String("command", command), logger.Int("status", b.status))
	return nil
}

type bucketStore struct {
	store  ObjectStore
	prefix string
}

func (s bucketStore) key(parts ...string) string {
	return path.Join(append([]string{s.prefix}, parts...)...)
}

func (s bucketStore) dirPrefix(category string) string {
	p := s.key(category)
	if p == "" || p == "." {
		return ""
	}
	return p + "/"
}

func (s bucketStore) Categories(ctx context.Context) ([]string, error) {
	return s.store.ListPrefixes(ctx, s.dirPrefix(""))
}

func (s bucketStore) ReadFile(ctx context.Context, category, name string) (string, error) {
	text, err := s.store.GetObjectText(ctx, s.key(category, name))
	if errors.Is(err, ErrObjectNotFound) {
		return "", errNoEntry
	}
	return text, err
}

func (s bucketStore) CountEntries(ctx context.Context, category string) (int, error) {
	return s.store.CountObjects(ctx, s.dirPrefix(category))
}
