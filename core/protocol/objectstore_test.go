package protocol

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocddb/core/cddb"
)

// memStore is an in-memory ObjectStore.
type memStore struct {
	mu      sync.Mutex
	objects map[string]string
	pingErr error
}

func newMemStore(objects map[string]string) *memStore {
	if objects == nil {
		objects = map[string]string{}
	}
	return &memStore{objects: objects}
}

func (m *memStore) GetObjectText(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.objects[key]
	if !ok {
		return "", ErrObjectNotFound
	}
	return text, nil
}

func (m *memStore) ListPrefixes(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	for key := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if dir, _, ok := strings.Cut(strings.TrimPrefix(key, prefix), "/"); ok {
			seen[dir] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memStore) CountObjects(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Ping(context.Context) error {
	return m.pingErr
}

func TestObjectStoreCommands(t *testing.T) {
	store := newMemStore(map[string]string{
		"dump/rock/2a038402": testRecord,
		"dump/jazz/820e770a": "DISCID=820e770a\nDTITLE=Joshua Redman / Wish\n",
		"dump/motd.txt":      "Mirror of the test dump.",
		"other/rock/ffffffff": "DISCID=ffffffff\n",
	})
	b := NewObjectStore(store, "dump", Options{UseMotdFile: true})

	tests := []struct {
		command string
		status  int
		body    string
	}{
		{"cddb lscat", cddb.StatusFollows, "jazz\nrock"},
		{"cddb query 820e770a 1 150 62", cddb.StatusOK, "jazz 820e770a Joshua Redman / Wish"},
		{"cddb query ffffffff 1 150 62", cddb.StatusNoMatch, ""},
		{"cddb read rock ffffffff", cddb.StatusUnavailable, cddb.MsgNotFound},
		{"motd", cddb.StatusFollows, "Mirror of the test dump."},
		{"sites", cddb.StatusUnavailable, "No site information available."},
		{"ver", cddb.StatusOK, "gocddb/ObjectStore v" + cddb.Version},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			require.NoError(t, b.Send(context.Background(), tt.command))
			assert.Equal(t, tt.status, b.Status())
			assert.Equal(t, tt.body, b.Receive())
		})
	}

	require.NoError(t, b.Send(context.Background(), "cddb read rock 2a038402"))
	assert.Equal(t, cddb.StatusFollows, b.Status())
	assert.Equal(t, "The Shins", cddb.ParseRecord(b.Receive(), "rock").Artist)

	require.NoError(t, b.Send(context.Background(), "stat"))
	assert.Contains(t, b.Receive(), "Database entries: 2")
	assert.Contains(t, b.Receive(), "    interface: ObjectStore")
}

func TestObjectStoreConnectFailure(t *testing.T) {
	store := newMemStore(nil)
	store.pingErr = errors.New("bucket gone")
	b := NewObjectStore(store, "", Options{})

	err := b.Send(context.Background(), "cddb lscat")
	assert.Error(t, err)
	assert.False(t, b.Connected())
}
