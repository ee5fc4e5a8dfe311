package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocddb/core/cddb"
	"gocddb/core/protocol"
	"gocddb/core/reader"
)

type reply struct {
	status int
	body   string
}

// fakeBackend answers commands from a script; the last reply of a command
// repeats.
type fakeBackend struct {
	script      map[string][]reply
	sent        []string
	connected   bool
	connects    int
	disconnects int
	status      int
	body        string
	sendErr     error
}

func newFakeBackend(script map[string][]reply) *fakeBackend {
	return &fakeBackend{script: script}
}

func (f *fakeBackend) Connect(context.Context) error {
	f.connects++
	f.connected = true
	return nil
}

func (f *fakeBackend) Disconnect() error {
	f.disconnects++
	f.connected = false
	return nil
}

func (f *fakeBackend) Connected() bool { return f.connected }

func (f *fakeBackend) Receive() string { return f.body }

func (f *fakeBackend) Status() int { return f.status }

func (f *fakeBackend) Remote() bool { return true }

func (f *fakeBackend) Send(_ context.Context, command string) error {
	f.sent = append(f.sent, command)
	if f.sendErr != nil {
		return f.sendErr
	}
	replies := f.script[command]
	if len(replies) == 0 {
		f.status, f.body = cddb.StatusUnrecognized, cddb.MsgUnrecognized
		return nil
	}
	f.status, f.body = replies[0].status, replies[0].body
	if len(replies) > 1 {
		f.script[command] = replies[1:]
	}
	return nil
}

const acd1Query = "cddb query d50dd30f 15 150 21052 43715 58057 71430 92865 117600 131987 150625 163292 181490 195685 210197 233230 249257 3541"

var acd1Offsets = []int{150, 21052, 43715, 58057, 71430, 92865, 117600, 131987, 150625, 163292, 181490, 195685, 210197, 233230, 249257}

func TestSearch(t *testing.T) {
	tests := []struct {
		name   string
		reply  reply
		titles []string
	}{
		{"exact", reply{200, "rock d50dd30f The Shins / Chutes Too Narrow"}, []string{"Chutes Too Narrow"}},
		{"list", reply{211, "rock d50dd30f The Shins / Chutes Too Narrow\nmisc d50dd30f Various / Mix\n"}, []string{"Chutes Too Narrow", "Mix"}},
		{"no match", reply{202, "No match found."}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend(map[string][]reply{acd1Query: {tt.reply}})
			c := New(b, nil, Options{})

			discs, err := c.Search(context.Background(), acd1Offsets, 3541)
			require.NoError(t, err)
			titles := []string{}
			for _, d := range discs {
				titles = append(titles, d.Title)
			}
			assert.Equal(t, tt.titles, titles)
			assert.Equal(t, []string{acd1Query}, b.sent)
		})
	}
}

func TestSearchResultFields(t *testing.T) {
	b := newFakeBackend(map[string][]reply{"cddb query x": {{200, "rock d50dd30f The Shins / Chutes Too Narrow"}}})
	discs, err := New(b, nil, Options{}).SearchRaw(context.Background(), "cddb query x")

	require.NoError(t, err)
	require.Len(t, discs, 1)
	assert.Equal(t, "rock", discs[0].Category)
	assert.Equal(t, "d50dd30f", discs[0].DiscID)
	assert.Equal(t, "The Shins", discs[0].Artist)
}

func TestSearchRetriesOnce(t *testing.T) {
	b := newFakeBackend(map[string][]reply{"cddb query x": {
		{502, "Already performed a query for disc ID: x"},
		{200, "rock x Artist / Title"},
	}})
	c := New(b, nil, Options{Persist: true})

	discs, err := c.SearchRaw(context.Background(), "cddb query x")
	require.NoError(t, err)
	assert.Len(t, discs, 1)
	assert.Equal(t, []string{"cddb query x", "cddb query x"}, b.sent)
	assert.Equal(t, 1, b.disconnects)
	assert.Equal(t, 2, b.connects)
}

func TestSearchSecondAlreadyFails(t *testing.T) {
	b := newFakeBackend(map[string][]reply{"cddb query x": {{502, "Already performed a query for disc ID: x"}}})

	_, err := New(b, nil, Options{}).SearchRaw(context.Background(), "cddb query x")
	var se *cddb.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, cddb.StatusErrorAlready, se.Code)
	assert.Len(t, b.sent, 2)
}

func TestSearchFailures(t *testing.T) {
	for _, code := range []int{401, 402, 403, 409} {
		b := newFakeBackend(map[string][]reply{"cddb query x": {{code, "nope"}}})

		discs, err := New(b, nil, Options{}).SearchRaw(context.Background(), "cddb query x")
		assert.Nil(t, discs)
		var se *cddb.StatusError
		require.ErrorAs(t, err, &se, "status %d", code)
		assert.Equal(t, code, se.Code)
	}
}

func TestPersist(t *testing.T) {
	b := newFakeBackend(map[string][]reply{"ver": {{200, "cddbd v1.5"}}})

	c := New(b, nil, Options{})
	_, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.False(t, b.connected)

	c = New(b, nil, Options{Persist: true})
	_, err = c.Version(context.Background())
	require.NoError(t, err)
	assert.True(t, b.connected)
	require.NoError(t, c.Disconnect())
	assert.False(t, b.connected)
}

func TestSendError(t *testing.T) {
	b := newFakeBackend(nil)
	b.sendErr = protocol.ErrEmptyResponse

	_, err := New(b, nil, Options{}).Categories(context.Background())
	assert.ErrorIs(t, err, protocol.ErrEmptyResponse)
}

func TestRead(t *testing.T) {
	b := newFakeBackend(map[string][]reply{
		"cddb read rock 2a038402": {{210, "DISCID=2a038402\nDTITLE=The Shins / Oh, Inverted World\nDYEAR=2001\nTTITLE0=Caring Is Creepy"}},
		"cddb read rock ffffffff": {{401, "Specified CDDB entry not found."}},
	})
	c := New(b, nil, Options{})

	disc, err := c.Read(context.Background(), "rock", "2a038402")
	require.NoError(t, err)
	assert.Equal(t, "rock", disc.Category)
	assert.Equal(t, 2001, disc.Year)
	require.Len(t, disc.Tracks, 1)
	assert.Equal(t, "Caring Is Creepy", disc.Tracks[0].Title)

	_, err = c.Read(context.Background(), "rock", "ffffffff")
	assert.ErrorIs(t, err, cddb.ErrNotFound)
	var se *cddb.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 401, se.Code)
}

func TestCategoriesAndStatistics(t *testing.T) {
	b := newFakeBackend(map[string][]reply{
		"cddb lscat": {{210, "data\nfolk\nrock\n."}},
		"stat":       {{210, "Server status:\n    current proto: 5\n    strip ext: no\n    bogus: 1\nDatabase entries: 3\n    rock: 2\n    misc: 1"}},
	})
	c := New(b, nil, Options{})

	categories, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"data", "folk", "rock"}, categories)

	stats, err := c.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"current_proto": "5",
		"strip_ext":     "no",
		"rock":          "2",
		"misc":          "1",
	}, stats)
}

func TestCategoriesUnavailable(t *testing.T) {
	b := newFakeBackend(map[string][]reply{"cddb lscat": {{401, "No categories."}}})

	categories, err := New(b, nil, Options{}).Categories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestSites(t *testing.T) {
	b := newFakeBackend(map[string][]reply{"sites": {{210,
		"freedb.freedb.org cddbp 8880 - N000.00 W000.00 Random freedb server\n" +
			"freedb.freedb.org http 80 /~cddb/cddb.cgi N000.00 W000.00 Random freedb server"}}})

	sites, err := New(b, nil, Options{}).Sites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, 8880, sites[0].Port)
	assert.Equal(t, "Random freedb server", sites[0].Description)
	assert.Equal(t, "/~cddb/cddb.cgi", sites[1].Address)
}

func TestTextCommands(t *testing.T) {
	b := newFakeBackend(map[string][]reply{
		"motd":            {{210, "Last modified: today\nWelcome.\n."}},
		"ver":             {{200, "cddbd v1.5.2PL0 Copyright (c) Steve Scherf et al."}},
		"help query":      {{210, "Performs a search.\n."}},
		"discid 1 150 62": {{200, "Disc ID is 2003c01"}},
	})
	c := New(b, nil, Options{})
	ctx := context.Background()

	motd, err := c.Motd(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Last modified: today\nWelcome.\n", motd)

	ver, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Contains(t, ver, "cddbd v1.5.2")

	help, err := c.Help(ctx, "query", "")
	require.NoError(t, err)
	assert.Equal(t, "Performs a search.\n", help)

	id, err := c.RemoteDiscID(ctx, []int{150}, 62)
	require.NoError(t, err)
	assert.Equal(t, "2003c01", id)
}

func TestCDHelpers(t *testing.T) {
	b := newFakeBackend(map[string][]reply{acd1Query: {{200, "rock d50dd30f The Shins / Chutes Too Narrow"}}})
	c := New(b, reader.Fixture{}, Options{Device: "/dev/acd1"})
	ctx := context.Background()

	offsets, err := c.TrackOffsetsForCD(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, acd1Offsets, offsets)

	length, err := c.LengthForCD(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3541, length)

	id, err := c.DiscIDForCD(ctx, "/dev/acd0")
	require.NoError(t, err)
	assert.Equal(t, "83085c0b", id)

	discs, err := c.SearchCD(ctx, "")
	require.NoError(t, err)
	require.Len(t, discs, 1)
	assert.Equal(t, "Chutes Too Narrow", discs[0].Title)

	_, err = c.SearchCD(ctx, "/dev/acd3")
	assert.ErrorIs(t, err, ErrNoDisc)
}

type brokenReader struct{}

func (brokenReader) TrackOffsets(context.Context, bool, string) ([]int, error) {
	return nil, reader.ErrBinaryNotFound
}

func TestCDHelpersReaderError(t *testing.T) {
	c := New(newFakeBackend(nil), brokenReader{}, Options{})

	_, err := c.DiscIDForCD(context.Background(), "")
	assert.True(t, errors.Is(err, reader.ErrBinaryNotFound))

	_, err = New(newFakeBackend(nil), nil, Options{}).LengthForCD(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoDisc)
}

func TestAgainstFilesystemDump(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rock"), 0755))
	record := "DISCID=d50dd30f\nDTITLE=The Shins / Chutes Too Narrow\nDYEAR=2003\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rock", "d50dd30f"), []byte(record), 0644))

	c := New(protocol.NewFilesystem(dir, protocol.Options{}), reader.Fixture{}, Options{Device: "/dev/acd1"})
	ctx := context.Background()

	discs, err := c.SearchCD(ctx, "")
	require.NoError(t, err)
	require.Len(t, discs, 1)

	disc, err := c.Details(ctx, discs[0])
	require.NoError(t, err)
	assert.Equal(t, "The Shins", disc.Artist)
	assert.Equal(t, 2003, disc.Year)
}
