package protocol

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocddb/core/cddb"
)

func newCGIServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/~cddb/cddb.cgi", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "tester example.com gocddb "+cddb.Version, r.PostForm.Get("hello"))
		assert.Equal(t, "5", r.PostForm.Get("proto"))

		switch r.PostForm.Get("cmd") {
		case "cddb lscat":
			w.Write([]byte("210 OK, category list follows (until terminating `.')\r\nrock\r\njazz\r\nmisc\r\n.\r\n"))
		case "cddb read misc 0000000a":
			w.Write([]byte("210 misc 0000000a CD database entry follows (until terminating `.')\r\n" +
				"DISCID=0000000a\r\nDTITLE=Artist / Title\r\nTTITLE0=..and Then\r\nEXTT0=Remastered.\r\n.\r\n"))
		case "ver":
			w.Write([]byte("200 cddbd v1.5.2PL0 Copyright (c) Steve Scherf et al.\r\n"))
		case "empty":
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPSend(t *testing.T) {
	server := newCGIServer(t)
	h := NewHTTP(server.URL+"/~cddb/cddb.cgi", Options{User: "tester", Host: "example.com"})

	require.NoError(t, h.Send(context.Background(), "cddb lscat"))
	assert.Equal(t, cddb.StatusFollows, h.Status())
	assert.Equal(t, []string{"rock", "jazz", "misc"}, cddb.PayloadLines(h.Receive()))

	require.NoError(t, h.Send(context.Background(), "ver"))
	assert.Equal(t, cddb.StatusOK, h.Status())
	assert.Equal(t, "cddbd v1.5.2PL0 Copyright (c) Steve Scherf et al.", h.Receive())

	require.NoError(t, h.Send(context.Background(), "cddb read misc 0000000a"))
	assert.Equal(t, "DISCID=0000000a\nDTITLE=Artist / Title\nTTITLE0=..and Then\nEXTT0=Remastered.", h.Receive())
	disc := cddb.ParseRecord(h.Receive(), "misc")
	require.Len(t, disc.Tracks, 1)
	assert.Equal(t, "..and Then", disc.Tracks[0].Title)
	assert.Equal(t, "Remastered.", disc.Tracks[0].ExtraData)

	assert.False(t, h.Connected())
	assert.True(t, h.Remote())
}

func TestHTTPFailures(t *testing.T) {
	server := newCGIServer(t)
	h := NewHTTP(server.URL+"/~cddb/cddb.cgi", Options{User: "tester", Host: "example.com"})

	err := h.Send(context.Background(), "explode")
	assert.True(t, errors.Is(err, ErrNotConnected))

	err = h.Send(context.Background(), "empty")
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestUnstuff(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"terminator", "rock\njazz\n.", "rock\njazz"},
		{"no terminator", "rock\njazz", "rock\njazz"},
		{"only terminator", ".", ""},
		{"trailing dot kept", "EXTT0=Remastered.\n.", "EXTT0=Remastered."},
		{"stuffed once", "..x\n...y\n.", ".x\n..y"},
		{"trailing whitespace", "rock\n.\n\n", "rock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, unstuff(tt.payload))
		})
	}
}
