package model

import (
	"fmt"
	"math"
	"strings"
)

const (
	// FramesPerSecond is the number of CD frames in one second of audio.
	FramesPerSecond = 75
	// DiscIDLength is the fixed width of a disc identifier.
	DiscIDLength = 8
	// RevisionUnassigned marks a disc built locally that no server has stored yet.
	RevisionUnassigned = -1
)

// Track 表示光盘上的一条音轨
type Track struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Offset    int    `json:"offset"`
	ExtraData string `json:"extraData,omitempty"`
	Length    int    `json:"length"`
}

// FormattedLength returns the track length as HH:MM:SS.
func (t Track) FormattedLength() string {
	return formatSeconds(t.Length)
}

// Disc 表示一张光盘及其音轨信息
type Disc struct {
	DiscID       string  `json:"discId"`
	Artist       string  `json:"artist"`
	Title        string  `json:"title"`
	Category     string  `json:"category"`
	Genre        string  `json:"genre"`
	Year         int     `json:"year"`
	Length       int     `json:"length"`
	Revision     int     `json:"revision"`
	PlayOrder    string  `json:"playOrder,omitempty"`
	ExtraData    string  `json:"extraData,omitempty"`
	SubmittedVia string  `json:"submittedVia,omitempty"`
	ProcessedBy  string  `json:"processedBy,omitempty"`
	Tracks       []Track `json:"tracks"`
}

// NewDisc builds a locally constructed disc. Tracks without an artist inherit
// the disc artist and missing lengths are derived from the offsets.
func NewDisc(discID, artist, title string, length int, tracks []Track) Disc {
	for i := range tracks {
		if tracks[i].Artist == "" {
			tracks[i].Artist = artist
		}
	}
	d := Disc{
		DiscID:   NormalizeDiscID(discID),
		Artist:   artist,
		Title:    title,
		Length:   length,
		Revision: RevisionUnassigned,
		Tracks:   tracks,
	}
	d.DeriveTrackLengths()
	return d
}

// NormalizeDiscID pads id with spaces or truncates it to DiscIDLength characters.
func NormalizeDiscID(id string) string {
	if len(id) >= DiscIDLength {
		return id[:DiscIDLength]
	}
	return id + strings.Repeat(" ", DiscIDLength-len(id))
}

// NumTracks returns the number of tracks on the disc.
func (d Disc) NumTracks() int {
	return len(d.Tracks)
}

// Track returns track n (0-based).
func (d Disc) Track(n int) (Track, bool) {
	if n < 0 || n >= len(d.Tracks) {
		return Track{}, false
	}
	return d.Tracks[n], true
}

// Offsets returns the frame offsets of all tracks.
func (d Disc) Offsets() []int {
	offsets := make([]int, len(d.Tracks))
	for i, t := range d.Tracks {
		offsets[i] = t.Offset
	}
	return offsets
}

// FormattedLength returns the disc length as HH:MM:SS.
func (d Disc) FormattedLength() string {
	return formatSeconds(d.Length)
}

// DeriveTrackLengths fills in lengths of tracks that have none. A track runs
// until the next track's offset; the last one runs until the end of the disc.
func (d *Disc) DeriveTrackLengths() {
	for i := range d.Tracks {
		if d.Tracks[i].Length != 0 {
			continue
		}
		if i+1 < len(d.Tracks) {
			frames := d.Tracks[i+1].Offset - d.Tracks[i].Offset
			d.Tracks[i].Length = int(math.Round(float64(frames) / FramesPerSecond))
			continue
		}
		d.Tracks[i].Length = d.Length - d.Tracks[i].Offset/FramesPerSecond
	}
}

func formatSeconds(total int) string {
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
