package cddb

import (
	"fmt"
	"strconv"
	"strings"

	"gocddb/model"
)

// maxTracks bounds TTITLEn/EXTTn indexes accepted from untrusted records.
const maxTracks = 256

const titleSeparator = " / "

// discFields collects the raw, space-joined values of a record before they
// are split and trimmed into a Disc.
type discFields struct {
	discID    string
	dtitle    string
	dyear     string
	dgenre    string
	extd      string
	playOrder string
	ttitle    []string
	extt      []string
}

func (f *discFields) track(list *[]string, n int) *string {
	for len(*list) <= n {
		*list = append(*list, "")
	}
	return &(*list)[n]
}

// ParseRecord decodes an xmcd record into a Disc. category is stored verbatim.
// Unknown keys and comments are ignored; a malformed record yields a partially
// populated Disc rather than an error.
func ParseRecord(text, category string) model.Disc {
	var (
		f       discFields
		offsets []int
		disc    = model.Disc{Category: category}
	)

	lines := recordLines(text)
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if !strings.HasPrefix(line, "#") {
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			f.assign(strings.ToLower(strings.TrimSpace(key)), value)
			continue
		}

		comment := line[1:]
		switch {
		case strings.Contains(strings.ToLower(comment), "frame offsets"):
			for i+1 < len(lines) {
				offset := leadingInt(strings.TrimPrefix(lines[i+1], "#"))
				if offset == 0 {
					break
				}
				offsets = append(offsets, offset)
				i++
			}
		case hasMarker(comment, "Disc length:"):
			disc.Length = leadingInt(markerValue(comment, "Disc length:"))
		case hasMarker(comment, "Revision:"):
			disc.Revision = leadingInt(markerValue(comment, "Revision:"))
		case hasMarker(comment, "Submitted via:"):
			disc.SubmittedVia = markerValue(comment, "Submitted via:")
		case hasMarker(comment, "Processed by:"):
			disc.ProcessedBy = markerValue(comment, "Processed by:")
		}
	}

	disc.DiscID = model.NormalizeDiscID(strings.TrimSpace(f.discID))
	if artist, title, ok := splitTitle(f.dtitle); ok {
		disc.Artist, disc.Title = artist, title
	} else {
		disc.Artist, disc.Title = title, title
	}
	disc.Year = leadingInt(f.dyear)
	disc.Genre = strings.TrimSpace(f.dgenre)
	disc.ExtraData = strings.TrimSpace(f.extd)
	disc.PlayOrder = strings.TrimSpace(f.playOrder)

	n := len(f.ttitle)
	if len(offsets) > n {
		n = len(offsets)
	}
	disc.Tracks = make([]model.Track, n)
	for i := range disc.Tracks {
		t := &disc.Tracks[i]
		t.Artist = disc.Artist
		if i < len(f.ttitle) {
			if artist, title, ok := splitTitle(f.ttitle[i]); ok {
				t.Artist, t.Title = artist, title
			} else {
				t.Title = title
			}
		}
		if i < len(f.extt) {
			t.ExtraData = strings.TrimSpace(f.extt[i])
		}
		if i < len(offsets) {
			t.Offset = offsets[i]
		}
	}
	disc.DeriveTrackLengths()
	return disc
}

func (f *discFields) assign(key, value string) {
	value = " " + strings.TrimSpace(value)

	switch {
	case strings.HasPrefix(key, "ttitle"):
		if n, ok := trackIndex(key[len("ttitle"):]); ok {
			*f.track(&f.ttitle, n) += value
		}
	case strings.HasPrefix(key, "extt"):
		if n, ok := trackIndex(key[len("extt"):]); ok {
			*f.track(&f.extt, n) += value
		}
	case key == "discid":
		f.discID += value
	case key == "dtitle":
		f.dtitle += value
	case key == "dyear":
		f.dyear += value
	case key == "dgenre":
		f.dgenre += value
	case key == "extd":
		f.extd += value
	case key == "playorder":
		f.playOrder += value
	}
}

// ParseSearchResult decodes one query match line of the form
// "CATEGORY DISCID ARTIST / TITLE".
func ParseSearchResult(line string) model.Disc {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 3)
	var category, discID, title string
	switch len(parts) {
	case 3:
		title = parts[2]
		fallthrough
	case 2:
		discID = parts[1]
		fallthrough
	case 1:
		category = parts[0]
	}
	return ParseRecord("DISCID="+discID+"\nDTITLE="+title, category)
}

// Serialize encodes d as an xmcd record with CRLF line endings. Track artists
// are written only when they differ from the disc artist.
func Serialize(d model.Disc) string {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteString("\r\n")
	}

	revision := d.Revision
	if revision < 0 {
		revision = 0
	}

	line("# xmcd")
	line("#")
	line("# Track frame offsets:")
	for _, t := range d.Tracks {
		line("#    %d", t.Offset)
	}
	line("#")
	line("# Disc length: %d seconds", d.Length)
	line("#")
	line("# Revision: %d", revision)
	line("# Submitted via: %s", d.SubmittedVia)
	line("# Processed by: %s", d.ProcessedBy)
	line("#")
	line("DISCID=%s", strings.TrimSpace(d.DiscID))
	// ParseRecord sets artist and title to the whole DTITLE when it cannot
	// split it, so write it back unsplit.
	if d.Artist == d.Title {
		line("DTITLE=%s", d.Title)
	} else {
		line("DTITLE=%s%s%s", d.Artist, titleSeparator, d.Title)
	}
	line("DYEAR=%s", yearString(d.Year))
	line("DGENRE=%s", d.Genre)
	for i, t := range d.Tracks {
		if t.Artist != d.Artist {
			line("TTITLE%d=%s%s%s", i, t.Artist, titleSeparator, t.Title)
		} else {
			line("TTITLE%d=%s", i, t.Title)
		}
	}
	line("EXTD=%s", d.ExtraData)
	for i, t := range d.Tracks {
		line("EXTT%d=%s", i, t.ExtraData)
	}
	line("PLAYORDER=%s", d.PlayOrder)

	return strings.TrimRight(b.String(), " \t\r\n")
}

// ExtractField returns the trimmed value of the first KEY=VALUE line whose
// key is field, or "" when there is none. field may carry its trailing "=".
func ExtractField(text, field string) string {
	prefix := strings.TrimSuffix(field, "=") + "="
	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return ""
}

// splitTitle splits "ARTIST / TITLE". ok is false unless the value holds
// exactly one separator, in which case title is the whole trimmed value.
func splitTitle(value string) (artist, title string, ok bool) {
	parts := strings.Split(value, titleSeparator)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
	}
	return "", strings.TrimSpace(value), false
}

func recordLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(normalizeNewlines(text), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func hasMarker(comment, marker string) bool {
	return strings.HasPrefix(strings.TrimSpace(comment), marker)
}

func markerValue(comment, marker string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(comment), marker))
}

func trackIndex(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= maxTracks {
		return 0, false
	}
	return n, true
}

// leadingInt parses the integer prefix of s after leading blanks, 0 if none.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func yearString(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}
