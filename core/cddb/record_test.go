package cddb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocddb/model"
)

const sampleRecord = `# xmcd
#
# Track frame offsets:
#       150
#       21052
#       43715
#
# Disc length: 900 seconds
#
# Revision: 3
# Submitted via: ExampleTagger 1.0
# Processed by: cddbd v1.5.2PL0 Copyright (c) Steve Scherf et al.
#
DISCID=2a038403
DTITLE=The Shins / Oh, Inverted World
DYEAR=2001
DGENRE=Indie
TTITLE0=Caring Is Creepy
TTITLE1=One by One All 
TTITLE1=Day
TTITLE2=Guest Artist / Weird Divide
EXTD=Sub Pop
EXTT0=
EXTT1=live
EXTT2=
PLAYORDER=
`

func TestParseRecord(t *testing.T) {
	disc := ParseRecord(sampleRecord, "rock")

	assert.Equal(t, "rock", disc.Category)
	assert.Equal(t, "2a038403", disc.DiscID)
	assert.Equal(t, "The Shins", disc.Artist)
	assert.Equal(t, "Oh, Inverted World", disc.Title)
	assert.Equal(t, 2001, disc.Year)
	assert.Equal(t, "Indie", disc.Genre)
	assert.Equal(t, 900, disc.Length)
	assert.Equal(t, 3, disc.Revision)
	assert.Equal(t, "ExampleTagger 1.0", disc.SubmittedVia)
	assert.Equal(t, "cddbd v1.5.2PL0 Copyright (c) Steve Scherf et al.", disc.ProcessedBy)
	assert.Equal(t, "Sub Pop", disc.ExtraData)

	require.Len(t, disc.Tracks, 3)
	assert.Equal(t, "Caring Is Creepy", disc.Tracks[0].Title)
	assert.Equal(t, "The Shins", disc.Tracks[0].Artist)
	assert.Equal(t, "One by One All Day", disc.Tracks[1].Title)
	assert.Equal(t, "live", disc.Tracks[1].ExtraData)
	assert.Equal(t, "Guest Artist", disc.Tracks[2].Artist)
	assert.Equal(t, "Weird Divide", disc.Tracks[2].Title)
	assert.Equal(t, []int{150, 21052, 43715}, disc.Offsets())
}

func TestParseRecordTrackLengths(t *testing.T) {
	disc := ParseRecord(sampleRecord, "rock")

	require.Len(t, disc.Tracks, 3)
	assert.Equal(t, 279, disc.Tracks[0].Length)
	assert.Equal(t, 302, disc.Tracks[1].Length)
	assert.Equal(t, 318, disc.Tracks[2].Length)
	assert.Equal(t, "00:04:39", disc.Tracks[0].FormattedLength())
	assert.Equal(t, "00:15:00", disc.FormattedLength())
}

func TestParseRecordLineEndings(t *testing.T) {
	want := ParseRecord(sampleRecord, "rock")

	crlf := strings.ReplaceAll(sampleRecord, "\n", "\r\n")
	cr := strings.ReplaceAll(sampleRecord, "\n", "\r")

	assert.Equal(t, want, ParseRecord(crlf, "rock"))
	assert.Equal(t, want, ParseRecord(cr, "rock"))
}

func TestParseRecordTitleWithoutSeparator(t *testing.T) {
	text := "DISCID=abc\nDTITLE=Just A Title\nTTITLE0=One / Two / Three\nTTITLE1=Plain\n"
	disc := ParseRecord(text, "misc")

	assert.Equal(t, "abc     ", disc.DiscID)
	assert.Equal(t, "Just A Title", disc.Artist)
	assert.Equal(t, "Just A Title", disc.Title)
	require.Len(t, disc.Tracks, 2)
	assert.Equal(t, "One / Two / Three", disc.Tracks[0].Title)
	assert.Equal(t, "Just A Title", disc.Tracks[0].Artist)
	assert.Equal(t, "Plain", disc.Tracks[1].Title)
}

func TestParseRecordIgnoresJunk(t *testing.T) {
	text := "garbage line\nTTITLEx=bad index\nTTITLE999=too far\nUNKNOWN=value\nDTITLE=A / B\n"
	disc := ParseRecord(text, "")

	assert.Equal(t, "A", disc.Artist)
	assert.Equal(t, "B", disc.Title)
	assert.Empty(t, disc.Tracks)
	assert.Equal(t, "        ", disc.DiscID)
}

func TestParseRecordEmpty(t *testing.T) {
	disc := ParseRecord("", "jazz")

	assert.Equal(t, "jazz", disc.Category)
	assert.Equal(t, 0, disc.Year)
	assert.Empty(t, disc.Tracks)
}

func TestSerializeRoundTrip(t *testing.T) {
	original := ParseRecord(sampleRecord, "rock")

	text := Serialize(original)
	parsed := ParseRecord(text, "rock")

	assert.Equal(t, original.DiscID, parsed.DiscID)
	assert.Equal(t, original.Artist, parsed.Artist)
	assert.Equal(t, original.Title, parsed.Title)
	assert.Equal(t, original.Year, parsed.Year)
	assert.Equal(t, original.Genre, parsed.Genre)
	assert.Equal(t, original.PlayOrder, parsed.PlayOrder)
	assert.Equal(t, original.Length, parsed.Length)
	assert.Equal(t, original.Revision, parsed.Revision)
	assert.Equal(t, original.Tracks, parsed.Tracks)
}

func TestSerializeRoundTripUnsplitTitle(t *testing.T) {
	const record = "# xmcd\r\n#\r\n# Track frame offsets:\r\n#    150\r\n#\r\n" +
		"# Disc length: 300 seconds\r\n#\r\n# Revision: 2\r\n" +
		"DISCID=0a01f401\r\nDTITLE=Various / Best Of / Vol 1\r\nDYEAR=1999\r\n" +
		"TTITLE0=Intro\r\nEXTD=\r\nEXTT0=\r\nPLAYORDER=\r\n"

	original := ParseRecord(record, "misc")
	require.Equal(t, "Various / Best Of / Vol 1", original.Artist)
	require.Equal(t, "Various / Best Of / Vol 1", original.Title)

	text := Serialize(original)
	assert.Contains(t, strings.Split(text, "\r\n"), "DTITLE=Various / Best Of / Vol 1")
	assert.Contains(t, strings.Split(text, "\r\n"), "TTITLE0=Intro")

	parsed := ParseRecord(text, "misc")
	assert.Equal(t, original.Artist, parsed.Artist)
	assert.Equal(t, original.Title, parsed.Title)
	assert.Equal(t, original.Tracks, parsed.Tracks)
	assert.Equal(t, Serialize(parsed), text)
}

func TestSerializeFormat(t *testing.T) {
	disc := model.NewDisc("d50dd30f", "Various", "Ska Island", 600, []model.Track{
		{Title: "Opener", Offset: 150},
		{Title: "Guest Song", Artist: "Guest", Offset: 22650},
	})

	text := Serialize(disc)
	lines := strings.Split(text, "\r\n")

	assert.Equal(t, "# xmcd", lines[0])
	assert.Contains(t, lines, "#    150")
	assert.Contains(t, lines, "#    22650")
	assert.Contains(t, lines, "# Disc length: 600 seconds")
	assert.Contains(t, lines, "# Revision: 0")
	assert.Contains(t, lines, "DISCID=d50dd30f")
	assert.Contains(t, lines, "DTITLE=Various / Ska Island")
	assert.Contains(t, lines, "TTITLE0=Opener")
	assert.Contains(t, lines, "TTITLE1=Guest / Guest Song")
	assert.Contains(t, lines, "EXTT1=")
	assert.Equal(t, "PLAYORDER=", lines[len(lines)-1])
	assert.NotContains(t, text, "\n\n")
}

func TestParseSearchResult(t *testing.T) {
	disc := ParseSearchResult("rock d50dd30f Various / Ska Island")

	assert.Equal(t, "rock", disc.Category)
	assert.Equal(t, "d50dd30f", disc.DiscID)
	assert.Equal(t, "Various", disc.Artist)
	assert.Equal(t, "Ska Island", disc.Title)
	assert.Empty(t, disc.Tracks)
}

func TestParseSearchResultShortLine(t *testing.T) {
	disc := ParseSearchResult("misc")

	assert.Equal(t, "misc", disc.Category)
	assert.Equal(t, "        ", disc.DiscID)
}

func TestExtractField(t *testing.T) {
	assert.Equal(t, "The Shins / Oh, Inverted World", ExtractField(sampleRecord, "DTITLE"))
	assert.Equal(t, "2001", ExtractField(sampleRecord, "DYEAR"))
	assert.Equal(t, "One by One All", ExtractField(sampleRecord, "TTITLE1"))
	assert.Equal(t, "", ExtractField(sampleRecord, "NOPE"))
	assert.Equal(t, "x", ExtractField("A=1\r\nB=x\r\n", "B"))
	assert.Equal(t, "The Shins / Oh, Inverted World", ExtractField(sampleRecord, "DTITLE="))
	assert.Equal(t, "2001", ExtractField(sampleRecord, "DYEAR="))
}
