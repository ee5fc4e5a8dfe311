package protocol

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testRecord = "# xmcd\r\n" +
	"#\r\n" +
	"# Track frame offsets:\r\n" +
	"#    150\r\n" +
	"#    21052\r\n" +
	"#\r\n" +
	"# Disc length: 600 seconds\r\n" +
	"#\r\n" +
	"# Revision: 1\r\n" +
	"#\r\n" +
	"DISCID=2a038402\r\n" +
	"DTITLE=The Shins / Oh, Inverted World\r\n" +
	"DYEAR=2001\r\n" +
	"DGENRE=Indie\r\n" +
	"TTITLE0=Caring Is Creepy\r\n" +
	"TTITLE1=Know Your Onion!\r\n" +
	"EXTD=\r\n" +
	"EXTT0=\r\n" +
	"EXTT1=\r\n" +
	"PLAYORDER=\r\n"

const testSites = `- site: freedb.freedb.org
  protocol: cddbp
  port: 8880
  address: "-"
  latitude: N000.00
  longitude: W000.00
  description: Random freedb server
`

// writeDump lays out a small FreeDB dump and returns its directory.
func writeDump(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"rock/2a038402": testRecord,
		"misc/2a038402": "DISCID=2a038402\nDTITLE=Various / Ska Island\n",
		"jazz/820e770a": "DISCID=820e770a\nDTITLE=Joshua Redman / Wish\n",
		"motd.txt":      "Welcome to the test dump.\n",
		"sites.yaml":    testSites,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}
