// Package cddb implements the CDDB disc fingerprint, the xmcd record format
// and the protocol status taxonomy shared by clients, servers and backends.
package cddb

const (
	// ProtoLevel is the CDDB protocol level spoken by this package.
	ProtoLevel = 5
	// Version is reported by the ver command and used in hello handshakes.
	Version = "1.0.0"
	// ClientName identifies this program in hello handshakes.
	ClientName = "gocddb"
)

// Protocol status codes.
const (
	StatusOK           = 200
	StatusOKSet        = 201
	StatusOKReadOnly   = 201
	StatusNoMatch      = 202
	StatusFollows      = 210
	StatusInexact      = 211
	StatusGoodbye      = 230
	StatusUnavailable  = 401
	StatusServerError  = 402
	StatusAlready      = 402
	StatusCorrupt      = 403
	StatusCGIError     = 408
	StatusNoHandshake  = 409
	StatusBadHandshake = 431
	StatusNoPermission = 432
	StatusTooManyUsers = 433
	StatusSystemLoad   = 434
	StatusSyntaxError  = 500
	StatusUnrecognized = 500
	StatusEmpty        = 500
	StatusIllegal      = 501
	StatusErrorAlready = 502
	StatusTimeout      = 530
)

// Messages sent by the dispatcher and local backends.
const (
	MsgSyntaxError     = "Command syntax error: incorrect number of arguments."
	MsgEmptyCommand    = "Empty command input."
	MsgUnrecognized    = "Unrecognized command."
	MsgInternalError   = "Internal server error."
	MsgNoMatch         = "No match found."
	MsgNotFound        = "Specified CDDB entry not found."
	MsgNoMotd          = "No message of the day available."
	MsgCorruptDatabase = "Database entry is corrupt."
	MsgListFollows     = "(until terminating `.')"
)

// ParseStatus returns the three digit status code at the start of line, or 0.
func ParseStatus(line string) int {
	if len(line) < 3 {
		return 0
	}
	code := 0
	for i := 0; i < 3; i++ {
		c := line[i]
		if c < '0' || c > '9' {
			return 0
		}
		code = code*10 + int(c-'0')
	}
	return code
}

// IsOK reports whether code is in the 2xx range.
func IsOK(code int) bool {
	return code >= 200 && code < 300
}
