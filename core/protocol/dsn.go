package protocol

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gocddb/db"
)

// Scheme selects a backend implementation.
type Scheme int

const (
	SchemeUnknown Scheme = iota
	SchemeCDDBP
	SchemeHTTP
	SchemeFilesystem
	SchemeSQL
	SchemeObjectStore
)

func (s Scheme) String() string {
	switch s {
	case SchemeCDDBP:
		return "cddbp"
	case SchemeHTTP:
		return "http"
	case SchemeFilesystem:
		return "filesystem"
	case SchemeSQL:
		return "sql"
	case SchemeObjectStore:
		return "minio"
	default:
		return "unknown"
	}
}

const (
	DefaultServer    = "freedb.freedb.org"
	DefaultCDDBPPort = 8880
	DefaultHTTPPort  = 80
	DefaultHTTPPath  = "/~cddb/cddb.cgi"
	DefaultSQLPort   = 3306
)

// DSN is a parsed backend address such as cddbp://user@freedb.org:8880,
// filesystem:///srv/freedb or sql.mysql://user:pw@host/freedb.
type DSN struct {
	Scheme   Scheme
	Driver   string
	User     string
	Password string
	Host     string
	Port     int
	Path     string
	Query    url.Values
	Raw      string
}

// ParseDSN parses raw and fills in per-scheme defaults.
func ParseDSN(raw string) (DSN, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return DSN{}, fmt.Errorf("invalid backend dsn %q: %w", raw, err)
	}

	base, driver, _ := strings.Cut(strings.ToLower(u.Scheme), ".")
	d := DSN{Driver: driver, Path: u.Path, Query: u.Query(), Raw: raw}
	switch base {
	case "cddbp":
		d.Scheme = SchemeCDDBP
	case "http":
		d.Scheme = SchemeHTTP
	case "filesystem", "file":
		d.Scheme = SchemeFilesystem
	case "sql", "mdb2":
		d.Scheme = SchemeSQL
		if d.Driver == "" {
			d.Driver = "mysql"
		}
	case "minio", "s3":
		d.Scheme = SchemeObjectStore
	default:
		return DSN{}, fmt.Errorf("%w: %q", ErrUnknownScheme, u.Scheme)
	}

	if u.User != nil {
		d.User = u.User.Username()
		d.Password, _ = u.User.Password()
	}
	d.Host = u.Hostname()
	if p := u.Port(); p != "" {
		if d.Port, err = strconv.Atoi(p); err != nil {
			return DSN{}, fmt.Errorf("invalid port in dsn %q: %w", raw, err)
		}
	}

	switch d.Scheme {
	case SchemeCDDBP:
		if d.Host == "" {
			d.Host = DefaultServer
		}
		if d.Port == 0 {
			d.Port = DefaultCDDBPPort
		}
	case SchemeHTTP:
		if d.Host == "" {
			d.Host = DefaultServer
		}
		if d.Port == 0 {
			d.Port = DefaultHTTPPort
		}
		if d.Path == "" || d.Path == "/" {
			d.Path = DefaultHTTPPath
		}
	case SchemeSQL:
		if d.Driver == "mysql" && d.Port == 0 {
			d.Port = DefaultSQLPort
		}
	}
	return d, nil
}

// Address returns host:port.
func (d DSN) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Dialector builds the gorm dialector of an SQL DSN.
func (d DSN) Dialector() (gorm.Dialector, error) {
	switch d.Driver {
	case "mysql":
		name := strings.TrimPrefix(d.Path, "/")
		return mysql.Open(db.MySQLDSN(d.User, d.Password, d.Address(), name)), nil
	case "sqlite", "sqlite3":
		path := d.Path
		if d.Host != "" {
			path = d.Host + path
		}
		return sqlite.Open(path), nil
	default:
		return nil, fmt.Errorf("%w: sql driver %q", ErrUnknownScheme, d.Driver)
	}
}

// New builds the backend selected by the DSN. The user part of the DSN, when
// present, overrides opts.User.
func New(raw string, opts Options) (Backend, error) {
	d, err := ParseDSN(raw)
	if err != nil {
		return nil, err
	}
	if d.User != "" && d.Scheme != SchemeSQL {
		opts.User = d.User
	}

	switch d.Scheme {
	case SchemeCDDBP:
		return NewCDDBP(d.Address(), opts), nil
	case SchemeHTTP:
		u := url.URL{Scheme: "http", Host: d.Address(), Path: d.Path}
		return NewHTTP(u.String(), opts), nil
	case SchemeFilesystem:
		return NewFilesystem(d.Path, opts), nil
	case SchemeSQL:
		dialector, err := d.Dialector()
		if err != nil {
			return nil, err
		}
		return NewSQL(dialector, opts), nil
	case SchemeObjectStore:
		if opts.Store == nil {
			return nil, fmt.Errorf("%w: object store client not configured", ErrNotConnected)
		}
		prefix := strings.Trim(d.Path, "/")
		return NewObjectStore(opts.Store, prefix, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, raw)
	}
}
