package cddb

import (
	"io"
	"strconv"
	"strings"
)

// Response is a single protocol reply: a status line, an optional body and,
// for list replies, the "." terminator.
type Response struct {
	Status     int
	Message    string
	Data       string
	Terminated bool
}

// NewResponse is a shorthand for a reply without a body.
func NewResponse(status int, message string) *Response {
	return &Response{Status: status, Message: message}
}

// NewListResponse builds a terminated reply carrying data.
func NewListResponse(status int, message, data string) *Response {
	return &Response{Status: status, Message: message, Data: data, Terminated: true}
}

// String renders the reply in wire format with CRLF line endings.
func (r Response) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(r.Status))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString("\r\n")

	if data := strings.TrimRight(normalizeNewlines(r.Data), "\n"); data != "" {
		for _, line := range strings.Split(data, "\n") {
			// Body lines that begin with "." would read as the terminator.
			if strings.HasPrefix(line, ".") {
				b.WriteByte('.')
			}
			b.WriteString(line)
			b.WriteString("\r\n")
		}
	}
	if r.Terminated {
		b.WriteString(".\r\n")
	}
	return b.String()
}

// WriteTo writes the wire form of r to w.
func (r Response) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, r.String())
	return int64(n), err
}
