// Package submit posts new or corrected disc records to a CDDB server.
package submit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gocddb/core/cddb"
	"gocddb/logger"
	"gocddb/model"
)

const (
	// DefaultServer receives submissions when Submitter.Server is empty.
	DefaultServer = "freedb.freedb.org"
	// DefaultPath is the submission CGI on the server.
	DefaultPath = "/~cddb/submit.cgi"

	charset = "ISO-8859-1"
	note    = "Sent by gocddb"
)

// ErrMissingEmail is returned when no address was configured or passed.
var ErrMissingEmail = errors.New("submit: email address required")

// Submitter sends records to the submit CGI of a CDDB server.
type Submitter struct {
	// Server is a host name or a base URL such as "http://host:8080".
	Server     string
	Path       string
	Email      string
	HTTPClient *http.Client
}

// NewSubmitter returns a submitter for server using email by default.
func NewSubmitter(server, email string) *Submitter {
	return &Submitter{
		Server:     server,
		Email:      email,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Submitter) endpoint() string {
	server := s.Server
	if server == "" {
		server = DefaultServer
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	path := s.Path
	if path == "" {
		path = DefaultPath
	}
	return strings.TrimRight(server, "/") + path
}

// Submit posts disc. email overrides Submitter.Email; test selects the
// server's test mode, which validates without storing.
func (s *Submitter) Submit(ctx context.Context, disc model.Disc, email string, test bool) error {
	if email == "" {
		email = s.Email
	}
	if email == "" {
		return ErrMissingEmail
	}
	mode := "submit"
	if test {
		mode = "test"
	}

	record := cddb.Serialize(disc)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), strings.NewReader(record))
	if err != nil {
		return fmt.Errorf("failed to create submit request: %w", err)
	}
	req.Header.Set("Category", disc.Category)
	req.Header.Set("Discid", strings.TrimSpace(disc.DiscID))
	req.Header.Set("User-Email", email)
	req.Header.Set("Submit-Mode", mode)
	req.Header.Set("Charset", charset)
	req.Header.Set("X-Cddbd-Note", note)
	req.Header.Set("Content-Type", "text/plain")

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit %s/%s: %w", disc.Category, disc.DiscID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read submit response: %w", err)
	}
	reply := strings.Trim(string(body), " .\n\r\t")
	status := cddb.ParseStatus(reply)
	logger.Info("disc submitted",
		logger.String("category", disc.Category),
		logger.String("discid", disc.DiscID),
		logger.String("mode", mode),
		logger.Int("status", status))

	if resp.StatusCode != http.StatusOK || status != cddb.StatusOK {
		if status == 0 {
			status = resp.StatusCode
		}
		return &cddb.StatusError{Op: "submit", Code: status, Message: reply, Err: cddb.ErrorForStatus(status)}
	}
	return nil
}
