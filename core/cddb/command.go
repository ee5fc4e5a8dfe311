package cddb

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitCommand separates a command line into its command word and arguments.
// Commands of the cddb family keep their sub-command: "cddb read rock x"
// yields ("cddb read", "rock x").
func SplitCommand(line string) (cmd, args string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}

	n := 1
	if strings.EqualFold(fields[0], "cddb") && len(fields) > 1 {
		n = 2
	}
	cmd = strings.ToLower(strings.Join(fields[:n], " "))
	args = strings.Join(fields[n:], " ")
	return cmd, args
}

// QueryCommand builds the "cddb query" line for a table of contents.
func QueryCommand(offsets []int, lengthSeconds int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "cddb query %s %d", DiscID(offsets, lengthSeconds), len(offsets))
	for _, offset := range offsets {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(offset))
	}
	fmt.Fprintf(&b, " %d", lengthSeconds)
	return b.String()
}

// DiscIDCommand builds the "discid" line asking a server to compute a disc id.
func DiscIDCommand(offsets []int, lengthSeconds int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "discid %d", len(offsets))
	for _, offset := range offsets {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(offset))
	}
	fmt.Fprintf(&b, " %d", lengthSeconds)
	return b.String()
}

// ParseTOC parses the "n o1 .. oN length" argument list shared by the query
// and discid commands.
func ParseTOC(args []string) (offsets []int, lengthSeconds int, err error) {
	if len(args) < 2 {
		return nil, 0, fmt.Errorf("toc: %w", ErrMalformed)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || len(args) != n+2 {
		return nil, 0, fmt.Errorf("toc: track count %q: %w", args[0], ErrMalformed)
	}

	offsets = make([]int, n)
	for i := 0; i < n; i++ {
		if offsets[i], err = strconv.Atoi(args[i+1]); err != nil {
			return nil, 0, fmt.Errorf("toc: offset %q: %w", args[i+1], ErrMalformed)
		}
	}
	if lengthSeconds, err = strconv.Atoi(args[n+1]); err != nil {
		return nil, 0, fmt.Errorf("toc: length %q: %w", args[n+1], ErrMalformed)
	}
	return offsets, lengthSeconds, nil
}

// PayloadLines splits a response body into trimmed lines, stopping at the
// first empty line or the "." terminator. Bodies are already unstuffed by
// the backend that received them.
func PayloadLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(normalizeNewlines(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "." {
			break
		}
		lines = append(lines, line)
	}
	return lines
}
