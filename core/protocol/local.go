package protocol

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gocddb/core/cddb"
	"gocddb/model"
)

// handlerFunc serves one command of a local backend and returns the reply
// status and payload.
type handlerFunc func(ctx context.Context, args string) (int, string)

type commandTable map[string]handlerFunc

func (e *exchange) run(ctx context.Context, table commandTable, command string) {
	cmd, args := cddb.SplitCommand(command)
	if cmd == "" {
		e.set(cddb.StatusEmpty, cddb.MsgEmptyCommand)
		return
	}
	h, ok := table[cmd]
	if !ok {
		e.set(cddb.StatusUnrecognized, cddb.MsgUnrecognized)
		return
	}
	e.set(h(ctx, args))
}

// baseCommands are served identically by every local backend.
func baseCommands(iface string) commandTable {
	return commandTable{
		"cddb hello": func(context.Context, string) (int, string) {
			return cddb.StatusOK, "Hello and welcome, running " + versionText(iface) + "."
		},
		"proto": func(_ context.Context, args string) (int, string) {
			if args == "" {
				return cddb.StatusOK, fmt.Sprintf("CDDB protocol level: current %d, supported %d", cddb.ProtoLevel, cddb.ProtoLevel)
			}
			level, err := strconv.Atoi(strings.TrimSpace(args))
			if err != nil || level < 1 || level > cddb.ProtoLevel {
				return cddb.StatusIllegal, "Illegal protocol level."
			}
			return cddb.StatusOKSet, fmt.Sprintf("OK, protocol version now: %d", level)
		},
		"quit": func(context.Context, string) (int, string) {
			return cddb.StatusGoodbye, "Closing connection. Goodbye."
		},
		"discid": func(_ context.Context, args string) (int, string) {
			offsets, length, err := cddb.ParseTOC(strings.Fields(args))
			if err != nil {
				return cddb.StatusSyntaxError, cddb.MsgSyntaxError
			}
			return cddb.StatusOK, "Disc ID is " + cddb.DiscID(offsets, length)
		},
		"ver": func(context.Context, string) (int, string) {
			return cddb.StatusOK, versionText(iface)
		},
	}
}

func versionText(iface string) string {
	return fmt.Sprintf("%s/%s v%s", cddb.ClientName, iface, cddb.Version)
}

// statText renders the stat reply body.
func statText(iface string, counts []model.CategoryCount) string {
	total := 0
	for _, c := range counts {
		total += c.Count
	}

	var b strings.Builder
	b.WriteString("Server status:\n")
	fmt.Fprintf(&b, "    current proto: %d\n", cddb.ProtoLevel)
	fmt.Fprintf(&b, "    max proto: %d\n", cddb.ProtoLevel)
	fmt.Fprintf(&b, "    interface: %s\n", iface)
	b.WriteString("    gets: no\n")
	b.WriteString("    puts: no\n")
	b.WriteString("    updates: no\n")
	b.WriteString("    posting: no\n")
	b.WriteString("    validation: accepted\n")
	b.WriteString("    quotes: no\n")
	b.WriteString("    strip ext: no\n")
	b.WriteString("    secure: yes\n")
	b.WriteString("    current users: 1\n")
	b.WriteString("    max users: 100\n")
	fmt.Fprintf(&b, "Database entries: %d\n", total)
	b.WriteString("Database entries by category:\n")
	for _, c := range counts {
		fmt.Fprintf(&b, "    %s: %d\n", c.Category, c.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

// validName rejects path components that could escape a category directory.
func validName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}

// matchLine formats one query match as "category discid artist / title".
func matchLine(category, discID, dtitle string) string {
	return strings.TrimSpace(category + " " + discID + " " + dtitle)
}

// queryReply maps the number of matches to the query status codes.
func queryReply(matches []string) (int, string) {
	switch len(matches) {
	case 0:
		return cddb.StatusNoMatch, ""
	case 1:
		return cddb.StatusOK, matches[0]
	default:
		return cddb.StatusInexact, strings.Join(matches, "\n")
	}
}
