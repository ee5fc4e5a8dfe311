package protocol

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"gocddb/core/cddb"
	"gocddb/logger"
	"gocddb/model"
)

const (
	motdFile  = "motd.txt"
	statFile  = "stat.db"
	sitesFile = "sites.yaml"
)

// errNoEntry is returned by a dumpStore for files that do not exist.
var errNoEntry = errors.New("no such entry")

// dumpStore is a FreeDB dump: one directory per category holding one file per
// disc id, plus optional motd.txt and sites.yaml at the top level.
type dumpStore interface {
	Categories(ctx context.Context) ([]string, error)
	// ReadFile reads a top level file (category == "") or a disc entry.
	ReadFile(ctx context.Context, category, name string) (string, error)
	CountEntries(ctx context.Context, category string) (int, error)
}

// dumpCommands serves the command set shared by dump based backends.
type dumpCommands struct {
	store  dumpStore
	iface  string
	opts   Options
	counts func(ctx context.Context) ([]model.CategoryCount, error)
}

func (d *dumpCommands) table() commandTable {
	t := baseCommands(d.iface)
	t["cddb query"] = d.query
	t["cddb read"] = d.read
	t["cddb lscat"] = d.lscat
	t["motd"] = d.motd
	t["stat"] = d.stat
	t["sites"] = d.sites
	return t
}

func (d *dumpCommands) query(ctx context.Context, args string) (int, string) {
	fields := strings.Fields(args)
	if len(fields) == 0 || !validName(fields[0]) {
		return cddb.StatusSyntaxError, cddb.MsgSyntaxError
	}
	discID := strings.ToLower(fields[0])

	categories, err := d.store.Categories(ctx)
	if err != nil {
		logger.Warn("failed to list categories", logger.String("interface", d.iface), logger.ErrorField(err))
		return cddb.StatusCorrupt, cddb.MsgCorruptDatabase
	}

	var matches []string
	for _, category := range categories {
		record, err := d.store.ReadFile(ctx, category, discID)
		if errors.Is(err, errNoEntry) {
			continue
		}
		if err != nil {
			logger.Warn("failed to read entry",
				logger.String("category", category),
				logger.String("discid", discID),
				logger.ErrorField(err))
			return cddb.StatusCorrupt, cddb.MsgCorruptDatabase
		}
		matches = append(matches, matchLine(category, discID, cddb.ExtractField(record, "DTITLE")))
	}
	return queryReply(matches)
}

func (d *dumpCommands) read(ctx context.Context, args string) (int, string) {
	fields := strings.Fields(args)
	if len(fields) != 2 || !validName(fields[0]) || !validName(fields[1]) {
		return cddb.StatusServerError, "Invalid category or disc id."
	}

	record, err := d.store.ReadFile(ctx, fields[0], strings.ToLower(fields[1]))
	if errors.Is(err, errNoEntry) || (err == nil && strings.TrimSpace(record) == "") {
		return cddb.StatusUnavailable, cddb.MsgNotFound
	}
	if err != nil {
		logger.Warn("failed to read entry", logger.String("args", args), logger.ErrorField(err))
		return cddb.StatusServerError, cddb.MsgInternalError
	}
	return cddb.StatusFollows, strings.TrimSpace(record)
}

func (d *dumpCommands) lscat(ctx context.Context, _ string) (int, string) {
	categories, err := d.store.Categories(ctx)
	if err != nil {
		return cddb.StatusCorrupt, cddb.MsgCorruptDatabase
	}
	return cddb.StatusFollows, strings.Join(categories, "\n")
}

func (d *dumpCommands) motd(ctx context.Context, _ string) (int, string) {
	if !d.opts.UseMotdFile {
		return cddb.StatusUnavailable, cddb.MsgNoMotd
	}
	text, err := d.store.ReadFile(ctx, "", motdFile)
	if err != nil || strings.TrimSpace(text) == "" {
		return cddb.StatusUnavailable, cddb.MsgNoMotd
	}
	return cddb.StatusFollows, strings.TrimSpace(text)
}

func (d *dumpCommands) stat(ctx context.Context, _ string) (int, string) {
	counts, err := d.counts(ctx)
	if err != nil {
		logger.Warn("failed to count entries", logger.String("interface", d.iface), logger.ErrorField(err))
		return cddb.StatusCorrupt, cddb.MsgCorruptDatabase
	}
	return cddb.StatusFollows, statText(d.iface, counts)
}

func (d *dumpCommands) sites(ctx context.Context, _ string) (int, string) {
	text, err := d.store.ReadFile(ctx, "", sitesFile)
	if err != nil {
		return cddb.StatusUnavailable, "No site information available."
	}

	var sites []model.Site
	if err := yaml.Unmarshal([]byte(text), &sites); err != nil {
		logger.Warn("failed to parse sites file", logger.ErrorField(err))
		return cddb.StatusServerError, cddb.MsgInternalError
	}

	lines := make([]string, 0, len(sites))
	for _, s := range sites {
		lines = append(lines, fmt.Sprintf("%s %s %d %s %s %s %s",
			s.Site, s.Protocol, s.Port, s.Address, s.Latitude, s.Longitude, s.Description))
	}
	return cddb.StatusFollows, strings.Join(lines, "\n")
}

// countAll counts the entries of every category.
func countAll(ctx context.Context, store dumpStore) ([]model.CategoryCount, error) {
	categories, err := store.Categories(ctx)
	if err != nil {
		return nil, err
	}
	counts := make([]model.CategoryCount, 0, len(categories))
	for _, category := range categories {
		n, err := store.CountEntries(ctx, category)
		if err != nil {
			return nil, err
		}
		counts = append(counts, model.CategoryCount{Category: category, Count: n})
	}
	return counts, nil
}
