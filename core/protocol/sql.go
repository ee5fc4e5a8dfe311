package protocol

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"gocddb/core/cddb"
	"gocddb/db"
	"gocddb/logger"
	"gocddb/repository"
)

// SQL serves commands from a FreeDB catalog stored in a relational database.
type SQL struct {
	exchange
	dialector gorm.Dialector
	opts      Options
	gdb       *gorm.DB
	repo      repository.DiscRepository
	commands  commandTable
}

// NewSQL returns a backend that opens dialector on Connect.
func NewSQL(dialector gorm.Dialector, opts Options) *SQL {
	s := &SQL{dialector: dialector, opts: opts.withDefaults()}
	s.commands = s.table()
	return s
}

// NewSQLWithRepository returns an already connected backend over repo.
func NewSQLWithRepository(repo repository.DiscRepository, opts Options) *SQL {
	s := NewSQL(nil, opts)
	s.repo = repo
	return s
}

func (s *SQL) table() commandTable {
	t := baseCommands("SQL")
	t["cddb query"] = s.query
	t["cddb read"] = s.read
	t["cddb lscat"] = s.lscat
	t["stat"] = s.stat
	t["motd"] = func(context.Context, string) (int, string) {
		return cddb.StatusUnavailable, cddb.MsgNoMotd
	}
	return t
}

// Connect opens the database.
func (s *SQL) Connect(ctx context.Context) error {
	if s.repo != nil {
		return nil
	}
	if s.dialector == nil {
		return ErrNotConnected
	}
	gdb, err := db.Open(s.dialector)
	if err != nil {
		return err
	}
	s.gdb = gdb
	s.repo = repository.NewGormDiscRepository(gdb)
	return nil
}

// Disconnect closes a database opened by Connect.
func (s *SQL) Disconnect() error {
	if s.gdb == nil {
		return nil
	}
	err := db.Close(s.gdb)
	s.gdb = nil
	s.repo = nil
	return err
}

// Connected reports whether a repository is available.
func (s *SQL) Connected() bool {
	return s.repo != nil
}

// Remote is always false.
func (s *SQL) Remote() bool {
	return false
}

// Send executes command against the catalog.
func (s *SQL) Send(ctx context.Context, command string) error {
	if err := s.Connect(ctx); err != nil {
		return fmt.Errorf("sql backend: %w", err)
	}
	s.run(ctx, s.commands, command)
	logger.Debug("sql exchange", logger.String("command", command), logger.Int("status", s.status))
	return nil
}

func (s *SQL) query(ctx context.Context, args string) (int, string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return cddb.StatusSyntaxError, cddb.MsgSyntaxError
	}

	hits, err := s.repo.FindByDiscID(ctx, strings.ToLower(fields[0]))
	if err != nil {
		logger.Warn("sql query failed", logger.ErrorField(err))
		return cddb.StatusCorrupt, cddb.MsgCorruptDatabase
	}
	matches := make([]string, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, matchLine(h.Category, h.DiscID, h.DTitle()))
	}
	return queryReply(matches)
}

func (s *SQL) read(ctx context.Context, args string) (int, string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return cddb.StatusServerError, "Invalid category or disc id."
	}

	disc, err := s.repo.FindDisc(ctx, fields[0], strings.ToLower(fields[1]))
	if err != nil {
		logger.Warn("sql read failed", logger.ErrorField(err))
		return cddb.StatusServerError, cddb.MsgInternalError
	}
	if disc == nil {
		return cddb.StatusUnavailable, cddb.MsgNotFound
	}
	return cddb.StatusFollows, cddb.Serialize(*disc)
}

func (s *SQL) lscat(ctx context.Context, _ string) (int, string) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		logger.Warn("sql lscat failed", logger.ErrorField(err))
		return cddb.StatusCorrupt, cddb.MsgCorruptDatabase
	}
	return cddb.StatusFollows, strings.Join(categories, "\n")
}

func (s *SQL) stat(ctx context.Context, _ string) (int, string) {
	counts, err := s.repo.CountByCategory(ctx)
	if err != nil {
		logger.Warn("sql stat failed", logger.ErrorField(err))
		return cddb.StatusCorrupt, cddb.MsgCorruptDatabase
	}
	return cddb.StatusFollows, statText("SQL", counts)
}
