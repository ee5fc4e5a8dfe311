package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"gocddb/core/cddb"
	"gocddb/core/protocol"
	"gocddb/db"
	"gocddb/logger"
	"gocddb/repository"
)

var importDSN string

var importCmd = &cobra.Command{
	Use:   "import <dump-dir>",
	Short: "Load an unpacked FreeDB dump into the SQL catalog",
	Long: `Parse every record of a FreeDB dump directory and store it in the SQL
catalog served by the sql backend. Records already present are skipped.
Without --dsn the DB_* settings select a MySQL database.`,
	Example: `  gocddb import /srv/freedb
  gocddb import --dsn sql.sqlite:///var/lib/freedb.db /srv/freedb`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := openCatalog()
		if err != nil {
			return err
		}
		defer db.Close(gdb)

		if err := db.Migrate(gdb); err != nil {
			return err
		}
		stats, err := importDump(cmd.Context(), repository.NewGormDiscRepository(gdb), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d records, skipped %d\n", stats.imported, stats.skipped)
		return nil
	},
}

func openCatalog() (*gorm.DB, error) {
	if importDSN == "" {
		if err := db.ConnectGormDB(cfg); err != nil {
			return nil, err
		}
		return db.GormDB, nil
	}
	d, err := protocol.ParseDSN(importDSN)
	if err != nil {
		return nil, err
	}
	if d.Scheme != protocol.SchemeSQL {
		return nil, fmt.Errorf("%w: import needs an sql dsn", protocol.ErrUnknownScheme)
	}
	dialector, err := d.Dialector()
	if err != nil {
		return nil, err
	}
	return db.Open(dialector)
}

type importStats struct {
	imported int
	skipped  int
}

// importDump stores every record below dir that repo does not hold yet.
func importDump(ctx context.Context, repo repository.DiscRepository, dir string) (importStats, error) {
	var stats importStats
	err := walkDump(ctx, dir, func(e dumpEntry) error {
		if e.Category == "" {
			return nil
		}
		text, err := os.ReadFile(e.Path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", e.Path, err)
		}
		disc := cddb.ParseRecord(string(text), e.Category)
		if disc.DiscID == "" {
			disc.DiscID = e.Name
		}

		exists, err := repo.Exists(ctx, e.Category, disc.DiscID)
		if err != nil {
			return err
		}
		if exists {
			stats.skipped++
			return nil
		}
		if _, err := repo.Save(ctx, disc); err != nil {
			return err
		}
		stats.imported++
		logger.Debug("record imported", logger.String("category", e.Category), logger.String("disc_id", disc.DiscID))
		return nil
	})
	return stats, err
}

func init() {
	importCmd.Flags().StringVar(&importDSN, "dsn", "", "sql backend DSN of the catalog")
	rootCmd.AddCommand(importCmd)
}
