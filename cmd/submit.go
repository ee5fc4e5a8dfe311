package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gocddb/core/cddb"
	"gocddb/core/submit"
	"gocddb/logger"
)

var (
	submitCategory string
	submitTest     bool
)

var submitCmd = &cobra.Command{
	Use:   "submit <file>",
	Short: "Submit an xmcd record to the submission server",
	Example: `  gocddb submit --category rock --email me@example.com 2a038403
  gocddb submit --category jazz --test record.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}
		disc := cddb.ParseRecord(string(text), submitCategory)
		if disc.DiscID == "" {
			return fmt.Errorf("%s: record has no DISCID: %w", args[0], cddb.ErrMalformed)
		}

		s := submit.NewSubmitter(cfg.SubmitServer, cfg.Email)
		s.HTTPClient.Timeout = cfg.Timeout
		if err := s.Submit(cmd.Context(), disc, "", submitTest); err != nil {
			return err
		}
		logger.Info("record submitted",
			logger.String("category", disc.Category),
			logger.String("disc_id", disc.DiscID),
			logger.Bool("test", submitTest))
		fmt.Fprintf(cmd.OutOrStdout(), "submitted %s/%s\n", disc.Category, disc.DiscID)
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVarP(&submitCategory, "category", "c", "misc", "category to file the record under")
	submitCmd.Flags().BoolVar(&submitTest, "test", false, "validate only, the server does not store the record")
	rootCmd.AddCommand(submitCmd)
}
