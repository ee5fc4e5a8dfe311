package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"gocddb/storage"
)

var (
	minioBucket string
	minioPrefix string
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect or remove a dump mirrored into MinIO",
	Long:  `Show per-category object counts of a mirrored dump, or delete every object below a prefix.`,
	Example: `  # per-category statistics
  gocddb minio -p 2024/

  # remove a mirrored dump
  gocddb minio -d -p 2024/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mc, err := storage.NewMinioClientFromConfig(cfg, minioBucket)
		if err != nil {
			return err
		}
		if err := mc.Ping(cmd.Context()); err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if minioDelete {
			if minioPrefix == "" {
				return fmt.Errorf("refusing to delete the whole bucket %s, pass --prefix", mc.Bucket())
			}
			n, err := mc.DeleteDirectory(cmd.Context(), minioPrefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "deleted %d objects below %s\n", n, minioPrefix)
			return nil
		}

		stats, err := mc.GetDumpStats(cmd.Context(), minioPrefix)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "bucket:  %s\n", mc.Bucket())
		fmt.Fprintf(out, "objects: %d\n", stats.Objects)
		fmt.Fprintf(out, "size:    %s\n", storage.FormatSize(stats.TotalSize))
		categories := make([]string, 0, len(stats.ByPrefix))
		for c := range stats.ByPrefix {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Fprintf(out, "  %-12s %d\n", c, stats.ByPrefix[c])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVar(&minioBucket, "bucket", "", "bucket to inspect (env MINIO_BUCKET)")
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "dump prefix inside the bucket")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "delete every object below the prefix")
}
