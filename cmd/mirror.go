package cmd

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"

	"gocddb/logger"
	"gocddb/storage"
)

var (
	mirrorBucket string
	mirrorPrefix string
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror <dump-dir>",
	Short: "Copy an unpacked FreeDB dump into a MinIO bucket",
	Long: `Upload every file of a FreeDB dump directory as <prefix>/<category>/<discid>
so the minio backend (minio://<bucket>/<prefix>) can serve it.`,
	Example: `  gocddb mirror /srv/freedb
  gocddb mirror --bucket freedb --prefix 2024 /srv/freedb`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mc, err := storage.NewMinioClientFromConfig(cfg, mirrorBucket)
		if err != nil {
			return err
		}
		if err := mc.EnsureBucket(cmd.Context()); err != nil {
			return err
		}
		n, err := mirrorDump(cmd.Context(), mc, args[0], mirrorPrefix)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d objects to %s\n", n, mc.Bucket())
		return nil
	},
}

// textPutter stores text objects.
type textPutter interface {
	PutText(ctx context.Context, key, text string) error
}

// mirrorDump uploads dir below prefix and returns the number of objects.
func mirrorDump(ctx context.Context, store textPutter, dir, prefix string) (int, error) {
	count := 0
	err := walkDump(ctx, dir, func(e dumpEntry) error {
		text, err := os.ReadFile(e.Path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", e.Path, err)
		}
		key := path.Join(prefix, e.Category, e.Name)
		if err := store.PutText(ctx, key, string(text)); err != nil {
			return err
		}
		count++
		logger.Debug("object uploaded", logger.String("key", key))
		return nil
	})
	return count, err
}

func init() {
	mirrorCmd.Flags().StringVar(&mirrorBucket, "bucket", "", "target bucket (env MINIO_BUCKET)")
	mirrorCmd.Flags().StringVarP(&mirrorPrefix, "prefix", "p", "", "key prefix inside the bucket")
	rootCmd.AddCommand(mirrorCmd)
}
