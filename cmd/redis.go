package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gocddb/cache"
	"gocddb/logger"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis response cache",
	Long:  `Connect to the Redis instance used by the server response cache and run a write, read and delete round trip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			return err
		}
		defer func() {
			if err := cache.CloseRedis(); err != nil {
				logger.Warn("failed to close Redis", logger.ErrorField(err))
			}
		}()
		fmt.Fprintln(out, "connected")

		if err := cache.TestRedis(cmd.Context()); err != nil {
			return fmt.Errorf("redis round trip failed: %w", err)
		}
		fmt.Fprintln(out, "round trip ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
