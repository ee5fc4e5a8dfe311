package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gocddb/config"
	"gocddb/logger"
)

var (
	cfg *config.Config

	flagServer   string
	flagReader   string
	flagPersist  bool
	flagSudo     bool
	flagEmail    string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "gocddb",
	Short: "gocddb queries, serves and maintains CDDB/FreeDB databases.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		applyFlags(cmd)
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			Console:    cfg.LogConsole,
			OutputPath: cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
		logger.SetLevel(logger.LogLevel(cfg.LogLevel))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd, args)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&flagServer, "server", "s", "", "backend DSN, e.g. cddbp://freedb.freedb.org:8880 (env CDDB_SERVER)")
	flags.StringVar(&flagReader, "reader", "", "CD reader DSN, e.g. cddiscid:///dev/cdrom (env CDDB_READER)")
	flags.BoolVar(&flagPersist, "persist", false, "keep the backend connection open between commands")
	flags.BoolVar(&flagSudo, "sudo", false, "run the CD reader through sudo")
	flags.StringVar(&flagEmail, "email", "", "address used for submissions (env CDDB_EMAIL)")
	flags.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server = flagServer
	}
	if flags.Changed("reader") {
		cfg.Reader = flagReader
	}
	if flags.Changed("persist") {
		cfg.Persist = flagPersist
	}
	if flags.Changed("sudo") {
		cfg.Sudo = flagSudo
	}
	if flags.Changed("email") {
		cfg.Email = flagEmail
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
