package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"gocddb/core/client"
)

// infoCommand wraps a client call that prints to stdout.
func infoCommand(use, short string, run func(cmd *cobra.Command, c *client.Client) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			defer c.Disconnect()
			return run(cmd, c)
		},
	}
}

var lscatCmd = infoCommand("lscat", "List the database categories", func(cmd *cobra.Command, c *client.Client) error {
	categories, err := c.Categories(cmd.Context())
	if err != nil {
		return err
	}
	for _, category := range categories {
		fmt.Fprintln(cmd.OutOrStdout(), category)
	}
	return nil
})

var statCmd = infoCommand("stat", "Show server statistics", func(cmd *cobra.Command, c *client.Client) error {
	stats, err := c.Statistics(cmd.Context())
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", k+":", stats[k])
	}
	return nil
})

var sitesCmd = infoCommand("sites", "List mirror sites", func(cmd *cobra.Command, c *client.Client) error {
	sites, err := c.Sites(cmd.Context())
	if err != nil {
		return err
	}
	for _, s := range sites {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d %s %s %s %s\n",
			s.Site, s.Protocol, s.Port, s.Address, s.Latitude, s.Longitude, s.Description)
	}
	return nil
})

var motdCmd = infoCommand("motd", "Show the message of the day", func(cmd *cobra.Command, c *client.Client) error {
	motd, err := c.Motd(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), motd)
	return nil
})

var verCmd = infoCommand("ver", "Show the server version", func(cmd *cobra.Command, c *client.Client) error {
	version, err := c.Version(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), version)
	return nil
})

var serverHelpCmd = &cobra.Command{
	Use:   "server-help [command [subcommand]]",
	Short: "Show the server's help text",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cfg)
		if err != nil {
			return err
		}
		defer c.Disconnect()

		args = append(args, "", "")
		text, err := c.Help(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lscatCmd, statCmd, sitesCmd, motdCmd, verCmd, serverHelpCmd)
}
