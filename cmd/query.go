package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gocddb/core/cddb"
	"gocddb/model"
)

var (
	queryDevice  string
	queryDetails bool
	discidRemote bool
)

var queryCmd = &cobra.Command{
	Use:   "query [ntracks offset... seconds]",
	Short: "Look up a disc by its table of contents",
	Long: `Look up a disc on the configured server. Without arguments the table of
contents is read from the CD in the reader device.`,
	Example: `  gocddb query
  gocddb query 3 150 21052 43715 774
  gocddb -s filesystem:///srv/freedb query --details 1 150 62`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cfg)
		if err != nil {
			return err
		}
		defer c.Disconnect()
		ctx := cmd.Context()

		var discs []model.Disc
		if len(args) == 0 {
			discs, err = c.SearchCD(ctx, queryDevice)
		} else {
			offsets, length, perr := cddb.ParseTOC(args)
			if perr != nil {
				return perr
			}
			discs, err = c.Search(ctx, offsets, length)
		}
		if err != nil {
			return err
		}
		if len(discs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), cddb.MsgNoMatch)
			return nil
		}

		for _, d := range discs {
			if !queryDetails {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s / %s\n", d.Category, d.DiscID, d.Artist, d.Title)
				continue
			}
			full, err := c.Details(ctx, d)
			if err != nil {
				return err
			}
			printDisc(cmd, full)
		}
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:     "read <category> <discid>",
	Short:   "Fetch a full database entry",
	Example: `  gocddb read rock 2a038403`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cfg)
		if err != nil {
			return err
		}
		defer c.Disconnect()

		d, err := c.Read(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		printDisc(cmd, d)
		return nil
	},
}

var discidCmd = &cobra.Command{
	Use:   "discid [ntracks offset... seconds]",
	Short: "Compute a disc id",
	Long: `Compute the disc id of a table of contents, or of the CD in the reader
device when no arguments are given. --remote asks the server instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cfg)
		if err != nil {
			return err
		}
		defer c.Disconnect()
		ctx := cmd.Context()

		var offsets []int
		var length int
		if len(args) == 0 {
			if offsets, err = c.TrackOffsetsForCD(ctx, queryDevice); err != nil {
				return err
			}
			if length, err = c.LengthForCD(ctx, queryDevice); err != nil {
				return err
			}
		} else if offsets, length, err = cddb.ParseTOC(args); err != nil {
			return err
		}

		id := cddb.DiscID(offsets, length)
		if discidRemote {
			if id, err = c.RemoteDiscID(ctx, offsets, length); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

// printDisc writes d the way xmcd style tools show an entry.
func printDisc(cmd *cobra.Command, d model.Disc) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s / %s\n", d.Artist, d.Title)
	fmt.Fprintf(out, "  disc id:  %s (%s)\n", d.DiscID, d.Category)
	if d.Genre != "" {
		fmt.Fprintf(out, "  genre:    %s\n", d.Genre)
	}
	if d.Year > 0 {
		fmt.Fprintf(out, "  year:     %d\n", d.Year)
	}
	fmt.Fprintf(out, "  length:   %s\n", d.FormattedLength())
	for i, t := range d.Tracks {
		title := t.Title
		if t.Artist != "" && t.Artist != d.Artist {
			title = t.Artist + " / " + title
		}
		fmt.Fprintf(out, "  %2d. %-50s %s\n", i+1, title, t.FormattedLength())
	}
	if extra := strings.TrimSpace(d.ExtraData); extra != "" {
		fmt.Fprintf(out, "\n%s\n", extra)
	}
}

func init() {
	queryCmd.Flags().StringVarP(&queryDevice, "device", "d", "", "CD device, overrides the reader DSN path")
	queryCmd.Flags().BoolVar(&queryDetails, "details", false, "read every match in full")
	discidCmd.Flags().StringVarP(&queryDevice, "device", "d", "", "CD device, overrides the reader DSN path")
	discidCmd.Flags().BoolVar(&discidRemote, "remote", false, "let the server compute the id")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(discidCmd)
}
