package main

import (
	"fmt"
	"strconv"

	"go-lyrics/pkg/lrc"
	"go-lyrics/pkg/ttplayer"

	"github.com/spf13/cobra"
)

var parseAt int64

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "parse an lrc file and print its timed lines",
	Long: `parse an lrc file (any charset) and print the offset and timed lines.
with --at, print only the line active at that playback position.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx := lrc.NewIndex(nil)
		if status := idx.ParseFile(args[0]); status != lrc.StatusOK {
			return fmt.Errorf("%s: %s", args[0], status)
		}

		out := cmd.OutOrStdout()
		if cmd.Flags().Changed("at") {
			i := idx.ActiveIndex(parseAt)
			fmt.Fprintf(out, "%d\t%s\t%s\n", i, formatMs(idx.Timestamp(i)), idx.Text(i))
			return nil
		}

		fmt.Fprintf(out, "offset: %dms, lines: %d\n", idx.Offset(), idx.Len())
		for i, line := range idx.Lines() {
			fmt.Fprintf(out, "%3d  %s  %s\n", i, formatMs(line.TimestampMs), line.Text)
		}
		return nil
	},
}

var codeCmd = &cobra.Command{
	Use:   "code <artist> <title> <id>",
	Short: "print the ttplayer verification code for a search result",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[2], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[2], err)
		}
		code := ttplayer.VerificationCode(args[0], args[1], int32(id))
		if code == "" {
			return fmt.Errorf("artist and title must be valid UTF-8")
		}
		fmt.Fprintln(cmd.OutOrStdout(), code)
		return nil
	},
}

func init() {
	parseCmd.Flags().Int64Var(&parseAt, "at", 0, "playback position in milliseconds")
}

func formatMs(ms int64) string {
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}
