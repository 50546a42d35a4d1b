package main

import (
	"bytes"
	"fmt"

	"go-lyrics/pkg/fileutil"
	"go-lyrics/pkg/ttplayer"

	"github.com/spf13/cobra"
)

var (
	downloadPos int
	downloadOut string
)

func newTTPlayerClient() *ttplayer.Client {
	return ttplayer.NewClient(
		ttplayer.WithBaseURL(cfg.Lyrics.TTPlayerURL),
		ttplayer.WithTimeout(cfg.Lyrics.Timeout),
		ttplayer.WithRetries(cfg.Lyrics.Retries),
	)
}

var searchCmd = &cobra.Command{
	Use:   "search <artist> <title>",
	Short: "search the ttplayer lyrics server",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newTTPlayerClient().Search(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res.Len() == 0 {
			fmt.Fprintf(out, "no lyrics found for: %s - %s\n", args[0], args[1])
			return nil
		}
		for i, c := range res.Candidates {
			fmt.Fprintf(out, "%2d  [id %d]  %s\n", i, c.ID, c.DisplayName)
		}
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <artist> <title>",
	Short: "download lyrics from the ttplayer lyrics server",
	Long: `search the ttplayer lyrics server and download the candidate at --pos.
lyrics are written to --out, or to stdout when no file is given.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newTTPlayerClient()
		res, err := client.Search(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if res.Len() == 0 {
			return fmt.Errorf("no lyrics found for: %s - %s", args[0], args[1])
		}

		progress := func(downloaded, total int64) {
			if total > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "\rdownloading: %d/%d bytes", downloaded, total)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "\rdownloading: %d bytes", downloaded)
			}
		}

		var buf bytes.Buffer
		n, err := client.Download(cmd.Context(), res, downloadPos, &buf, progress)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		if downloadOut == "" {
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if err := fileutil.WriteFileAtomic(downloadOut, buf.Bytes(), 0644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved %d bytes (%s) to %s\n", n, res.Candidates[downloadPos].DisplayName, downloadOut)
		return nil
	},
}

func init() {
	downloadCmd.Flags().IntVar(&downloadPos, "pos", 0, "position of the search result to download")
	downloadCmd.Flags().StringVarP(&downloadOut, "out", "o", "", "output file (default stdout)")
}
