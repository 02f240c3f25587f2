package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex"
)

const (
	indexTimeout = 5 * time.Minute
	matchTimeout = 2 * time.Minute
)

func newIndexCommand(c *cliContext) *cobra.Command {
	var title, artist string

	cmd := &cobra.Command{
		Use:   "index <file|dir>",
		Short: "Add an audio file or every audio file in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}

			svc, err := c.openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			out := cmd.OutOrStdout()
			if info.IsDir() {
				bar := newFolderProgress(cmd.ErrOrStderr())
				report, err := svc.IndexFolder(cmd.Context(), args[0], bar.update)
				bar.wait()
				if report != nil {
					fmt.Fprintf(out, "✅ Indexed %d, skipped %d, failed %d\n",
						len(report.Indexed), len(report.Skipped), len(report.Failed))
					for path, reason := range report.Failed {
						fmt.Fprintf(out, "   ❌ %s: %s\n", path, reason)
					}
				}
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), indexTimeout)
			defer cancel()

			track, err := svc.AddTrack(ctx, args[0], title, artist)
			if errors.Is(err, acousticindex.ErrTrackExists) {
				fmt.Fprintf(out, "ℹ️  Already indexed as track ID %d (%s)\n", track.ID, track.Title)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to add track: %w", err)
			}

			fmt.Fprintf(out, "✅ Successfully added track!\n")
			fmt.Fprintf(out, "   ID:          %d\n", track.ID)
			fmt.Fprintf(out, "   Title:       %s\n", track.Title)
			fmt.Fprintf(out, "   Artist:      %s\n", track.Artist)
			fmt.Fprintf(out, "   Duration:    %s\n", formatDuration(track.DurationMs))
			fmt.Fprintf(out, "   Hash points: %d\n", track.HashPoints)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Track title (default: file tags or name)")
	cmd.Flags().StringVar(&artist, "artist", "", "Track artist (default: file tags)")
	return cmd
}

func newMatchCommand(c *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match <file>",
		Short: "Identify an audio clip against the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), matchTimeout)
			defer cancel()

			report, err := svc.Match(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to match: %w", err)
			}

			out := cmd.OutOrStdout()
			if report.Best == nil {
				fmt.Fprintln(out, "❌ No matches found")
				return nil
			}

			best := report.Best
			fmt.Fprintf(out, "🎵 %s by %s (ID %d) at %s, rate %.2f\n\n",
				best.Title, best.Artist, best.TrackID, formatSeconds(best.StartSeconds), best.MatchRate)
			fmt.Fprintln(out, matchTable(report.Candidates))
			return nil
		},
	}
}

func matchTable(candidates []acousticindex.MatchResult) string {
	rows := make([][]string, 0, len(candidates))
	for i, m := range candidates {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(m.TrackID),
			m.Title,
			m.Artist,
			formatSeconds(m.StartSeconds),
			fmt.Sprintf("%d/%d", m.Votes, m.TotalVotes),
			fmt.Sprintf("%.3f", m.MatchRate),
		})
	}
	return renderTable(
		[]string{"#", "ID", "Title", "Artist", "Start", "Votes", "Rate"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
}

func newListCommand(c *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			tracks, err := svc.ListTracks()
			if err != nil {
				return fmt.Errorf("failed to list tracks: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(tracks) == 0 {
				fmt.Fprintln(out, "📭 No tracks in database")
				return nil
			}
			fmt.Fprintf(out, "📚 Total tracks: %d\n", len(tracks))
			fmt.Fprintln(out, trackTable(tracks))
			return nil
		},
	}
}

func trackTable(tracks []acousticindex.Track) string {
	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, []string{
			strconv.Itoa(t.ID),
			t.Title,
			t.Artist,
			formatDuration(t.DurationMs),
			strconv.Itoa(t.HashPoints),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Artist", "Duration", "Hash points"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func newDeleteCommand(c *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a track from the catalog and the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid track ID %q", args[0])
			}

			svc, err := c.openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.DeleteTrack(id); err != nil {
				return fmt.Errorf("failed to delete track %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted track ID %d\n", id)
			return nil
		},
	}
}

func newStatsCommand(c *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog and index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.openService(cmd)
			if err != nil {
				return err
			}
			defer svc.Close()

			st, err := svc.Stats()
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Tracks", strconv.Itoa(st.Tracks)},
				{"Indexed tracks", strconv.Itoa(st.Indexed)},
				{"Probes", strconv.Itoa(st.Probes)},
				{"Data points", strconv.Itoa(st.DataPoints)},
				{"Frame size", strconv.Itoa(st.FrameSize)},
				{"Time offset", strconv.Itoa(st.Fingerprint.TimeOffset)},
				{"Freq offset", strconv.Itoa(st.Fingerprint.FreqOffset)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Stat", "Value"}, rows,
				[]columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a configuration file with default values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if force {
				flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}
			f, err := os.OpenFile(args[0], flag, 0o644)
			if err != nil {
				return err
			}
			if err := acousticindex.WriteConfig(f, acousticindex.DefaultFileConfig()); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "📝 Wrote %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func formatDuration(ms int) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.2fs", s)
}
