package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/himanishpuri/RadioDNA/pkg/logger"
	"github.com/himanishpuri/RadioDNA/pkg/models"
)

type trackReader interface {
	GetTrack(ctx context.Context, id uuid.UUID) (models.Track, error)
	GetMatches(ctx context.Context, id uuid.UUID) ([]models.MatchRecord, error)
	ListTracks(ctx context.Context, limit int) ([]models.Track, error)
	CountTracks(ctx context.Context) (int64, error)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued tracks, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := openCatalog(loadConfig(viper.GetViper()))
		if err != nil {
			return err
		}
		defer db.Close()

		return printList(cmd.Context(), cmd.OutOrStdout(), db, limit)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <track-id>",
	Short: "Show a track and its sighting history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid track id %q: %w", args[0], err)
		}

		db, err := openCatalog(loadConfig(viper.GetViper()))
		if err != nil {
			return err
		}
		defer db.Close()

		return printTrack(cmd.Context(), cmd.OutOrStdout(), db, id)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <track-id>",
	Short: "Delete a track together with its audio and sightings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid track id %q: %w", args[0], err)
		}

		db, err := openCatalog(loadConfig(viper.GetViper()))
		if err != nil {
			return err
		}
		defer db.Close()

		t, err := db.GetTrack(cmd.Context(), id)
		if err != nil {
			return describe(id, err)
		}
		if err := db.DeleteTrack(cmd.Context(), id); err != nil {
			return describe(id, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s: '%s' by %s\n", id, t.Title, t.Artist)
		logger.Infof("Deleted track %s ('%s' by '%s')", id, t.Title, t.Artist)
		return nil
	},
}

func init() {
	listCmd.Flags().Int("limit", 50, "maximum number of tracks to list (0 for all)")
	rootCmd.AddCommand(listCmd, showCmd, deleteCmd)
}

func describe(id uuid.UUID, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("track %s not found", id)
	}
	return err
}

func printList(ctx context.Context, w io.Writer, db trackReader, limit int) error {
	tracks, err := db.ListTracks(ctx, limit)
	if err != nil {
		return err
	}
	total, err := db.CountTracks(ctx)
	if err != nil {
		return err
	}

	if len(tracks) == 0 {
		fmt.Fprintln(w, "No tracks in catalog")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tADDED\tKIND\tARTIST\tTITLE")
	for _, t := range tracks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, humanize.Time(t.AddedAt), t.Kind, t.Artist, t.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d of %s track(s)\n", len(tracks), humanize.Comma(total))
	return nil
}

func printTrack(ctx context.Context, w io.Writer, db trackReader, id uuid.UUID) error {
	t, err := db.GetTrack(ctx, id)
	if err != nil {
		return describe(id, err)
	}
	matches, err := db.GetMatches(ctx, id)
	if err != nil {
		return describe(id, err)
	}

	fmt.Fprintf(w, "ID:       %s\n", t.ID)
	fmt.Fprintf(w, "Artist:   %s\n", t.Artist)
	fmt.Fprintf(w, "Title:    %s\n", t.Title)
	fmt.Fprintf(w, "Kind:     %s\n", t.Kind)
	fmt.Fprintf(w, "Added:    %s (%s)\n", t.AddedAt.Format("2006-01-02 15:04:05 MST"), humanize.Time(t.AddedAt))
	fmt.Fprintf(w, "Audio:    %s, %s\n", t.ContentType, humanize.Bytes(uint64(len(t.Bytes))))
	fmt.Fprintf(w, "Matches:  %d\n", len(matches))
	for _, m := range matches {
		fmt.Fprintf(w, "  %s  score %d\n", m.MatchedAt.Format("2006-01-02 15:04:05"), m.Score)
	}
	return nil
}
