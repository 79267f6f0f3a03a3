package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bollywoodle/internal/config"
	"bollywoodle/internal/database"
	"bollywoodle/internal/models"
	"bollywoodle/internal/repository"
	"bollywoodle/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Manage the Bollywoodle song catalog",
		Long:          "Manage the song catalog. The database is chosen by DB_TYPE, DB_PATH and DB_URL.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newImportCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newSetDailyCmd())
	root.AddCommand(newRemoveCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newGuessesCmd())
	return root
}

// openCatalog connects to the configured database and brings its schema up to date
func openCatalog() (*service.CatalogService, func(), error) {
	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	svc := service.NewCatalogService(repository.NewSongRepository(db), repository.NewGuessRepository(db))
	return svc, func() { db.Close() }, nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import songs from a YAML or JSON catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := openCatalog()
			if err != nil {
				return err
			}
			defer closeDB()

			result, err := svc.ImportFile(context.Background(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d songs, skipped %d existing\n", result.Created, result.Skipped)
			if result.Daily != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "daily song: %s - %s\n", result.Daily.Title, result.Daily.Artist)
			}
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog to a YAML or JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				output = fmt.Sprintf("catalog_%s.yaml", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			svc, closeDB, err := openCatalog()
			if err != nil {
				return err
			}
			defer closeDB()

			n, err := svc.ExportFile(context.Background(), output)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d songs to %s\n", n, output)
			return nil
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "output file, .json or .yaml (default catalog_YYYYMMDD_HHMMSS.yaml)")
	return export
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every song",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeDB, err := openCatalog()
			if err != nil {
				return err
			}
			defer closeDB()

			songs, err := svc.ListSongs(context.Background())
			if err != nil {
				return err
			}
			if len(songs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no songs")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tTITLE\tARTIST\tTRACK\tDAILY")
			for _, s := range songs {
				daily := ""
				if s.IsDailySong {
					daily = "*"
				}
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.Title, s.Artist, s.TrackID, daily)
			}
			return tw.Flush()
		},
	}
}

func newAddCmd() *cobra.Command {
	var song models.Song
	add := &cobra.Command{
		Use:   "add --title <title> --artist <artist> --track <id>",
		Short: "Add a single song",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeDB, err := openCatalog()
			if err != nil {
				return err
			}
			defer closeDB()

			created, err := svc.AddSong(context.Background(), song)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %d: %s - %s\n", created.ID, created.Title, created.Artist)
			return nil
		},
	}
	add.Flags().StringVar(&song.Title, "title", "", "song title")
	add.Flags().StringVar(&song.Artist, "artist", "", "artist")
	add.Flags().StringVar(&song.TrackID, "track", "", "SoundCloud track id")
	add.Flags().StringVar(&song.EmbedURL, "embed-url", "", "embed URL (defaults to the widget URL)")
	add.Flags().BoolVar(&song.IsDailySong, "daily", false, "make this the daily song")
	return add
}

func newSetDailyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-daily <song-id>",
		Short: "Make a song the song of the day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid song id %q", args[0])
			}

			svc, closeDB, err := openCatalog()
			if err != nil {
				return err
			}
			defer closeDB()

			song, err := svc.SetDailySong(context.Background(), id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "daily song: %s - %s\n", song.Title, song.Artist)
			return nil
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <song-id>",
		Short: "Remove a song and its recorded guesses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid song id %q", args[0])
			}

			svc, closeDB, err := openCatalog()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := svc.RemoveSong(context.Background(), id); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d\n", id)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show guess statistics per song",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeDB, err := openCatalog()
			if err != nil {
				return err
			}
			defer closeDB()

			stats, err := svc.Stats(context.Background())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tTITLE\tGUESSES\tCORRECT\tRATE\tAVG TIME")
			for _, s := range stats {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.0f%%\t%.1fs\n",
					s.SongID, s.Title, s.TotalGuesses, s.CorrectGuesses, s.SuccessRate()*100, s.AverageTimeTaken)
			}
			return tw.Flush()
		},
	}
}

func newGuessesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guesses <id>",
		Short: "List the guesses recorded for a song",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid song id %q", args[0])
			}

			svc, closeDB, err := openCatalog()
			if err != nil {
				return err
			}
			defer closeDB()

			guesses, err := svc.SongGuesses(context.Background(), id)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "WHEN\tCORRECT\tTIME\tSESSION")
			for _, g := range guesses {
				_, _ = fmt.Fprintf(tw, "%s\t%t\t%.1fs\t%s\n",
					g.CreatedAt.Format(time.DateTime), g.Correct, g.TimeTakenSeconds, g.SessionID)
			}
			return tw.Flush()
		},
	}
}
