package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"bollywoodle/internal/config"
	"bollywoodle/internal/database"
	"bollywoodle/internal/game"
	"bollywoodle/internal/models"
	"bollywoodle/internal/player"
	"bollywoodle/internal/repository"
	"bollywoodle/internal/service"
	"bollywoodle/internal/tui"
)

const (
	clockInterval = 100 * time.Millisecond
	// Simulated tracks run this far past the last segment
	trackTail = 30
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		daily   bool
		logFile string
	)

	cmd := &cobra.Command{
		Use:           "play",
		Short:         "Play Bollywoodle in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			modeName := "classic"
			if daily {
				modeName = "daily"
			}
			return run(cmd.Context(), modeName, logFile)
		},
	}

	cmd.Flags().BoolVar(&daily, "daily", false, "play the song of the day")
	cmd.Flags().StringVar(&logFile, "log-file", "bollywoodle-play.log", "file the game logs to")
	return cmd
}

func run(ctx context.Context, modeName, logFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Logging to the terminal would tear the screen
	f, err := tea.LogToFile(logFile, "play")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	modes, err := service.ModesFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid game configuration: %w", err)
	}
	mode, ok := findMode(modes, modeName)
	if !ok {
		return fmt.Errorf("unknown mode %q", modeName)
	}

	length := float64(mode.Schedule.Total() + trackTail)
	ctrl, err := game.NewController(game.Options{
		Mode:       mode,
		Repository: repository.NewGameStore(db),
		Devices: func(song *models.Song) (game.Device, error) {
			return player.NewClockDevice(clockInterval, length), nil
		},
		RecordTimeout: cfg.RecordTimeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctrl.Close()
		ctrl.Wait()
	}()

	log.Printf("Starting %s game", mode.Name)
	if _, err := tea.NewProgram(tui.New(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("game exited: %w", err)
	}
	return nil
}

func findMode(modes []game.Mode, name string) (game.Mode, bool) {
	for _, m := range modes {
		if m.Name == name {
			return m, true
		}
	}
	return game.Mode{}, false
}
