package main

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"bollywoodle/internal/config"
	"bollywoodle/internal/database"
	"bollywoodle/internal/handlers"
	"bollywoodle/internal/repository"
	"bollywoodle/internal/security"
	"bollywoodle/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The startup page is served while the rest initializes
	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticFilesPath))))
	handler := handlers.Logging(handlers.Recovery(handlers.RequireReady(mux)))

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Initialize database with config (supports sqlite, postgres, mysql)
	handlers.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	handlers.CompleteStep(handlers.StepDatabase)

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	handlers.SetCurrentStep(handlers.StepMigrations)
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	handlers.CompleteStep(handlers.StepMigrations)

	log.Println("Migrations completed successfully")

	// Load templates
	handlers.SetCurrentStep(handlers.StepTemplates)
	templates, err := loadTemplates(cfg.TemplatesPath)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}
	handlers.CompleteStep(handlers.StepTemplates)

	log.Println("Templates loaded successfully")

	// Initialize repositories
	store := repository.NewGameStore(db)

	handlers.SetCurrentStep(handlers.StepCatalog)
	count, err := store.CountSongs(ctx)
	if err != nil {
		log.Fatalf("Failed to read song catalog: %v", err)
	}
	if count == 0 {
		log.Println("Warning: song catalog is empty, import songs with the catalog command")
	}
	if _, err := store.FetchDailySong(ctx); err != nil {
		log.Printf("Warning: no daily song configured: %v", err)
	}
	handlers.CompleteStep(handlers.StepCatalog)

	// Initialize services
	handlers.SetCurrentStep(handlers.StepServices)
	modes, err := service.ModesFromConfig(cfg)
	if err != nil {
		log.Fatalf("Invalid game configuration: %v", err)
	}
	games := service.NewGameService(store, modes, cfg.RecordTimeout, cfg.SessionDuration)
	defer games.Close()

	tokens, err := security.NewPlayerTokens(cfg.SessionSecret, cfg.SessionDuration)
	if err != nil {
		log.Fatalf("Failed to configure player tokens: %v", err)
	}
	limiter := security.NewRateLimiter(cfg.GuessRatePerSecond, cfg.GuessRateBurst)
	defer limiter.Stop()

	// Initialize handlers
	middleware := handlers.NewMiddleware(tokens, limiter)
	gameHandler := handlers.NewGameHandler(games, tokens, templates)
	handlers.RegisterRoutes(mux, gameHandler, middleware)

	go games.RunCountdowns(ctx)
	go games.RunCleanup(ctx, time.Hour)
	handlers.CompleteStep(handlers.StepServices)
	handlers.MarkReady()

	log.Printf("Ready with %d songs", count)

	// Wait for interrupt signal
	<-ctx.Done()

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// loadTemplates loads all template files
func loadTemplates(templatesPath string) (*template.Template, error) {
	files := []string{filepath.Join(templatesPath, "base.tmpl")}

	patterns := []string{
		filepath.Join(templatesPath, "game/*.tmpl"),
		filepath.Join(templatesPath, "components/*.tmpl"),
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}

	// Define template functions
	funcMap := template.FuncMap{
		"until": func(count int) []int {
			result := make([]int, count)
			for i := 0; i < count; i++ {
				result[i] = i
			}
			return result
		},
		"sum": func(values []int) int {
			total := 0
			for _, v := range values {
				total += v
			}
			return total
		},
		"percent": func(part, total int) float64 {
			if total == 0 {
				return 0
			}
			return float64(part) * 100 / float64(total)
		},
	}

	// Parse all templates with functions
	tmpl, err := template.New("").Funcs(funcMap).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return tmpl, nil
}
