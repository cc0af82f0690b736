package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"verbatim/internal/api"
	"verbatim/internal/config"
	"verbatim/internal/jobs"
	"verbatim/internal/recognize"
	"verbatim/internal/repository"
	"verbatim/internal/watch"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := recognize.CreateEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to create recognition engine: %v", err)
	}

	// Job history is optional; without HISTORY_DB only live jobs are served.
	var repo repository.Store
	if cfg.HistoryDBPath != "" {
		repo, err = repository.NewSQLiteStore(cfg.HistoryDBPath)
		if err != nil {
			log.Printf("Warning: Failed to open history database: %v. Continuing without history.", err)
			repo = nil
		} else {
			defer repo.Close()
			api.InitHistoryRepository(repo)
			log.Println("Job history database initialized")
		}
	} else {
		log.Println("HISTORY_DB not set, running without job history")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := jobs.NewManager(cfg, engine, repo, jobs.NewEventBus())
	manager.Start(ctx)

	if cfg.SpoolDir != "" {
		watcher := watch.New(cfg.SpoolDir, manager)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.Printf("Spool watcher stopped: %v", err)
			}
		}()
	}

	r := gin.Default()

	// Add CORS middleware for browser clients
	r.Use(corsMiddleware())

	// Register routes
	api.Init(cfg, manager)
	api.RegisterRoutes(r)

	log.Printf("verbatim backend running on :%s (engine=%s)", cfg.Port, engine.Name())
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// corsMiddleware adds CORS headers for browser clients
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
