package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"projectforge-service/internal/app"
	"projectforge-service/internal/config"
	"projectforge-service/internal/domain"
	"projectforge-service/internal/grader"
	"projectforge-service/internal/infra/memory"
	pgcatalog "projectforge-service/internal/infra/postgres"
	redisinfra "projectforge-service/internal/infra/redis"
	transport "projectforge-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the learning platform server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.ProjectLoader = memory.NewStaticProjectLoader(sampleProjects())
	if cfg.Catalog.File != "" {
		fileLoader, err := memory.LoadProjectsFile(cfg.Catalog.File)
		if err != nil {
			return err
		}
		loader = fileLoader
	}
	if pool != nil {
		loader = pgcatalog.NewCatalogLoader(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.CatalogRepository
	if redisClient != nil {
		catalog = redisinfra.NewCatalog(redisClient, loader, catalogTTL)
	} else {
		catalog = memory.NewCatalog(loader, catalogTTL)
	}

	blobBase := cfg.Blobs.BaseURL
	if blobBase == "" {
		blobBase = "http://localhost:" + finalPort
	}

	var progressStore app.ProgressStore
	var completionStore app.CompletionStore
	var messageStore app.MessageStore
	var blobStore app.BlobStore
	if redisClient != nil {
		progressStore = redisinfra.NewProgressStore(redisClient)
		completionStore = redisinfra.NewCompletionStore(redisClient)
		messageStore = redisinfra.NewMessageStore(redisClient)
		blobStore = redisinfra.NewBlobStore(redisClient, blobBase)
	} else {
		progressStore = memory.NewProgressStore()
		completionStore = memory.NewCompletionStore()
		messageStore = memory.NewMessageStore()
		blobStore = memory.NewBlobStore(blobBase)
	}

	graderClient := grader.NewClient(cfg.Grader.Endpoint, config.TTLDuration(cfg.Grader.Timeout, 30*time.Second))

	progressService := app.NewProgressService(catalog, progressStore, completionStore, blobStore, graderClient)
	portfolioService := app.NewPortfolioService(completionStore)
	chatService := app.NewChatService(messageStore, cfg.Chat.HistoryLimit)

	handler := transport.NewHandler(progressService, portfolioService, catalog, blobStore)
	wsHandler := transport.NewWSHandler(chatService)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting projectforge service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleProjects provides a minimal catalog; swap the loader for the static
// file or Postgres-backed one in production.
func sampleProjects() []domain.Project {
	return []domain.Project{
		{
			ID:               "url-shortener",
			Title:            "URL Shortener",
			Domain:           "Backend",
			Difficulty:       domain.DifficultyBeginner,
			ProblemStatement: "Long links are hard to share and track.",
			Approach:         "Hash each long URL to a short code, store the mapping, and redirect on lookup.",
			TechStack:        []domain.TechItem{{Name: "Go"}, {Name: "Redis"}, {Name: "PostgreSQL"}, {Name: "Docker"}},
			Milestones: []domain.Milestone{
				{
					ID:    "m1",
					Title: "Design the shortening scheme",
					Goal:  "Pick a code alphabet and a collision strategy.",
					Content: []domain.ContentBlock{
						{Kind: domain.ContentParagraph, Text: "Decide how many characters a short code needs for your expected volume."},
						{Kind: domain.ContentCallout, Text: "Base62 over 7 characters covers trillions of URLs."},
					},
					EstimatedHours: 2,
				},
				{
					ID:    "m2",
					Title: "Build the redirect endpoint",
					Goal:  "Serve lookups with a single storage round trip.",
					Content: []domain.ContentBlock{
						{Kind: domain.ContentParagraph, Text: "Route short codes to their stored target and return a permanent redirect."},
						{Kind: domain.ContentCode, Text: "http.Redirect(w, r, target, http.StatusMovedPermanently)"},
					},
					EstimatedHours: 3,
				},
			},
			SkillsGained: []string{"REST API design", "Key-value modeling", "Hashing"},
			ResumeText:   "Built and deployed a URL shortening service with collision-safe code generation.",
		},
	}
}
