package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ladlehq/ladle/internal/api/handlers"
	"github.com/ladlehq/ladle/internal/config"
	"github.com/ladlehq/ladle/internal/database"
	"github.com/ladlehq/ladle/internal/jobs"
	"github.com/ladlehq/ladle/internal/openai"
	"github.com/ladlehq/ladle/internal/repository"
	"github.com/ladlehq/ladle/internal/server"
	"github.com/ladlehq/ladle/internal/service"
	"github.com/ladlehq/ladle/internal/storage"
	"github.com/ladlehq/ladle/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the ladle API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if a DSN is set
	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPoolFromDSN(ctx, cfg.DatabaseURL, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// The document store is sized from the embedding client so the vector
	// column and every generated embedding always agree on dimensionality.
	var embeddingClient service.EmbeddingClient
	dims := openai.DefaultEmbeddingDimensions
	if cfg.HasOpenAI() {
		client := openai.NewClient(cfg.OpenAIAPIKey)
		dims = client.Dimensions()
		embeddingClient = client
	} else {
		embeddingClient = &noOpEmbeddingClient{}
		log.Println("OPENAI_API_KEY not set: search and indexing disabled")
	}

	docRepo := repository.NewVectorDocumentRepository(pool, dims)
	recipeRepo := repository.NewRecipeRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	txRunner := repository.NewTxRunner(pool, dims)

	searchSvc := service.NewSearchService(embeddingClient, docRepo)
	indexSvc := service.NewIndexService(embeddingClient, recipeRepo, docRepo, txRunner)
	recipeSvc := service.NewRecipeService(recipeRepo, embeddingJobRepo, txRunner)
	projectSvc := service.NewProjectService(projectRepo)

	var embeddingWorker *jobs.Worker
	if cfg.HasOpenAI() {
		processor := jobs.NewEmbeddingWorker(embeddingJobRepo, indexSvc)
		embeddingWorker = jobs.NewWorker(processor, time.Duration(cfg.WorkerPollSeconds)*time.Second)
		go embeddingWorker.Start(ctx)
		log.Println("embedding worker started")
	}

	var photoHandler *handlers.PhotoHandler
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		photoSvc := service.NewPhotoService(recipeRepo, &S3StorageAdapter{client: s3Client})
		photoHandler = handlers.NewPhotoHandler(photoSvc)
	} else {
		photoHandler = handlers.NewPhotoHandler(&NoOpPhotoService{})
	}

	router := server.NewRouter(server.RouterConfig{
		SearchHandler:  handlers.NewSearchHandler(searchSvc),
		StatsHandler:   handlers.NewStatsHandler(searchSvc),
		RecipeHandler:  handlers.NewRecipeHandler(recipeSvc, indexSvc),
		ProjectHandler: handlers.NewProjectHandler(projectSvc),
		PhotoHandler:   photoHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type S3StorageAdapter struct {
	client *storage.S3Client
}

func (a *S3StorageAdapter) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	return a.client.GenerateUploadURL(ctx, key, contentType)
}

func (a *S3StorageAdapter) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return a.client.GenerateDownloadURL(ctx, key)
}

func (a *S3StorageAdapter) DeleteObject(ctx context.Context, key string) error {
	return a.client.DeleteObject(ctx, key)
}

func (a *S3StorageAdapter) HeadObject(ctx context.Context, key string) (*service.ObjectMetadata, error) {
	meta, err := a.client.HeadObject(ctx, key)
	if err != nil {
		return nil, err
	}
	return &service.ObjectMetadata{
		ContentLength: meta.ContentLength,
		ContentType:   meta.ContentType,
		ETag:          meta.ETag,
	}, nil
}

type noOpEmbeddingClient struct{}

func (c *noOpEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: OPENAI_API_KEY required")
}

type NoOpPhotoService struct{}

func (s *NoOpPhotoService) InitUpload(ctx context.Context, recipeID, filename, contentType string) (*service.InitPhotoUploadResult, error) {
	return nil, fmt.Errorf("photo storage not configured: S3_ENDPOINT required")
}

func (s *NoOpPhotoService) ConfirmUpload(ctx context.Context, recipeID, storageKey string) error {
	return fmt.Errorf("photo storage not configured: S3_ENDPOINT required")
}

func (s *NoOpPhotoService) DownloadURL(ctx context.Context, recipeID string) (string, error) {
	return "", fmt.Errorf("photo storage not configured: S3_ENDPOINT required")
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
