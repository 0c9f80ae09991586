package main

import (
	"blog-backend/cmd"
	"blog-backend/internal/api"
	"blog-backend/internal/auth"
	"blog-backend/internal/database"
	"blog-backend/internal/email"
	"blog-backend/internal/flux"
	"blog-backend/internal/generation"
	"blog-backend/internal/storage"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type APIConfig struct {
	DatabaseURL string `env:"DATABASE_URL,notEmpty,required"`
	APIPort     string `env:"API_PORT" envDefault:"8001"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	JWTSecret   string `env:"JWT_SECRET,notEmpty,required"`

	StorageProvider string `env:"STORAGE_PROVIDER" envDefault:"local"`
	UploadDir       string `env:"UPLOAD_DIR" envDefault:"uploads"`
	MediaBaseURL    string `env:"MEDIA_BASE_URL" envDefault:"http://localhost:8001"`

	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION"`
	MediaBucketName   string `env:"MEDIA_BUCKET_NAME" envDefault:"media"`

	FluxAPIKey       string        `env:"FLUX_API_KEY,notEmpty,required"`
	FluxBaseURL      string        `env:"FLUX_API_BASE_URL"`
	FluxPollInterval time.Duration `env:"FLUX_POLL_INTERVAL" envDefault:"500ms"`
	FluxPollAttempts int           `env:"FLUX_POLL_ATTEMPTS" envDefault:"30"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY,notEmpty,required"`
	DraftModel   string `env:"DRAFT_MODEL"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	EmailFrom    string `env:"EMAIL_FROM"`
}

func createMediaStore(cfg APIConfig) (storage.MediaStore, error) {
	if cfg.StorageProvider == storage.ProviderS3 {
		return storage.NewS3MediaStore(cfg.MediaBucketName, cfg.MediaBaseURL, storage.S3ClientConfig{
			Endpoint:        cfg.S3EndpointURL,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	}
	return storage.NewLocalMediaStore(cfg.UploadDir, cfg.MediaBaseURL)
}

func createMailer(cfg APIConfig) (*email.Sender, error) {
	if cfg.SMTPHost == "" {
		return email.NewSender(nil)
	}
	return email.NewSender(&email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	})
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store, err := createMediaStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create media store: %v", err)
	}

	fluxClient := flux.NewClient(cfg.FluxBaseURL, cfg.FluxAPIKey)
	poller := flux.NewPoller(fluxClient, cfg.FluxPollInterval, cfg.FluxPollAttempts)
	images := generation.NewImageGenerator(fluxClient, poller, store, db)

	drafts := generation.NewDraftGenerator(
		openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey)), cfg.DraftModel)

	mailer, err := createMailer(cfg)
	if err != nil {
		log.Fatalf("Failed to create mail client: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret)
	refresh := auth.NewRefreshStore(db)
	authMiddleware := api.AuthMiddleware(tokens, db)

	// --- Chi Router Setup ---
	r := chi.NewRouter()

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Log requests
	r.Use(middleware.Recoverer) // Recover from panics

	// API Handlers (dependency injection)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second)) // Set request timeout

		api.NewAuthService(db, tokens, refresh, mailer, cfg.FrontendURL).AddRoutes(r)
		api.NewUserService(db, authMiddleware).AddRoutes(r)
		api.NewPostService(db, authMiddleware).AddRoutes(r)
		api.NewTagService(db, authMiddleware).AddRoutes(r)
		api.NewMediaService(store, db, authMiddleware).AddRoutes(r)
	})

	// The generation endpoints stream and poll; they manage their own
	// deadlines and must not be cut off by the request timeout.
	api.NewAIService(images, drafts, authMiddleware).AddRoutes(r)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
