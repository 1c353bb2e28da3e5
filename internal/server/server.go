package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/eventcrm/apiserver/config"
	"github.com/eventcrm/apiserver/internal/auth"
	"github.com/eventcrm/apiserver/internal/db"
	"github.com/eventcrm/apiserver/internal/handlers"
	"github.com/eventcrm/apiserver/internal/mailer"
	"github.com/eventcrm/apiserver/internal/mq"
	"github.com/eventcrm/apiserver/internal/notify"
	"github.com/eventcrm/apiserver/internal/services"
	"github.com/eventcrm/apiserver/internal/storage"
	"github.com/eventcrm/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
)

// Server wraps the HTTP server and its external collaborators.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	mongo      *mongo.Client
	queue      *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	database, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dispatcher, queue, err := buildDispatcher(ctx, cfg)
	if err != nil {
		_ = database.Client().Disconnect(context.Background())
		return nil, err
	}

	avatarStorage, err := buildStorage(ctx, cfg)
	if err != nil {
		_ = database.Client().Disconnect(context.Background())
		return nil, err
	}

	userRepo := store.NewUserRepository(database)
	tokens := auth.NewTokenIssuer(jwtSecret)
	userService := services.NewUserService(userRepo, tokens, dispatcher, logger)

	authHandler := handlers.NewAuthHandler(userService, tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, userService, tokens)
		handlers.ProfileRouter(r, userService, authHandler.RequireAuth)
		if avatarStorage != nil {
			handlers.AvatarRouter(r, avatarStorage, authHandler.RequireAuth)
		}
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		mongo:      database.Client(),
		queue:      queue,
	}, nil
}

// buildDispatcher selects the notification transport. In queue modes the
// returned MQ handle must be closed on shutdown.
func buildDispatcher(ctx context.Context, cfg config.Config) (notify.Dispatcher, *mq.MQ, error) {
	switch cfg.Notifier.Mode {
	case "smtp", "":
		sender, err := mailer.NewSMTPSender(cfg.SMTP)
		if err != nil {
			return nil, nil, err
		}
		return notify.NewSMTPDispatcher(sender, cfg.FrontendURL), nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, nil, err
		}
		queue := mq.New(client)
		return notify.NewQueueDispatcher(queue, cfg.Notifier.Channel), queue, nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, nil, err
		}
		queue := mq.New(client)
		return notify.NewQueueDispatcher(queue, cfg.Notifier.Channel), queue, nil
	default:
		return nil, nil, fmt.Errorf("unknown notifier mode %q", cfg.Notifier.Mode)
	}
}

// buildStorage selects the avatar storage backend, or nil when disabled.
func buildStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "none", "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	st := storage.NewStorage(backend)
	if err := st.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.mongo != nil {
		_ = s.mongo.Disconnect(context.Background())
	}
	return s.httpServer.Close()
}
