package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vedran77/dealerchat/internal/broker"
	"github.com/vedran77/dealerchat/internal/config"
	"github.com/vedran77/dealerchat/internal/database"
	"github.com/vedran77/dealerchat/internal/repository"
	"github.com/vedran77/dealerchat/internal/repository/memory"
	postgresrepo "github.com/vedran77/dealerchat/internal/repository/postgres"
	"github.com/vedran77/dealerchat/internal/service"
	"github.com/vedran77/dealerchat/internal/transport/http/handlers"
	"github.com/vedran77/dealerchat/internal/transport/http/middleware"
	"github.com/vedran77/dealerchat/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	var (
		userRepo repository.UserRepository
		chatRepo repository.ChatRepository
	)
	if cfg.Storage == "memory" {
		users := memory.NewUserRepo()
		userRepo, chatRepo = users, memory.NewChatRepo(users)
		log.Println("Using in-memory storage")
	} else {
		pool, err := database.Connect(cfg)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		log.Println("Connected to database")

		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal(err)
		}
		userRepo, chatRepo = postgresrepo.NewUserRepo(pool), postgresrepo.NewChatRepo(pool)
	}

	// Real-time push
	hub := ws.NewHub()
	go hub.Run(ctx)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	chatService := service.NewChatService(chatRepo, userRepo)
	attachmentService := service.NewAttachmentService(cfg.Cloudinary)

	if cfg.NatsURL != "" {
		nc, err := broker.Connect(cfg.NatsURL)
		if err != nil {
			log.Fatal(err)
		}
		defer nc.Drain()

		if _, err := broker.Relay(nc, broker.DefaultSubjectPrefix, hub); err != nil {
			log.Fatal(err)
		}
		chatService.SetNotifier(broker.NewNatsNotifier(nc, broker.DefaultSubjectPrefix))
		log.Printf("Relaying chat pushes through NATS at %s", cfg.NatsURL)
	} else {
		chatService.SetNotifier(ws.NewHubNotifier(hub))
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(chatService, attachmentService)

	// Routes
	mux := http.NewServeMux()
	handlers.Register(mux, middleware.Auth(cfg.JWTSecret), authHandler, chatHandler)
	mux.HandleFunc("GET /web-socket/chat", ws.ServeWS(hub, cfg.JWTSecret, originPatterns(cfg.CORSOrigin)))

	// Start server with CORS
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.CORS(cfg.CORSOrigin)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Starting server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// originPatterns turns the CORS origin into WebSocket origin patterns.
// "*" accepts any origin.
func originPatterns(origin string) []string {
	if origin == "*" {
		return []string{"*"}
	}
	host := origin
	if i := strings.Index(host, "://"); i != -1 {
		host = host[i+3:]
	}
	return []string{strings.TrimSuffix(host, "/")}
}
