package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/vedran77/kapsula/internal/config"
	"github.com/vedran77/kapsula/internal/database"
	postgresrepo "github.com/vedran77/kapsula/internal/repository/postgres"
	"github.com/vedran77/kapsula/internal/service"
	"github.com/vedran77/kapsula/internal/transport/http/handlers"
	"github.com/vedran77/kapsula/internal/transport/http/middleware"
	"github.com/vedran77/kapsula/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	capsuleRepo := postgresrepo.NewCapsuleRepo(pool)
	grantRepo := postgresrepo.NewGrantRepo(pool)
	friendshipRepo := postgresrepo.NewFriendshipRepo(pool)
	notificationRepo := postgresrepo.NewNotificationRepo(pool)

	clock := service.SystemClock()

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, clock)
	notificationService := service.NewNotificationService(notificationRepo, clock)
	notificationService.SetPusher(ws.NewHubNotifier(hub))

	friendshipService := service.NewFriendshipService(friendshipRepo, userRepo, clock)
	friendshipService.SetNotifier(notificationService)

	scheduler := service.NewTimerScheduler(clock)
	capsuleService := service.NewCapsuleService(capsuleRepo, grantRepo, userRepo, scheduler, clock)
	capsuleService.SetNotifier(notificationService)
	capsuleService.SetFriendProvider(friendshipService)
	scheduler.SetOpenFunc(capsuleService.AutoOpen)

	// Re-arm pending auto-opens lost on the last shutdown.
	if err := capsuleService.RestorePendingUnlocks(context.Background()); err != nil {
		log.Fatal(err)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	capsuleHandler := handlers.NewCapsuleHandler(capsuleService)
	friendshipHandler := handlers.NewFriendshipHandler(friendshipService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// WebSocket
	mux.HandleFunc("GET /api/v1/ws", ws.ServeWS(hub, cfg.JWTSecret))

	// Protected - Capsules
	mux.Handle("POST /api/v1/capsules", auth(http.HandlerFunc(capsuleHandler.Create)))
	mux.Handle("GET /api/v1/capsules", auth(http.HandlerFunc(capsuleHandler.List)))
	mux.Handle("GET /api/v1/capsules/{id}", auth(http.HandlerFunc(capsuleHandler.Get)))
	mux.Handle("PATCH /api/v1/capsules/{id}", auth(http.HandlerFunc(capsuleHandler.Update)))
	mux.Handle("DELETE /api/v1/capsules/{id}", auth(http.HandlerFunc(capsuleHandler.Delete)))
	mux.Handle("POST /api/v1/capsules/{id}/lock", auth(http.HandlerFunc(capsuleHandler.Lock)))
	mux.Handle("POST /api/v1/capsules/{id}/unlock", auth(http.HandlerFunc(capsuleHandler.Unlock)))
	mux.Handle("POST /api/v1/capsules/{id}/publish", auth(http.HandlerFunc(capsuleHandler.Publish)))
	mux.Handle("POST /api/v1/capsules/{id}/archive", auth(http.HandlerFunc(capsuleHandler.Archive)))
	mux.Handle("GET /api/v1/capsules/{id}/countdown", auth(http.HandlerFunc(capsuleHandler.Countdown)))

	// Protected - Access grants
	mux.Handle("GET /api/v1/capsules/{id}/access", auth(http.HandlerFunc(capsuleHandler.ListGrants)))
	mux.Handle("POST /api/v1/capsules/{id}/access", auth(http.HandlerFunc(capsuleHandler.GrantAccess)))
	mux.Handle("POST /api/v1/capsules/{id}/access/friends", auth(http.HandlerFunc(capsuleHandler.GrantAccessToAllFriends)))
	mux.Handle("PATCH /api/v1/capsules/{id}/access/{uid}", auth(http.HandlerFunc(capsuleHandler.UpdateAccessRole)))
	mux.Handle("DELETE /api/v1/capsules/{id}/access/{uid}", auth(http.HandlerFunc(capsuleHandler.RevokeAccess)))

	// Protected - Friends
	mux.Handle("POST /api/v1/friends/requests", auth(http.HandlerFunc(friendshipHandler.SendRequest)))
	mux.Handle("GET /api/v1/friends/requests/incoming", auth(http.HandlerFunc(friendshipHandler.ListIncoming)))
	mux.Handle("GET /api/v1/friends/requests/outgoing", auth(http.HandlerFunc(friendshipHandler.ListOutgoing)))
	mux.Handle("POST /api/v1/friends/requests/{id}/accept", auth(http.HandlerFunc(friendshipHandler.AcceptRequest)))
	mux.Handle("POST /api/v1/friends/requests/{id}/reject", auth(http.HandlerFunc(friendshipHandler.RejectRequest)))
	mux.Handle("DELETE /api/v1/friends/requests/{id}", auth(http.HandlerFunc(friendshipHandler.CancelRequest)))
	mux.Handle("GET /api/v1/friends", auth(http.HandlerFunc(friendshipHandler.ListFriends)))
	mux.Handle("DELETE /api/v1/friends/{uid}", auth(http.HandlerFunc(friendshipHandler.RemoveFriend)))

	// Protected - Notifications
	mux.Handle("GET /api/v1/notifications", auth(http.HandlerFunc(notificationHandler.List)))
	mux.Handle("POST /api/v1/notifications/{id}/read", auth(http.HandlerFunc(notificationHandler.MarkRead)))
	mux.Handle("POST /api/v1/notifications/read-all", auth(http.HandlerFunc(notificationHandler.MarkAllRead)))

	// Start server with CORS
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("Starting server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, middleware.CORS(mux)))
}
