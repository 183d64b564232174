package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hackastrophe/internal/api"
	"hackastrophe/internal/app/service"
	"hackastrophe/internal/common/security"
	"hackastrophe/internal/domain/repository"
	"hackastrophe/internal/platform/cache"
	"hackastrophe/internal/platform/config"
	"hackastrophe/internal/platform/database"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	fmt.Println("Database connected.")

	// 4. Initialize Redis
	cache.ConnectRedis()
	defer cache.CloseRedis()
	fmt.Println("Redis connected.")

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	challengeRepo := repository.NewPgChallengeRepository(database.DB)
	cartRepo := repository.NewPgCartRepository(database.DB)
	orderRepo := repository.NewPgOrderRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)

	// 6. Initialize Services
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo, orderRepo)
	challengeService := service.NewChallengeService(challengeRepo, userRepo, database.DB)
	cartService := service.NewCartService(cartRepo, challengeRepo, orderRepo)
	orderService := service.NewOrderService(orderRepo, cartRepo, userRepo, database.DB)
	submissionService := service.NewSubmissionService(submissionRepo, orderRepo, challengeRepo, userRepo, cache.RDB, database.DB)
	leaderboardService := service.NewLeaderboardService(userRepo, cache.RDB)

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(
		authService,
		userService,
		challengeService,
		cartService,
		orderService,
		submissionService,
		leaderboardService,
	)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
