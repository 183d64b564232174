package api

import (
	"net/http"
	"time"

	"hackastrophe/internal/api/handler"
	"hackastrophe/internal/app/service"
	"hackastrophe/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	userService *service.UserService,
	challengeService *service.ChallengeService,
	cartService *service.CartService,
	orderService *service.OrderService,
	submissionService *service.SubmissionService,
	leaderboardService *service.LeaderboardService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Puts JWT claims in the request context when a valid
	// "Authorization: Bearer T" header is present.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(authService)
		v1.Group(func(publicAuth chi.Router) {
			authHandler.RegisterRoutes(publicAuth)
		})

		// Challenge routes (listing public, mutation authenticated)
		challengeHandler := handler.NewChallengeHandler(challengeService, submissionService)
		v1.Route("/challenges", challengeHandler.RegisterRoutes)

		// Cart routes (authenticated)
		cartHandler := handler.NewCartHandler(cartService)
		v1.Route("/cart", cartHandler.RegisterRoutes)

		// Order routes (authenticated)
		orderHandler := handler.NewOrderHandler(orderService)
		v1.Route("/orders", orderHandler.RegisterRoutes)

		// Submission routes (authenticated)
		submissionHandler := handler.NewSubmissionHandler(submissionService)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		// Account routes (authenticated)
		accountHandler := handler.NewAccountHandler(userService, challengeService, orderService)
		v1.Route("/account", accountHandler.RegisterRoutes)

		// Admin routes (admin only)
		adminHandler := handler.NewAdminHandler(userService, orderService)
		v1.Route("/admin", adminHandler.RegisterRoutes)

		// Leaderboard routes (public)
		leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
		v1.Route("/leaderboard", leaderboardHandler.RegisterRoutes)
	})

	return r
}
