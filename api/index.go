package handler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"creator-hub-backend/pkg/authz"
	"creator-hub-backend/pkg/config"
	"creator-hub-backend/pkg/database"
	"creator-hub-backend/pkg/handlers"
	"creator-hub-backend/pkg/idempotency"
	"creator-hub-backend/pkg/matrix"
	customMiddleware "creator-hub-backend/pkg/middleware"
	"creator-hub-backend/pkg/session"
	"creator-hub-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// The router and its dependencies are built once per process and reused
// across requests (monolith-router pattern: every endpoint lives in one
// chi router).
var (
	routerOnce sync.Once
	router     *chi.Mux
	initErr    error
)

// Handler is the HTTP entrypoint.
func Handler(w http.ResponseWriter, r *http.Request) {
	routerOnce.Do(func() {
		router, initErr = buildRouter()
	})
	if initErr != nil {
		utils.WriteInternalServerErrorResponse(w, "Startup error: "+initErr.Error())
		return
	}
	router.ServeHTTP(w, r)
}

func buildRouter() (*chi.Mux, error) {
	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	db, err := database.NewPostgresDatabase(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	// The session-code store is optional; without Redis the handoff
	// endpoints report unavailable instead of failing startup.
	var codes *session.Store
	if cfg.RedisURL != "" {
		codes, err = session.NewStore(cfg.RedisURL, 5*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("redis error: %w", err)
		}
	} else {
		fmt.Println("[warn] REDIS_URL not set; session handoff disabled")
	}

	rooms := matrix.NewClient(cfg.MatrixHomeserverURL, cfg.MatrixAccessToken)
	jwtService := utils.NewJWTService(cfg.JWTSecret)

	resolver := authz.NewScopeResolver(db)
	evaluator := authz.NewEvaluator(db)
	gateway := authz.NewGateway(db, resolver, evaluator)
	granter := authz.NewGrantAuthorizer(resolver, evaluator)
	executor := idempotency.NewExecutor(db)

	r := chi.NewRouter()
	setupMiddleware(r, cfg)
	setupRoutes(r, cfg, db, gateway, granter, evaluator, executor, rooms, codes, jwtService)
	return r, nil
}

func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))
	router.Use(customMiddleware.CORS(cfg))
	router.Use(middleware.Timeout(25 * time.Second))
	router.Use(middleware.Compress(5))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

func setupRoutes(
	router *chi.Mux,
	cfg *config.Config,
	db database.DatabaseInterface,
	gateway *authz.Gateway,
	granter *authz.GrantAuthorizer,
	evaluator *authz.Evaluator,
	executor *idempotency.Executor,
	rooms matrix.Adapter,
	codes *session.Store,
	jwtService *utils.JWTService,
) {
	provisionHandler := handlers.NewProvisionHandler(db, gateway, executor, rooms)
	moderationHandler := handlers.NewModerationHandler(db, gateway, rooms)
	rolesHandler := handlers.NewRolesHandler(db, granter, gateway)
	voiceHandler := handlers.NewVoiceHandler(db, gateway, jwtService)
	auditHandler := handlers.NewAuditHandler(db, evaluator)
	sessionHandler := handlers.NewSessionHandler(db, codes, jwtService)
	healthHandler := handlers.NewHealthHandler(db)

	router.Get("/", healthHandler.Check)
	router.Get("/health", healthHandler.Check)

	router.Route("/api", func(r chi.Router) {
		// Public: the one-time code is the credential here.
		r.Route("/auth", func(r chi.Router) {
			r.Post("/exchange-session", sessionHandler.ExchangeCode)

			r.Group(func(r chi.Router) {
				r.Use(customMiddleware.AuthMiddleware(cfg))
				r.Post("/session-code", sessionHandler.CreateCode)
			})
		})

		// Everything else requires an authenticated actor.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))

			r.Route("/hubs", func(r chi.Router) {
				r.Post("/", provisionHandler.CreateHub)
				r.Get("/{id}/servers", provisionHandler.ListServers)
			})

			r.Route("/servers", func(r chi.Router) {
				r.Post("/", provisionHandler.CreateServer)
				r.Get("/{id}/channels", provisionHandler.ListChannels)
				r.Post("/{id}/channels", provisionHandler.CreateChannel)
				r.Post("/{id}/transfer", rolesHandler.TransferOwnership)
			})

			r.Route("/channels", func(r chi.Router) {
				r.Put("/{id}/slow_mode", moderationHandler.SetSlowMode)
				r.Put("/{id}/lock", moderationHandler.SetLocked)
			})

			r.Route("/moderation", func(r chi.Router) {
				r.Post("/kick", moderationHandler.Kick)
				r.Post("/ban", moderationHandler.Ban)
				r.Post("/unban", moderationHandler.Unban)
				r.Post("/redact", moderationHandler.Redact)
			})

			r.Route("/roles", func(r chi.Router) {
				r.Get("/", rolesHandler.ListBindings)
				r.Post("/grant", rolesHandler.Grant)
				r.Post("/revoke", rolesHandler.Revoke)
			})

			r.Route("/delegations", func(r chi.Router) {
				r.Post("/", rolesHandler.CreateDelegation)
				r.Delete("/{id}", rolesHandler.RevokeDelegation)
			})

			r.Post("/voice/token", voiceHandler.IssueToken)

			r.Get("/audit", auditHandler.List)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "method_not_allowed",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
