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

	"llm-arena/internal/arena"
	"llm-arena/internal/audit"
	"llm-arena/internal/catalog"
	"llm-arena/internal/config"
	"llm-arena/internal/db"
	"llm-arena/internal/eventbus"
	"llm-arena/internal/handlers"
	"llm-arena/internal/llm"
	"llm-arena/internal/metrics"
	"llm-arena/internal/middleware"
	"llm-arena/internal/rag"
	"llm-arena/internal/services"
	"llm-arena/internal/store"
	"llm-arena/internal/tokens"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// leaderboardNotifier fans a leaderboard change out to the local WebSocket hub
// and to other instances via the event bus.
type leaderboardNotifier struct {
	hub *handlers.LeaderboardHub
	bus *eventbus.EventBus
}

func (n *leaderboardNotifier) LeaderboardUpdated() {
	n.hub.LeaderboardUpdated()
	n.bus.PublishLeaderboardUpdate()
}

func main() {
	// Load configuration
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting arena server in %s mode", cfg.Environment)

	// Connect to MongoDB
	mongodb, err := db.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongodb.Close(ctx)
	}()

	log.Printf("Connected to MongoDB database: %s", cfg.MongoDB.Database)

	repo := store.NewMongoRepository(mongodb, cfg.MongoDB.Transactions)
	cat := catalog.New(cfg.Models)

	// Metrics
	m := metrics.New(prometheus.DefaultRegisterer)

	// Model invoker (OpenRouter), instrumented
	client := llm.NewOpenRouterClient(
		cfg.OpenRouter.APIKey,
		cfg.OpenRouter.BaseURL,
		cfg.OpenRouter.Referer,
		time.Duration(cfg.OpenRouter.TimeoutSeconds)*time.Second,
	)
	invoker := metrics.NewInstrumentedInvoker(client, m)

	// Context retrieval
	var retriever rag.Retriever = rag.NoopRetriever{}
	if cfg.RAG.CorpusDir != "" {
		retriever = rag.NewCorpusRetriever(cfg.RAG.CorpusDir, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, cfg.RAG.TopK)
	}

	counter := tokens.NewWordCounter(cfg.Arena.TokensPerWord)

	coordinator := arena.NewCoordinator(repo, cat, invoker, retriever, counter, arena.Config{
		PromptTokenBudget:   cfg.Arena.PromptTokenBudget,
		ResponseTokenBudget: cfg.Arena.ResponseTokenBudget,
		TruncatePolicy:      tokens.TruncatePolicy(cfg.Arena.TruncatePolicy),
	})

	// Provision a global rating record for every catalog model
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := coordinator.SeedCatalog(seedCtx); err != nil {
		log.Printf("Warning: failed to seed model catalog: %v", err)
	}
	seedCancel()

	// Live leaderboard: local WebSocket hub plus cross-instance event bus
	hub := handlers.NewLeaderboardHub(coordinator)
	defer hub.Stop()
	bus := eventbus.New(mongodb.ArenaEvents(), hub.LeaderboardUpdated)
	bus.Start()
	defer bus.Stop()
	coordinator.SetNotifier(&leaderboardNotifier{hub: hub, bus: bus})

	// Background cleanup of battles that never received a vote
	cleanup := services.NewStaleBattleCleanupService(mongodb)
	cleanup.Start()
	defer cleanup.Stop()

	auditLogger := audit.NewLogger(mongodb.AuditLog())

	// Rate limiting
	rl := middleware.NewRateLimiter()
	defer rl.Stop()

	// Create handlers
	arenaHandler := handlers.NewArenaHandler(coordinator, auditLogger, m)
	modelsHandler := handlers.NewModelsHandler(cat)
	leaderboardHandler := handlers.NewLeaderboardHandler(coordinator)

	// Set up router
	router := mux.NewRouter()
	router.Use(middleware.SecurityHeaders())

	// WebSocket routes
	router.Handle("/ws/leaderboard",
		rl.IPRateLimitMiddleware(middleware.WebSocketUpgradeLimit)(http.HandlerFunc(hub.HandleWebSocket)))

	// API routes
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/models", modelsHandler.GetModels).Methods("GET")
	api.HandleFunc("/battle",
		rl.RateLimitHandler(middleware.BattleCreationLimit, middleware.GetClientIP, arenaHandler.StartBattle)).Methods("POST")
	api.HandleFunc("/vote",
		rl.RateLimitHandler(middleware.VoteLimit, middleware.GetClientIP, arenaHandler.CastVote)).Methods("POST")
	api.HandleFunc("/leaderboard",
		rl.RateLimitHandler(middleware.LeaderboardLimit, middleware.GetClientIP, leaderboardHandler.GetLeaderboard)).Methods("GET")
	api.HandleFunc("/admin/reset",
		rl.RateLimitHandler(middleware.ResetLimit, middleware.GetClientIP, arenaHandler.ResetDatabase)).Methods("POST")

	// API Documentation
	router.HandleFunc("/docs", handlers.ServeAPIDocs).Methods("GET")

	// Prometheus metrics
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.URL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 4 * time.Minute, // battles wait on two upstream model calls
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
