package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"controltower/internal/config"
	"controltower/internal/database"
	"controltower/internal/events"
	"controltower/internal/handlers"
	"controltower/internal/health"
	"controltower/internal/index"
	"controltower/internal/jobs"
	"controltower/internal/knowledge"
	"controltower/internal/logging"
	"controltower/internal/middleware"
	"controltower/internal/mode"
	"controltower/internal/preflight"
	"controltower/internal/services"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

const auditDrainTimeout = 10 * time.Second

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	log.Println("🚀 Starting Control Tower tool server...")

	loadEnvironment()

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("📋 Configuration loaded (Port: %s, Event store: %s)", cfg.Port, cfg.EventStoreDriver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy := cfg.BackoffPolicy()

	// Initialize the event store
	var store events.Store
	var storePinger events.Pinger
	var sqlDB *database.DB
	var mongoDB *database.MongoDB

	switch cfg.EventStoreDriver {
	case config.DriverMongo:
		log.Println("🔗 Connecting to MongoDB...")
		var err error
		mongoDB, err = database.NewMongoDB(cfg.MongoDBURI)
		if err != nil {
			log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
		}
		defer mongoDB.Close(context.Background())

		if err := mongoDB.Initialize(ctx); err != nil {
			log.Fatalf("❌ Failed to initialize MongoDB: %v", err)
		}
		mongoStore := events.NewMongoStore(mongoDB, policy)
		store, storePinger = mongoStore, mongoStore
	default:
		var err error
		sqlDB, err = database.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to database: %v", err)
		}
		defer sqlDB.Close()

		if err := sqlDB.Initialize(); err != nil {
			log.Fatalf("❌ Failed to initialize database: %v", err)
		}
		sqlStore := events.NewSQLStore(sqlDB, policy)
		store, storePinger = sqlStore, sqlStore
	}

	// Initialize the live document index
	var liveIndex index.Backend
	var indexPinger index.Pinger
	if cfg.SearchBackendURL != "" {
		httpIndex, err := index.NewHTTPBackend(index.HTTPConfig{
			BaseURL:    cfg.SearchBackendURL,
			APIKey:     cfg.SearchAPIKey,
			RateLimit:  cfg.SearchRateLimit,
			Policy:     policy,
			ImportURIs: cfg.SearchImportURIs,
		})
		if err != nil {
			log.Fatalf("❌ Failed to configure search backend: %v", err)
		}
		liveIndex, indexPinger = httpIndex, httpIndex
		log.Printf("🔎 Search backend: %s", cfg.SearchBackendURL)
	} else {
		liveIndex = index.NewUnavailableBackend("SEARCH_BACKEND_URL is not set")
		log.Println("⚠️  SEARCH_BACKEND_URL not set - live searches will return errors")
	}

	// Simulation corpus
	var fixtureDocs []index.FixtureDocument
	if cfg.FixturesFile != "" {
		docs, err := index.LoadFixtureDocuments(cfg.FixturesFile)
		if err != nil {
			log.Fatalf("❌ Failed to load fixtures: %v", err)
		}
		fixtureDocs = docs
		log.Printf("✅ Loaded %d simulation documents from %s", len(docs), cfg.FixturesFile)
	}

	// Customer registry, hot-reloaded when backed by a file
	registry := knowledge.NewRegistry(knowledge.DefaultCustomers)
	if cfg.CustomersFile != "" {
		loaded, err := knowledge.LoadRegistry(cfg.CustomersFile)
		if err != nil {
			log.Fatalf("❌ Failed to load customers file: %v", err)
		}
		registry = loaded
	}
	registryHolder := knowledge.NewRegistryHolder(registry)
	if cfg.CustomersFile != "" {
		if err := registryHolder.Watch(ctx, cfg.CustomersFile); err != nil {
			log.Printf("⚠️  Customer registry hot-reload disabled: %v", err)
		}
	}

	// Backend health tracking
	healthService := health.NewService(3, cfg.BackendTimeout)
	healthService.Register(health.ComponentIndex, indexPinger)
	healthService.Register(health.ComponentEventStore, storePinger)

	// Pre-flight checks
	checker := preflight.NewChecker(storePinger, sqlDB, indexPinger, registryHolder.Snapshot())
	if results := checker.RunAll(); preflight.HasFailures(results) {
		log.Fatal("❌ Pre-flight checks failed")
	}

	// Optional Redis fan-out of decision records
	var publisher services.DecisionPublisher
	if cfg.RedisURL != "" {
		redisService, err := services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, decision publishing disabled: %v", err)
		} else {
			defer redisService.Close()
			publisher = redisService
			healthService.Register(health.ComponentRedis, redisService)
			log.Printf("📣 Publishing decisions on %s", services.DecisionChannel)
		}
	}

	// Services
	metrics := services.NewMetrics(prometheus.DefaultRegisterer, healthService)
	selector := mode.NewSelector(liveIndex, store, index.NewFixtureBackend(fixtureDocs), events.NewFixtureStore())
	knowledgeService := services.NewKnowledgeService(registryHolder, index.NewRandomLimit(cfg.LimitSeed), healthService, metrics)
	precedentService := services.NewPrecedentService(healthService, metrics)
	auditService := services.NewAuditService(cfg.AgentVersion, cfg.AuditTimeout, publisher, metrics)
	statsService := services.NewStatsService(cfg.StatsCacheTTL, healthService)

	// Background jobs
	jobScheduler, err := jobs.NewJobScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	if err := jobScheduler.Register("backend-health", cfg.HealthCheckCron, jobs.NewBackendHealthChecker(healthService)); err != nil {
		log.Fatalf("❌ %v", err)
	}
	jobScheduler.Start()
	go func() {
		if err := jobScheduler.RunNow("backend-health"); err != nil {
			log.Printf("⚠️  Initial backend health check failed: %v", err)
		}
	}()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Control Tower Tools",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	// Prometheus metrics middleware
	prom := fiberprometheus.New("controltower")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Admin=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.AdminMax,
	)

	// Fiber's CORS middleware does not allow AllowCredentials with wildcard origins
	allowCredentials := cfg.AllowedOrigins != "*"

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization," + mode.HeaderName,
		AllowCredentials: allowCredentials,
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", cfg.AllowedOrigins)

	app.Use(middleware.SimulationMode())

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(healthService, jobScheduler)
	knowledgeHandler := handlers.NewKnowledgeHandler(selector, knowledgeService)
	historyHandler := handlers.NewHistoryHandler(selector, precedentService)
	actionHandler := handlers.NewActionHandler(selector, auditService)
	dashboardHandler := handlers.NewDashboardHandler(selector, statsService)

	// Health checks are not rate limited
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.Handle)

	// Agent tools
	toolLimiter := middleware.GlobalAPIRateLimiter(rateLimitConfig)
	app.Post("/search", toolLimiter, knowledgeHandler.Search)
	app.Post("/get_similar_events", toolLimiter, historyHandler.SimilarEvents)
	app.Post("/update_eta", toolLimiter, actionHandler.UpdateETA)
	app.Post("/request_reshipment", toolLimiter, actionHandler.RequestReshipment)
	app.Post("/escalate_to_human", toolLimiter, actionHandler.EscalateToHuman)
	app.Post("/resolve_human_task", toolLimiter, actionHandler.ResolveHumanTask)

	// Administration and dashboard
	adminLimiter := middleware.AdminRateLimiter(rateLimitConfig)
	app.Post("/import_documents", adminLimiter, knowledgeHandler.Import)
	app.Get("/list_docs", adminLimiter, knowledgeHandler.ListDocs)
	app.Get("/dashboard/stats", adminLimiter, dashboardHandler.Stats)

	log.Printf("✅ Server ready on port %s", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("🕐 Background jobs: backend health (%s)", cfg.HealthCheckCron)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 Shutting down server...")

		// Stop background jobs and the registry watcher
		if err := jobScheduler.Stop(); err != nil {
			log.Printf("⚠️ Error stopping scheduler: %v", err)
		}
		cancel()

		// Shutdown Fiber
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}

	// Let in-flight decision appends finish before the stores close
	drained := make(chan struct{})
	go func() {
		auditService.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		log.Println("✅ Decision log drained")
	case <-time.After(auditDrainTimeout):
		log.Println("⚠️ Timed out waiting for decision log appends")
	}
}

// loadEnvironment loads .env files (ignoring a missing one), then initializes
// structured logging so ENVIRONMENT may come from .env
func loadEnvironment(filenames ...string) {
	if err := godotenv.Load(filenames...); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// JSON in production, text in dev
	logging.Init()
}
