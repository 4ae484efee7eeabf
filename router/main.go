package router

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/futureguard/api/database"
	"github.com/futureguard/api/handlers"
	admin_handlers "github.com/futureguard/api/handlers/admin"
	aggregation_handlers "github.com/futureguard/api/handlers/aggregation"
	auth_handlers "github.com/futureguard/api/handlers/auth"
	institute_handlers "github.com/futureguard/api/handlers/institute"
	mapping_handlers "github.com/futureguard/api/handlers/mapping"
	upload_handlers "github.com/futureguard/api/handlers/upload"
	"github.com/futureguard/api/model"
	"github.com/futureguard/api/services"
	"github.com/futureguard/api/utils/auth"
	"github.com/futureguard/api/utils/cache"
	"github.com/futureguard/api/utils/middleware"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, store database.Storage) {
	// Get JWT secret from environment
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "futureguard-api"
	}

	jwtConfig := auth.JWTConfig{
		Secret:        jwtSecret,
		Expiry:        24 * time.Hour,     // Access token expires in 24 hours
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token expires in 7 days
		Issuer:        jwtIssuer,
	}
	jwtManager := auth.NewJWTManager(jwtConfig)

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Initialize Redis cache for brute force protection and catalog caching
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Brute force protection and catalog caching will be disabled.", err)
	}

	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	// Initialize auth middleware with DB for blacklist checking
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Services
	aggregationService := services.NewAggregationService(db)
	userService := services.NewUserService(db, aggregationService)
	catalogService := services.NewCatalogService(db, redisCache)
	matchThreshold := services.DefaultMatchThreshold
	if raw := os.Getenv("MATCH_THRESHOLD"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			matchThreshold = v
		}
	}
	headerMatcher := services.NewHeaderMatcher(matchThreshold)
	mappingService := services.NewMappingService(db, catalogService, headerMatcher)
	scoringClient := services.NewScoringClient()
	reconcileService := services.NewReconcileService(db, aggregationService)
	uploadService := services.NewUploadService(catalogService, mappingService, scoringClient, reconcileService)

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(db, userService, jwtManager, bruteForceProtection)
	userHandler := admin_handlers.NewUserHandler(userService, aggregationService)
	instituteHandler := institute_handlers.NewInstituteHandler(userService)
	mappingHandler := mapping_handlers.NewMappingHandler(catalogService, mappingService)
	uploadHandler := upload_handlers.NewUploadHandler(uploadService)
	counterHandler := aggregation_handlers.NewCounterHandler(aggregationService)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health endpoints (public)
	app.Get("/ping", handlers.HandlePing)
	app.Get("/health", func(c *fiber.Ctx) error {
		return handlers.HandleCheckHealth(c, store, scoringClient)
	})

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")

	// Login with brute force protection
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}
	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Profile routes (protected)
	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.GetProfile)

	// Institute provisioning (superadmin only)
	institutes := api.Group("/institutes", authMiddleware.Required(), authMiddleware.RequireRole(model.RoleSuperAdmin))
	institutes.Get("/", instituteHandler.ListInstitutes)
	institutes.Get("/:id", instituteHandler.GetInstitute)
	institutes.Post("/", instituteHandler.CreateInstitute)
	institutes.Delete("/:id", instituteHandler.DeleteInstitute)

	// User management (admin and superadmin)
	users := api.Group("/users", authMiddleware.Required(), authMiddleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin))
	users.Post("/mentors", userHandler.CreateMentor)
	users.Get("/mentors", userHandler.ListMentors)
	users.Get("/:id", userHandler.GetUser)
	users.Patch("/:id", userHandler.UpdateUser)
	users.Patch("/:id/status", userHandler.SetStatus)
	users.Delete("/:id", userHandler.DeleteUser)

	// Field catalog (any authenticated role)
	api.Get("/catalog", authMiddleware.Required(), mappingHandler.GetCatalog)

	// Column mappings, admin scope. The superadmin uses the institute-scoped
	// variants below.
	mappings := api.Group("/mappings", authMiddleware.Required(), authMiddleware.RequireRole(model.RoleAdmin))
	mappings.Post("/draft", mappingHandler.BuildDraft)
	mappings.Get("/", mappingHandler.GetMapping)
	mappings.Put("/", mappingHandler.SaveMapping)
	mappings.Patch("/lock", mappingHandler.SetLock)

	instMappings := api.Group("/institutes/:institute_id/mappings", authMiddleware.Required(), authMiddleware.RequireRole(model.RoleSuperAdmin))
	instMappings.Post("/draft", mappingHandler.BuildDraft)
	instMappings.Get("/", mappingHandler.GetMapping)
	instMappings.Put("/", mappingHandler.SaveMapping)
	instMappings.Patch("/lock", mappingHandler.SetLock)

	// Roster uploads (mentor only)
	api.Post("/uploads", authMiddleware.Required(), authMiddleware.RequireRole(model.RoleMentor), uploadHandler.Upload)

	// Dashboard counters
	counters := api.Group("/counters", authMiddleware.Required())
	counters.Get("/", counterHandler.GetCounters)
	counters.Get("/:id", authMiddleware.RequireRole(model.RoleAdmin, model.RoleSuperAdmin), counterHandler.GetUserCounters)
}
