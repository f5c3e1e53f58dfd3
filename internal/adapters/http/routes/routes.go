package routes

import (
	"time"

	"schoolhub/internal/adapters/http/handlers"
	"schoolhub/internal/adapters/http/middleware"
	"schoolhub/internal/adapters/persistence/repositories"
	"schoolhub/internal/config"
	"schoolhub/internal/core/services"
	"schoolhub/internal/pkg/metrics"
	"schoolhub/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// masterCacheTTL is how long clients may cache master data
const masterCacheTTL = 10 * time.Minute

// Setup configures all routes for the application and returns the scheduler wired to
// the same services
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config, m *metrics.Metrics) *services.CronService {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	masterRepo := repositories.NewMasterRepository(db)
	assetRepo := repositories.NewAssetRepository(db)
	assetTxRepo := repositories.NewAssetTransactionRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	loanRepo := repositories.NewBookLoanRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo)
	assetService := services.NewAssetService(db, assetRepo, assetTxRepo, masterRepo, userRepo, cfg.Assets, m)
	loanService := services.NewLoanService(db, bookRepo, loanRepo, userRepo, cfg.Library, m)
	dashboardService := services.NewDashboardService(db)
	cronService := services.NewCronService(assetService, loanService, authService, cfg.Cron, m)

	// Initialize handlers
	v := validation.New()
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, userService, cfg, v)
	userHandler := handlers.NewUserHandler(userService, v)
	masterHandler := handlers.NewMasterHandler(masterRepo, v)
	assetHandler := handlers.NewAssetHandler(assetService, v)
	loanHandler := handlers.NewLoanHandler(loanService, v)
	bookHandler := handlers.NewBookHandler(loanService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	setupAuthRoutes(apiV1.Group("/auth"), authHandler, cfg)

	auth := middleware.AuthMiddleware(cfg)

	userRoutes := apiV1.Group("/users", auth)
	setupUserRoutes(userRoutes, userHandler)

	masterRoutes := apiV1.Group("/master", auth)
	setupMasterRoutes(masterRoutes, masterHandler)

	assetRoutes := apiV1.Group("/assets", auth, middleware.NoCacheHeaders(), middleware.AssetManagers())
	setupAssetRoutes(assetRoutes, assetHandler)

	loanRoutes := apiV1.Group("/loans", auth, middleware.NoCacheHeaders())
	setupLoanRoutes(loanRoutes, loanHandler)

	bookRoutes := apiV1.Group("/books", auth)
	setupBookRoutes(bookRoutes, bookHandler)

	dashboardRoutes := apiV1.Group("/dashboard", auth, middleware.PrivateCacheHeaders(time.Minute))
	setupDashboardRoutes(dashboardRoutes, dashboardHandler)

	return cronService
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", middleware.AuthRateLimiter(), handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
	router.Put("/password", middleware.AuthMiddleware(cfg), handler.ChangePassword)
}

// setupUserRoutes configures user routes. Staff roles read users to pick custodians
// and borrowers; only admins change them.
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", middleware.Staff(), handler.ListUsers)
	router.Get("/:id", middleware.Staff(), handler.GetUser)

	admin := router.Group("", middleware.AdminOnly())
	admin.Post("/", handler.CreateUser)
	admin.Put("/:id/role", handler.SetUserRole)
	admin.Put("/:id/active", handler.SetUserActive)
}

// setupMasterRoutes configures master data routes. Reads are open to every
// authenticated user; writes are Admin only.
func setupMasterRoutes(router fiber.Router, handler *handlers.MasterHandler) {
	cache := middleware.MasterDataCache(masterCacheTTL)

	router.Get("/campuses", cache, handler.ListCampuses)
	router.Get("/buildings", cache, handler.ListBuildings)
	router.Get("/departments", cache, handler.ListDepartments)
	router.Get("/rooms", cache, handler.ListRooms)
	router.Get("/categories", cache, handler.ListCategories)

	admin := router.Group("", middleware.AdminOnly())
	admin.Post("/campuses", handler.CreateCampus)
	admin.Post("/buildings", handler.CreateBuilding)
	admin.Post("/departments", handler.CreateDepartment)
	admin.Post("/rooms", handler.CreateRoom)
	admin.Post("/categories", handler.CreateCategory)
}

// setupAssetRoutes configures asset lifecycle routes (Admin/Staff)
func setupAssetRoutes(router fiber.Router, handler *handlers.AssetHandler) {
	router.Post("/", handler.Register)
	router.Get("/", handler.List)
	router.Get("/audit", middleware.AdminOnly(), handler.Audit)
	router.Get("/:id", handler.GetByID)
	router.Get("/:id/history", handler.GetHistory)
	router.Get("/:id/verify", handler.Verify)

	router.Post("/:id/receive", handler.Receive)
	router.Post("/:id/allocate", handler.Allocate)
	router.Post("/:id/transfer", handler.Transfer)
	router.Post("/:id/return", handler.Return)
	router.Post("/:id/maintenance/start", handler.StartMaintenance)
	router.Post("/:id/maintenance/end", handler.EndMaintenance)
	router.Post("/:id/dispose", handler.Dispose)
	router.Post("/:id/report", middleware.AdminOnly(), handler.Report)
}

// setupLoanRoutes configures loan routes
func setupLoanRoutes(router fiber.Router, handler *handlers.LoanHandler) {
	// Any authenticated user sees their own loans
	router.Get("/my", handler.My)

	librarian := router.Group("", middleware.Librarians())
	librarian.Post("/", handler.Issue)
	librarian.Get("/", handler.List)
	librarian.Get("/overdue", handler.Overdue)
	librarian.Get("/:id", handler.GetByID)
	librarian.Put("/:id/return", handler.Return)
	librarian.Put("/:id/cancel", handler.Cancel)
}

// setupBookRoutes configures catalog routes
func setupBookRoutes(router fiber.Router, handler *handlers.BookHandler) {
	router.Get("/", handler.List)
	router.Get("/:id", handler.GetByID)
	router.Get("/:id/loans", middleware.Librarians(), handler.Loans)
}

// setupDashboardRoutes configures dashboard routes
func setupDashboardRoutes(router fiber.Router, handler *handlers.DashboardHandler) {
	router.Get("/", handler.GetMyDashboard)
	router.Get("/user", handler.GetUserDashboard)
	router.Get("/admin", middleware.Staff(), handler.GetAdminDashboard)
}
