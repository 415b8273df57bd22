// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"inkwell/internal/bootstrap"
	"inkwell/internal/config"
	"inkwell/internal/email"
	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	auth         *middleware.Authenticator
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager
	store        storage.ObjectStore
	sender       email.Sender

	userRepo repository.UserRepository

	postService         *service.PostService
	engagementService   *service.EngagementService
	commentService      *service.CommentService
	viewService         *service.ViewService
	bookmarkService     *service.BookmarkService
	uploadService       *service.UploadService
	subscriptionService *service.SubscriptionService
	verificationService *service.VerificationService
	messageService      *service.MessageService
	betaService         *service.BetaService
	userService         *service.UserService
	adminService        *service.AdminService
	walletService       *service.WalletService
	membershipService   *service.MembershipService
}

// Option overrides a dependency NewServerWithDeps would otherwise build from config.
type Option func(*Server)

// WithObjectStore sets the media store used for uploads.
func WithObjectStore(store storage.ObjectStore) Option {
	return func(s *Server) { s.store = store }
}

// WithEmailSender sets the transactional email sender.
func WithEmailSender(sender email.Sender) Option {
	return func(s *Server) { s.sender = sender }
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return nil, err
	}

	store, err := newObjectStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, db, rdb, WithObjectStore(store))
}

// newObjectStore returns S3 when configured. Outside production an in-memory
// store stands in so uploads work locally; production without S3 leaves
// uploads disabled.
func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.S3Enabled() {
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.PublicMediaBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		return store, nil
	}
	if cfg.IsProduction() {
		middleware.Logger.Warn("AWS_S3_BUCKET not set; uploads are disabled")
		return nil, nil
	}
	return storage.NewMemoryStore(cfg.PublicMediaBaseURL), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("inkwell-api"),
		auth:           middleware.NewAuthenticator(cfg.JWTSecret, redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sender == nil {
		s.sender = email.NewSender(cfg.ResendAPIKey, cfg.EmailFrom, middleware.Logger)
	}

	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
	}

	s.userRepo = repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	viewRepo := repository.NewViewRepository(db)
	subscriberRepo := repository.NewSubscriberRepository(db)
	betaRepo := repository.NewBetaRepository(db)

	s.userService = service.NewUserService(s.userRepo, cfg.AdminSetupSecret)
	isAdmin := s.userService.IsAdmin

	s.postService = service.NewPostService(postRepo, s.userRepo, cfg.PlatformMode, isAdmin)
	s.engagementService = service.NewEngagementService(postRepo, engagementRepo, s.notifier)
	s.commentService = service.NewCommentService(engagementRepo, postRepo, isAdmin)
	s.viewService = service.NewViewService(postRepo, viewRepo, s.featureFlags)
	s.bookmarkService = service.NewBookmarkService(repository.NewBookmarkRepository(db), postRepo)
	s.uploadService = service.NewUploadService(
		s.store,
		service.NewUploadLimiter(repository.NewUploadLimitRepository(db), cfg.MaxImageUploadsPerHour),
		cfg,
	)
	s.subscriptionService = service.NewSubscriptionService(subscriberRepo, s.sender, cfg.AppBaseURL)
	s.verificationService = service.NewVerificationService(
		s.userRepo, repository.NewVerificationTokenRepository(db), s.sender, cfg.AppBaseURL)
	s.messageService = service.NewMessageService(repository.NewMessageRepository(db), s.userRepo, s.notifier)
	s.betaService = service.NewBetaService(betaRepo, s.userRepo, s.notifier)
	s.adminService = service.NewAdminService(s.userRepo, postRepo, viewRepo, subscriberRepo, betaRepo)
	s.walletService = service.NewWalletService(s.userRepo, repository.NewWalletChallengeRepository(db), s.featureFlags)
	s.membershipService = service.NewMembershipService(repository.NewMembershipRepository(db), s.userRepo)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so short-circuited responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || middleware.RateLimitBypassed()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithAppError(c,
				models.NewRateLimitedError("Too many requests, please try again later.", time.Minute))
		},
	}))
}

// SetupRoutes configures all routes for the application. Public routes are
// registered before the authenticated group because its middleware applies
// to every /api route declared after it.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)

	api.Get("/verify-email", s.VerifyEmail)
	api.Post("/subscribe", middleware.RateLimit(s.redis, 5, time.Minute, "subscribe"), s.Subscribe)
	api.Post("/unsubscribe", s.Unsubscribe)

	api.Get("/feed", s.GetFeed)
	api.Get("/authors/:userId/posts/:slug", s.GetPostBySlug)
	api.Get("/users/:userId/posts", s.GetUserPosts)
	api.Get("/posts/:id/like", s.GetLikeStatus)
	api.Get("/posts/:id/comment", s.GetComments)
	api.Post("/posts/:id/view", s.RecordView)
	api.Post("/posts/:id/consumption", s.RecordConsumption)
	api.Get("/posts/:id", s.GetPost)
	api.Get("/creators/:id/tiers", s.ListTiers)

	// Upgrades authenticate with a single-use ticket in the query string.
	api.Get("/ws", s.auth.Required(), s.WebsocketHandler())

	protected := api.Group("", s.auth.Required())

	protected.Post("/auth/logout", s.Logout)
	protected.Get("/auth/me", s.Me)
	protected.Put("/auth/me", s.UpdateMe)
	protected.Post("/resend-verification",
		middleware.RateLimit(s.redis, 3, 10*time.Minute, "resend_verification"), s.ResendVerification)

	posts := protected.Group("/posts")
	posts.Post("/", s.CreatePost)
	posts.Post("/:id/publish", s.PublishPost)
	posts.Post("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Post("/:id/comment", s.CreateComment)
	posts.Delete("/:id/comment/:commentId", s.DeleteComment)
	posts.Get("/:id/bookmark", s.GetBookmarkStatus)
	posts.Post("/:id/bookmark", s.ToggleBookmark)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)
	protected.Get("/bookmarks", s.ListBookmarks)

	upload := protected.Group("/upload")
	upload.Post("/video/presigned", s.PresignVideoUpload)
	upload.Post("/image", s.UploadImage)
	upload.Get("/limit", s.GetUploadLimit)

	messages := protected.Group("/messages")
	messages.Get("/", s.GetInbox)
	messages.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "send_message"), s.SendMessage)
	messages.Post("/:id/respond", s.RespondToMessage)

	protected.Post("/beta/apply", s.ApplyForBeta)

	wallet := protected.Group("/wallet")
	wallet.Post("/challenge", s.IssueWalletChallenge)
	wallet.Post("/verify", middleware.RateLimit(s.redis, 10, time.Minute, "wallet_verify"), s.VerifyWallet)

	memberships := protected.Group("/memberships")
	memberships.Post("/tiers", s.CreateTier)
	memberships.Post("/tiers/:id/join", s.JoinTier)
	memberships.Delete("/tiers/:id/join", s.LeaveTier)
	protected.Get("/creator/payouts", s.GetPayouts)

	protected.Post("/ws/ticket", s.IssueWSTicket)

	// Setup must stay reachable by non-admins.
	protected.Post("/admin/setup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "admin_setup"), s.ClaimAdmin)

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/stats", s.GetAdminStats)
	admin.Get("/users", s.ListUsers)
	admin.Post("/users/:id/promote", s.PromoteToAdmin)
	admin.Post("/users/:id/demote", s.DemoteFromAdmin)
	admin.Get("/beta-applications", s.ListBetaApplications)
	admin.Post("/beta-applications/:id/approve", s.ApproveBetaApplication)
	admin.Post("/beta-applications/:id/reject", s.RejectBetaApplication)
	admin.Post("/posts/:id/recount", s.RecountPost)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":        overallStatus,
		"platform_mode": s.config.PlatformMode,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after the auth middleware so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := currentUserID(c)
		if !ok {
			return models.RespondWithAppError(c, models.NewUnauthorizedError("Authorization required"))
		}

		admin, err := s.userService.IsAdmin(c.UserContext(), userID)
		if err != nil {
			return s.respondError(c, err)
		}
		if !admin {
			return models.RespondWithAppError(c, models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

// App builds the Fiber app with middleware and routes. Start calls it; tests
// drive the returned app with app.Test.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Inkwell API",
		BodyLimit: s.bodyLimit(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// bodyLimit admits the largest image upload plus multipart overhead.
func (s *Server) bodyLimit() int {
	limit := int(s.uploadService.MaxImageBytes()) + 1<<20
	if limit < 4<<20 {
		limit = 4 << 20
	}
	return limit
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
			}
		}()
	}

	log.Printf("Server starting on port %s (platform mode %s)...", s.config.Port, s.config.PlatformMode)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down %s: %v", s.hub.Name(), err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
