package app

import (
	"context"
	"helpmarket_backend/internal/config"
	"helpmarket_backend/internal/controller"
	"helpmarket_backend/internal/repository"
	"helpmarket_backend/internal/service"
	"helpmarket_backend/internal/util"
	"helpmarket_backend/pkg/configwatcher"
	"helpmarket_backend/pkg/database"
	"helpmarket_backend/pkg/logger"
	"helpmarket_backend/pkg/monitoring"
	"helpmarket_backend/pkg/security"
	"helpmarket_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultConfigDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Zones           *util.ZoneHolder
	Origins         *security.OriginSet
	services        *services
	configCallbacks []func(*config.Config)
	tracer          interface{ Shutdown(context.Context) error }
	done            chan struct{}
}

type repositories struct {
	user         *repository.UserRepository
	request      *repository.HelpRequestRepository
	application  *repository.ApplicationRepository
	message      *repository.MessageRepository
	review       *repository.ReviewRepository
	notification *repository.NotificationRepository
	report       *repository.ReportRepository
}

type services struct {
	auth         *service.AuthService
	user         *service.UserService
	storage      *service.StorageService
	notification *service.NotificationService
	request      *service.RequestService
	application  *service.ApplicationService
	message      *service.MessageService
	review       *service.ReviewService
	report       *service.ReportService
	hub          *service.LiveHub
}

type controllers struct {
	auth         *controller.AuthController
	user         *controller.UserController
	request      *controller.RequestController
	application  *controller.ApplicationController
	message      *controller.MessageController
	review       *controller.ReviewController
	report       *controller.ReportController
	notification *controller.NotificationController
	upload       *controller.UploadController
	live         *controller.LiveController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		request:      repository.NewHelpRequestRepository(db),
		application:  repository.NewApplicationRepository(db),
		message:      repository.NewMessageRepository(db),
		review:       repository.NewReviewRepository(db),
		notification: repository.NewNotificationRepository(db),
		report:       repository.NewReportRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	tr, err := util.NewTranslator(cfg.I18n.DefaultLanguage)
	if err != nil {
		logger.Log.Fatal("Failed to load translations", zap.Error(err))
	}

	s.hub = service.NewLiveHub(rdb, a.Origins)
	participants := service.NewParticipantCache(rdb)

	s.storage = service.NewStorageService(cfg)
	s.notification = service.NewNotificationService(repos.notification, repos.user, s.hub, service.NewMailer(cfg.Mail), tr)
	s.auth = service.NewAuthService(repos.user, cfg, a.Zones, tr)
	s.user = service.NewUserService(repos.user, s.notification, tr)
	s.user.Presence = s.hub
	s.request = service.NewRequestService(repos.request, repos.application, s.notification, s.hub, a.Zones)
	s.application = service.NewApplicationService(repos.application, repos.user, s.request, s.notification, s.hub, participants, tr)
	s.message = service.NewMessageService(repos.message, repos.application, repos.user, s.request, s.notification, s.hub, participants)
	s.review = service.NewReviewService(repos.review, repos.application, repos.user, s.request, s.notification)
	s.report = service.NewReportService(db, repos.report, repos.user, repos.request, s.request, s.notification)

	// 加入求助房间与读取聊天使用同一判定
	s.hub.Authorize = s.message.AuthorizeRoom
	go s.hub.Run()

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth, s.user),
		user:         controller.NewUserController(s.user),
		request:      controller.NewRequestController(s.request),
		application:  controller.NewApplicationController(s.application),
		message:      controller.NewMessageController(s.message),
		review:       controller.NewReviewController(s.review),
		report:       controller.NewReportController(s.report),
		notification: controller.NewNotificationController(s.notification),
		upload:       controller.NewUploadController(s.storage),
		live:         controller.NewLiveController(s.hub),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(a.Origins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// watchConfig 配置文件变更时热替换服务区域与 CORS 白名单
func (a *App) watchConfig() {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.Zones.Store(util.NewZone(cfg.Zone))
		logger.Log.Info("Service zone updated",
			zap.String("city", cfg.Zone.City),
			zap.Float64("radiusKm", cfg.Zone.RadiusKm))
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.Origins.Update(cfg.CORS.AllowedOrigins)
	})

	dir := a.Config.Dir
	if dir == "" {
		dir = defaultConfigDir
	}
	go configwatcher.WatchConfig(filepath.Join(dir, "config.yaml"), func(cfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(cfg)
		}
	}, a.done)
}

func initSentry(cfg *config.Config) {
	if cfg.Sentry.DSN == "" {
		return
	}
	env := cfg.Sentry.Environment
	if env == "" {
		env = cfg.Server.Mode
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		AttachStacktrace: true,
		Environment:      env,
	}); err != nil {
		logger.Log.Error("Failed to initialize sentry", zap.Error(err))
		return
	}
	logger.Log.Info("Sentry initialized", zap.String("environment", env))
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")
	initSentry(cfg)

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	app := &App{
		Config:  cfg,
		DB:      db,
		Zones:   util.NewZoneHolder(util.NewZone(cfg.Zone)),
		Origins: security.NewOriginSet(cfg.CORS.AllowedOrigins),
		done:    make(chan struct{}),
	}

	if cfg.MigrateOnly {
		return app
	}

	// Redis 只承担跨实例推送与缓存，不可用时单实例降级运行
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, live updates limited to this instance", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing, cfg.Server.Mode)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.watchConfig()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")
	close(a.done)

	// 清理 WebSocket连接和Redis在线状态
	if a.services != nil && a.services.hub != nil {
		a.services.hub.Stop()
	}

	// 关闭服务
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	sentry.Flush(2 * time.Second)

	logger.Log.Info("Server exiting")
}
