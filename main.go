package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dbadminapi/bootstrap"
	"dbadminapi/config"
	"dbadminapi/controllers"
	_ "dbadminapi/docs"
	"dbadminapi/pkg/logger"
	"dbadminapi/repository"
	_ "dbadminapi/services/agent"
	"dbadminapi/services/analytics"
	"dbadminapi/services/connection"
	"dbadminapi/services/dao"
	_ "dbadminapi/services/dao/relational"
	"dbadminapi/services/encryption"
	"dbadminapi/services/metadata"
	"dbadminapi/services/rows"
	"dbadminapi/services/settings"
	"dbadminapi/utils"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           dbadminapi
// @version         1.0
// @description     Database admin panel API

// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// 1) Load config
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("LoadConfig error: %v", err)
	}

	// 2) Init structured logger with config
	logLevel := logger.ParseLogLevel(config.Cfg.LogLevel)
	logger.InitWithConfig(
		config.Cfg.LogFile,
		logLevel,
		config.Cfg.LogMaxSize,
		config.Cfg.LogMaxBackups,
		config.Cfg.LogMaxAge,
		config.Cfg.LogCompress,
	)
	logger.Infof("Starting dbadminapi with log level: %s", config.Cfg.LogLevel)

	// 3) Connect DB (GORM)
	if err := config.ConnectDB(); err != nil {
		log.Fatalf("ConnectDB error: %v", err)
	}
	if config.DB == nil {
		log.Fatal("Database is nil after ConnectDB")
	}
	if err := bootstrap.Migrate(config.DB); err != nil {
		log.Fatalf("Migrate error: %v", err)
	}

	enc, err := encryption.New(config.Cfg.PrivateKey)
	if err != nil {
		log.Fatalf("Encryption setup error: %v", err)
	}

	// 4) Wire services
	base := repository.NewBaseRepository()
	connRepo := repository.NewConnectionRepository()
	settingsRepo := repository.NewTableSettingsRepository()
	widgetRepo := repository.NewTableWidgetRepository()

	resolver := connection.NewResolver(connRepo, repository.NewAgentRepository(), enc, base)

	controllers.SetRowService(rows.NewService(rows.Deps{
		Connections: resolver,
		Factory:     dao.DefaultRegistry,
		Metadata:    metadata.NewAggregator(settingsRepo, widgetRepo),
		Logs:        repository.NewTableLogRepository(),
		Tracker:     analytics.NewTracker(),
	}))
	controllers.SetSettingsService(settings.NewService(settings.Deps{
		Connections:  resolver,
		Factory:      dao.DefaultRegistry,
		Settings:     settingsRepo,
		CustomFields: repository.NewCustomFieldRepository(),
		Widgets:      widgetRepo,
		Begin:        base,
	}))
	controllers.SetConnectionService(resolver)
	controllers.SetConnectionTester(connection.NewTester(resolver, dao.DefaultRegistry, 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sandbox, err := bootstrap.StartSandbox(ctx, connRepo, enc)
	if err != nil {
		log.Fatalf("Sandbox error: %v", err)
	}

	// 5) Setup Gin
	router := gin.Default()
	router.Use(utils.LoggerMiddleware())

	v1 := router.Group("/api")
	v1.Use(utils.AuthMiddleware([]byte(config.Cfg.JWTSecret)))
	{
		controllers.RegisterRowRoutes(v1)
		controllers.RegisterSettingsRoutes(v1)
		controllers.RegisterConnectionRoutes(v1)
	}

	// 6) Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 7) Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Infof("Received shutdown signal, stopping sandbox...")

		cancel()
		if sandbox != nil {
			if err := sandbox.Close(); err != nil {
				logger.Errorf("Sandbox shutdown failed: %v", err)
			}
		}

		logger.Infof("Application shutdown complete")
		os.Exit(0)
	}()

	// 8) Run
	logger.Infof("Starting server at port %s", config.Cfg.Port)
	if err := router.Run("0.0.0.0:" + config.Cfg.Port); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
}
