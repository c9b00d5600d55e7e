package appServer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lapply/lapply/config"
	repository "github.com/lapply/lapply/internal/database/postgres"
	"github.com/lapply/lapply/internal/service"
	"github.com/lapply/lapply/internal/transport"
	"github.com/lapply/lapply/internal/worker"

	"github.com/lapply/lapply/pkg/line"
	"github.com/lapply/lapply/pkg/postgres"
	"github.com/lapply/lapply/pkg/queue"
	"github.com/lapply/lapply/pkg/redis"
	"github.com/lapply/lapply/pkg/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	applicationRepo := repository.NewApplicationRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	stepRepo := repository.NewStepDeliveryRepository(db)
	eventRepo := repository.NewEventRepository(db)
	organizationRepo := repository.NewOrganizationRepository(db)

	// Initialize LINE client
	lineClient := line.NewClient(cfg.Line.BaseURL)

	var redisQueue queue.Queue
	var taskPublisher service.TaskPublisher

	if cfg.Redis.URL != "" {
		queueConfig := queue.DefaultRedisQueueConfig()
		queueConfig.Addr = cfg.Redis.URL
		queueConfig.Password = cfg.Redis.Password
		queueConfig.DB = cfg.Redis.DB

		redisClient := redis.NewRedisClient(&cfg.Redis)
		defer redisClient.Close()
		dlqHandler := queue.NewDefaultDLQHandler(redisClient, queueConfig.DLQ, queueConfig.MainQueue)

		redisQueue, err = queue.NewRedisQueue(queueConfig, nil, dlqHandler)
		if err != nil {
			logrus.Errorf("Failed to initialize Redis queue: %v. Continuing without queue...", err)
		} else {
			logrus.Info("Redis queue initialized")
			taskPublisher = service.NewQueueAdapter(redisQueue)
			defer redisQueue.Close()
		}
	}

	// Initialize services
	cancellationService := service.NewCancellationService(applicationRepo, reminderRepo, stepRepo, eventRepo, taskPublisher)
	queryService := service.NewApplicationQueryService(applicationRepo, eventRepo)
	notificationService := service.NewNotificationService(applicationRepo, reminderRepo, stepRepo, organizationRepo, lineClient, cfg.Worker.BatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start queue consumer
	if redisQueue != nil {
		taskWorker := worker.NewTaskWorker(notificationService)
		if err := redisQueue.Subscribe(ctx, taskWorker.HandleTask); err != nil {
			logrus.Errorf("Queue subscriber error: %v", err)
		} else {
			logrus.Info("Queue subscriber started")
		}
	}

	// Start notification dispatch scheduler
	dispatchInterval := cfg.Worker.DispatchInterval
	if dispatchInterval <= 0 {
		dispatchInterval = time.Minute
	}
	dispatchScheduler := scheduler.NewScheduler(notificationService, dispatchInterval)
	go dispatchScheduler.Start(ctx)
	logrus.Info("Dispatch scheduler started")

	// Start repair worker
	repairInterval := cfg.Worker.RepairInterval
	if repairInterval <= 0 {
		repairInterval = 30 * time.Minute
	}
	repairWorker := worker.NewRepairWorker(applicationRepo, cancellationService, repairInterval, cfg.Worker.BatchSize)
	go repairWorker.Start(ctx)
	logrus.Info("Repair worker started")

	// Initialize handlers
	cancellationHandler := transport.NewCancellationHandler(cancellationService)
	applicationHandler := transport.NewApplicationHandler(queryService)
	webhookHandler := transport.NewLineWebhookHandler(
		cfg.Line.ChannelSecret,
		cfg.Line.ChannelAccessToken,
		config.GetEnv("LAPPLY_DEFAULT_ORGANIZATION", "default"),
		queryService,
		cancellationService,
		lineClient,
	)

	// Setup HTTP server
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(cancellationHandler, applicationHandler, webhookHandler)); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print(fmt.Sprintf("App Started on port %s", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	if err := srv.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}
