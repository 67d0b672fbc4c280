package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/plevandm/repairhub-backend/internal/config"
	"github.com/plevandm/repairhub-backend/internal/db"
	httpHandlers "github.com/plevandm/repairhub-backend/internal/http/handlers"
	httpRouter "github.com/plevandm/repairhub-backend/internal/http/router"
	"github.com/plevandm/repairhub-backend/internal/logger"
	"github.com/plevandm/repairhub-backend/internal/repository"
	"github.com/plevandm/repairhub-backend/internal/scheduler"
	"github.com/plevandm/repairhub-backend/internal/service"
	"github.com/plevandm/repairhub-backend/internal/storage"
	"github.com/plevandm/repairhub-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
	}
	logger.Init(logLevel, cfg.Env == "development")

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	evidenceStorage, err := storage.NewEvidenceStorage(cfg.EvidencePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	orderRepo := repository.NewOrderRepository(dbConn)
	proposalRepo := repository.NewProposalRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	historyRepo := repository.NewOrderHistoryRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	// Сервисы. Уведомления идут через NotificationService: он
	// сохраняет событие в ленту и пробрасывает его в хаб.
	notificationService := service.NewNotificationService(notificationRepo)
	notificationService.SetHub(hub)

	authService := service.NewAuthService(userRepo, tokenManager)

	orderService := service.NewOrderService(orderRepo, historyRepo)
	orderService.SetHub(notificationService)

	proposalService := service.NewProposalService(proposalRepo, orderRepo, orderService, historyRepo, cfg.AcceptFollowUp)
	proposalService.SetHub(notificationService)

	escrowService := service.NewEscrowService(orderRepo, disputeRepo, paymentRepo, userRepo, historyRepo)
	escrowService.SetHub(notificationService)

	// Фоновые политики: автовыплата и автозакрытие споров.
	sched := scheduler.New(escrowService, cfg.AutoReleaseAfter, cfg.DisputeDeadline)
	if err := sched.Start(cfg.SchedulerSpec); err != nil {
		log.Fatalf("main: не удалось запустить планировщик: %v", err)
	}
	defer sched.Stop()

	// HTTP хэндлеры и роутер.
	engine := httpRouter.Setup(cfg, httpRouter.Handlers{
		Auth:         httpHandlers.NewAuthHandler(authService),
		Order:        httpHandlers.NewOrderHandler(orderService, historyRepo),
		Proposal:     httpHandlers.NewProposalHandler(proposalService),
		Payment:      httpHandlers.NewPaymentHandler(escrowService),
		Dispute:      httpHandlers.NewDisputeHandler(escrowService, evidenceStorage),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		WS:           httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:       httpHandlers.NewHealthHandler(dbConn),
	}, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
