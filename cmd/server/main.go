package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dias221467/agency-portal/internal/config"
	"github.com/Dias221467/agency-portal/internal/database"
	"github.com/Dias221467/agency-portal/internal/handlers"
	"github.com/Dias221467/agency-portal/internal/jobs"
	"github.com/Dias221467/agency-portal/internal/notify"
	"github.com/Dias221467/agency-portal/internal/realtime"
	"github.com/Dias221467/agency-portal/internal/repository"
	"github.com/Dias221467/agency-portal/internal/scheduler"
	"github.com/Dias221467/agency-portal/internal/services"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/Dias221467/agency-portal/pkg/email"
	"github.com/Dias221467/agency-portal/pkg/logger"
	"github.com/rs/cors"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration from .env file and the environment
	cfg := config.LoadConfig()

	logger.InitLogger(cfg.LogLevel)
	logger.Log.Info("Logger initialized")

	// --- Remote tables ---
	remote, disconnect := openRemote(cfg)
	defer disconnect()

	store := state.NewStore(state.State{})
	syncService := services.NewSyncService(remote, store)
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	if err := syncService.Reload(startupCtx); err != nil {
		logger.Log.WithError(err).Fatal("Initial state load failed")
	}
	cancelStartup()

	// --- Services ---
	hub := realtime.NewHub(store)
	mutator := services.NewMutator(remote, store, notify.NewRouter(), hub)
	mailer := email.NewMailer(cfg.SMTP)
	if mailer.Enabled() {
		mutator.OnCommit(services.InvoiceSentMailer(mailer))
	} else {
		logger.Log.Info("SMTP not configured, invoice emails disabled")
	}

	userService := services.NewUserService(store, mutator, cfg)
	chatService := services.NewChatService(store, mutator)
	notificationService := services.NewNotificationService(store, mutator)
	activityService := services.NewActivityService(remote, store)

	if err := userService.EnsureAdmin(context.Background(), cfg.AdminEmail); err != nil {
		logger.Log.WithError(err).Fatal("Admin bootstrap failed")
	}

	// --- Background work ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge := realtime.NewBridge(remote.ChatInserts, store, hub)
	bridgeDone := make(chan struct{})
	go func() {
		defer close(bridgeDone)
		if err := bridge.Run(ctx); err != nil {
			logger.Log.WithError(err).Error("Realtime bridge exited")
		}
	}()

	sweeper := jobs.NewInvoiceSweeper(store, mutator)
	cron, err := scheduler.Start(
		scheduler.Job{Name: "reload", Spec: cfg.ReloadSchedule, Run: syncService.Reload},
		scheduler.Job{Name: "invoice-sweep", Spec: cfg.SweepSchedule, Run: func(ctx context.Context) error {
			_, err := sweeper.RunSweep(ctx)
			return err
		}},
	)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to start scheduler")
	}

	// --- HTTP ---
	router := handlers.NewRouter(handlers.Deps{
		Config:        cfg,
		Store:         store,
		Mutator:       mutator,
		Users:         userService,
		Chat:          chatService,
		Notifications: notificationService,
		Activity:      activityService,
		Hub:           hub,
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.WithField("port", cfg.Port).Info("Server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.WithError(err).Error("Server stopped")
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	hub.Close()
	<-cron.Stop().Done()
	<-bridgeDone
	mutator.Flush()

	logger.Log.Info("Server exited properly")
}

// openRemote binds the remote tables to the configured driver.
func openRemote(cfg *config.Config) (*repository.Remote, func()) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Log.Warn("Using the in-memory store, data is lost on restart")
		return repository.NewMemoryRemote(), func() {}
	}

	db, err := database.ConnectDB(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Database connection error")
	}
	return repository.NewMongoRemote(db), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(ctx); err != nil {
			logger.Log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}
}
