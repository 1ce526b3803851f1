package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tuina_clinic_backend/internal/config"
	"tuina_clinic_backend/internal/database"
	"tuina_clinic_backend/internal/metrics"
	"tuina_clinic_backend/internal/router"
	"tuina_clinic_backend/internal/scheduler"
	"tuina_clinic_backend/internal/services"
	"tuina_clinic_backend/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Logger
	utils.InitLogger(cfg.App.LogLevel, cfg.App.Environment)
	utils.SetJWTSecret(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := database.Open(ctx, cfg.Database)
	cancel()
	if err != nil {
		utils.LogError(err, "Failed to connect to database")
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	utils.LogInfo("Database initialized", map[string]interface{}{"host": cfg.Database.Host, "name": cfg.Database.DBName})

	if cfg.Database.RunMigrations {
		if err := database.Migrate(db, cfg.Database.MigrationsPath); err != nil {
			utils.LogError(err, "Failed to apply migrations")
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	m := metrics.New()
	svc := router.NewServices(db, m, services.ClockIn(cfg.Location()))
	engine := router.New(cfg, svc, m)

	var sweeper *scheduler.ExpirySweeper
	if cfg.Sweeper.Enabled {
		sweeper = scheduler.NewExpirySweeper(svc.Membership, m, cfg.Location())
		if err := sweeper.Start(cfg.Sweeper.Cron); err != nil {
			utils.LogError(err, "Failed to start expiry sweeper")
			log.Fatalf("Failed to start expiry sweeper: %v", err)
		}
		// Catch up on anything that lapsed while the server was down.
		go sweeper.RunOnce()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.App.Port, "env": cfg.App.Environment})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.LogError(err, "Failed to start server")
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.LogInfo("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if sweeper != nil {
		sweeper.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError(err, "Server forced to shut down")
	}
	utils.LogInfo("Server exited")
}
