package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"regportal/internal/app"
	"regportal/internal/config"
	"regportal/internal/server"
	"regportal/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	appCore, err := app.New(app.Config{
		DatabaseURL:   cfg.DatabaseURL,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		SessionSecret: cfg.SessionSecret,
		SessionTTL:    sessionTTL,
		UploadDir:     cfg.UploadDir,
		Minio:         cfg.Minio,
		PageSize:      cfg.PageSize,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	uploadDir := ""
	if cfg.Minio.Endpoint == "" {
		uploadDir = cfg.UploadDir
	}
	httpServer, err := server.New(server.Config{
		App:            appCore,
		SessionTTL:     sessionTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
		UploadDir:      uploadDir,
		Production:     cfg.IsProduction(),
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
