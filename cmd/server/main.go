package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telechat/internal/config"
	"telechat/internal/routes"
	"telechat/internal/websocket"
	"telechat/pkg/database"
	"telechat/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	logger.Init()

	cfg := config.Load()

	if _, err := database.Connect(cfg); err != nil {
		logger.Fatal("Failed to connect to database: ", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	routes.SetupRoutes(router, hub, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown: ", err)
	}

	if err := database.Disconnect(ctx); err != nil {
		logger.Error("Database disconnect failed: ", err)
	}

	logger.Info("Server stopped")
}
