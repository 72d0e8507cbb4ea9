package main

import (
	"tradegate/config"
	"tradegate/internal/redis"
	"tradegate/internal/server"
	"tradegate/internal/status"
	"tradegate/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)
	defer l.Logger.Sync()

	redis.Initialize(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redis.Close()

	statusSource := status.NewRedisAggregator(redis.GetClient())

	hub := server.NewHub(statusSource, cfg.StatusInterval)
	go hub.Run()

	wsHandler := server.NewWebSocketHandler(hub, statusSource, cfg)

	srv := server.New(cfg, l)
	srv.SetupRoutes(wsHandler, statusSource)

	if err := srv.Start(); err != nil {
		l.Errorf("server exited with error: %s", err)
	}

	hub.Stop()
}
