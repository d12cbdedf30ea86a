package main

import (
	"os"
	"os/signal"
	"syscall"

	"fpiersk/config"
	"fpiersk/internal/relay"
	"fpiersk/pkg/logger"

	"go.uber.org/zap"
)

// 转发服务独立部署：不依赖用户表存储，也不解析转发内容
func main() {
	cfg := config.LoadConfig()

	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== Fpiersk转发服务启动 ===",
		zap.String("port", cfg.Relay.Port),
		zap.Duration("write_timeout", cfg.Relay.WriteTimeout),
	)

	server := relay.NewServer(":"+cfg.Relay.Port, cfg.Relay.WriteTimeout)
	if err := server.Start(); err != nil {
		log.Fatal("转发服务启动失败", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭转发服务...")
	server.Stop()
	log.Info("转发服务已安全关闭")
}
