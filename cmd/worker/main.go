package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aidoc/backend-go/app/bootstrap"
	"github.com/aidoc/backend-go/internal/logger"
)

// 摄取worker进程：从任务队列消费文档摄取任务，
// 与请求处理路径完全解耦。
func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap worker: %v", err)
	}
	defer app.Shutdown()

	if err := app.StartWorker(); err != nil {
		log.Fatalf("failed to start ingestion worker: %v", err)
	}

	logger.Info("🚀 Ingestion worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Ingestion worker shutting down")
}
