package main

import (
	"log"
	"strconv"

	"github.com/aidoc/backend-go/app/bootstrap"
	"github.com/aidoc/backend-go/app/router"
	"github.com/aidoc/backend-go/internal/config"
	"github.com/aidoc/backend-go/internal/di"
	"github.com/aidoc/backend-go/internal/logger"
	"github.com/aidoc/backend-go/internal/services"
	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	err = di.Invoke(func(docService *services.DocumentService, askService *services.AskService) {
		router.Init(docService, askService)
	})
	if err != nil {
		log.Fatalf("failed to wire routes: %v", err)
	}

	web.BConfig.AppName = "AI Document Analyzer"
	web.BConfig.CopyRequestBody = true
	if p, err := strconv.Atoi(config.AppConfig.Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = p
	}

	logger.Info("🚀 Starting API server", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
