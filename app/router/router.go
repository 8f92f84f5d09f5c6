package router

import (
	"github.com/aidoc/backend-go/app/controllers"
	"github.com/aidoc/backend-go/internal/config"
	"github.com/aidoc/backend-go/internal/services"
	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Init registers all routes. Must be called after config is loaded.
func Init(docService *services.DocumentService, askService *services.AskService) {
	web.Router("/health", &controllers.HealthController{}, "get:Health")

	docController := controllers.NewDocumentController(docService)
	web.Router("/upload", docController, "post:Upload")
	web.Router("/documents", docController, "get:List")
	web.Router("/documents/:document_id", docController, "delete:Delete")
	web.Router("/tasks/:task_id", docController, "get:TaskStatus")

	askController := controllers.NewAskController(askService)
	web.Router("/ask", askController, "post:Ask")

	if config.GetAppConfig().Prometheus.Enabled {
		web.Handler("/metrics", promhttp.Handler())
	}
}
