package http

import (
	"github.com/gin-gonic/gin"

	"docqa/internal/bootstrap"
	"docqa/internal/transport/http/handler"
	"docqa/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)

	probes := make([]handler.Probe, 0, len(app.Probes()))
	for _, p := range app.Probes() {
		probes = append(probes, handler.Probe{Name: p.Name, Check: p.Check})
	}
	health := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, probes)

	return newEngine(health, app.RAG, app.RAG, []string{"*"})
}

func newEngine(health *handler.HealthHandler, docs handler.DocumentService, ask handler.AskService, origins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS(origins))
	router.MaxMultipartMemory = 32 << 20

	documentHandler := handler.NewDocumentHandler(docs)
	askHandler := handler.NewAskHandler(ask)

	router.GET("/", health.Root)
	router.GET("/healthz", health.Check)

	for _, path := range []string{"/upload", "/upload/"} {
		router.POST(path, documentHandler.Upload)
	}
	for _, path := range []string{"/ask", "/ask/"} {
		router.POST(path, askHandler.Ask)
	}
	router.GET("/files", documentHandler.List)
	router.GET("/files/:id", documentHandler.Get)
	router.GET("/files/:id/events", documentHandler.Events)

	return router
}
