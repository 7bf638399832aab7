package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-engine/internal/handler"
	"github.com/noah-isme/sma-timetable-engine/internal/middleware"
	"github.com/noah-isme/sma-timetable-engine/internal/models"
	"github.com/noah-isme/sma-timetable-engine/internal/service"
	"github.com/noah-isme/sma-timetable-engine/pkg/config"
	"github.com/noah-isme/sma-timetable-engine/pkg/logger"
	reqidmiddleware "github.com/noah-isme/sma-timetable-engine/pkg/middleware/requestid"
)

type routerDeps struct {
	timetables *handler.TimetableHandler
	conflicts  *handler.ConflictHandler
	metrics    *handler.MetricsHandler
	metricsSvc *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(deps.metricsSvc))

	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(middleware.NewTokenVerifier(cfg.JWT)))

	read := middleware.RequireScope(models.ScopeTimetableRead)
	write := middleware.RequireScope(models.ScopeTimetableWrite)

	api.POST("/timetables/generate", write, deps.timetables.Generate)
	api.GET("/timetables/jobs/:id", read, deps.timetables.Job)
	api.GET("/timetables", read, deps.timetables.List)
	api.GET("/timetables/entries/:id/suggestions", read, deps.conflicts.Suggestions)
	api.GET("/conflicts", read, deps.conflicts.List)
	api.POST("/conflicts/detect", read, deps.conflicts.Detect)

	return r
}
