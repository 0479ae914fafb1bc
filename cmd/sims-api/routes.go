package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sims-api/internal/handler"
	"github.com/noah-isme/sims-api/internal/middleware"
	"github.com/noah-isme/sims-api/internal/service"
	"github.com/noah-isme/sims-api/pkg/config"
	"github.com/noah-isme/sims-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sims-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sims-api/pkg/middleware/requestid"
)

type handlers struct {
	students    *handler.StudentHandler
	schedules   *handler.ScheduleHandler
	reports     *handler.ReportHandler
	maintenance *handler.MaintenanceHandler
	metrics     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metricsSvc *service.MetricsService, h handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics"))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	r.GET("/metrics/summary", h.metrics.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	students := api.Group("/students")
	students.GET("", h.students.List)
	students.POST("", h.students.Create)
	students.GET("/report", h.reports.Students)
	students.GET("/:id", h.students.Get)
	students.PUT("/:id", h.students.Update)
	students.DELETE("/:id", h.students.Delete)
	students.GET("/:id/schedules", h.students.Schedules)
	students.POST("/:id/schedules/:scheduleId", h.students.Enroll)
	students.DELETE("/:id/schedules/:scheduleId", h.students.Unenroll)

	schedules := api.Group("/schedules")
	schedules.GET("", h.schedules.List)
	schedules.POST("", h.schedules.Create)
	schedules.GET("/report", h.reports.Schedules)
	schedules.GET("/:id", h.schedules.Get)
	schedules.PUT("/:id", h.schedules.Update)
	schedules.DELETE("/:id", h.schedules.Delete)
	schedules.GET("/:id/students", h.schedules.Students)
	schedules.POST("/:id/students", h.schedules.Enroll)
	schedules.GET("/:id/available-students", h.schedules.AvailableStudents)

	maintenance := api.Group("/maintenance")
	maintenance.GET("/consistency", h.maintenance.Consistency)
	maintenance.POST("/consistency/repair", h.maintenance.Repair)

	return r
}
