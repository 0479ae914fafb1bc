package main

import (
	"go.uber.org/zap"

	"github.com/noah-isme/sims-api/internal/handler"
	"github.com/noah-isme/sims-api/internal/repository"
	"github.com/noah-isme/sims-api/internal/service"
)

type application struct {
	handlers  handlers
	reconcile *service.ReconcileService
}

func wire(logr *zap.Logger, store *documentStore, metricsSvc *service.MetricsService, cacheSvc *service.CacheService) application {
	studentRepo := repository.NewStudentRepository(store.students, metricsSvc)
	scheduleRepo := repository.NewClassScheduleRepository(store.schedules, metricsSvc)

	validate := service.NewValidator()
	studentSvc := service.NewStudentService(studentRepo, scheduleRepo, store.tx, cacheSvc, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, studentRepo, store.tx, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(studentRepo, scheduleRepo, store.tx, cacheSvc, metricsSvc, logr)
	reconcileSvc := service.NewReconcileService(studentRepo, scheduleRepo, store.tx, cacheSvc, metricsSvc, logr)
	reportSvc := service.NewReportService(studentRepo, scheduleRepo, logr)

	return application{
		handlers: handlers{
			students:    handler.NewStudentHandler(studentSvc, enrollmentSvc),
			schedules:   handler.NewScheduleHandler(scheduleSvc, enrollmentSvc),
			reports:     handler.NewReportHandler(reportSvc),
			maintenance: handler.NewMaintenanceHandler(reconcileSvc),
			metrics:     handler.NewMetricsHandler(metricsSvc, store.driver, store.ready),
		},
		reconcile: reconcileSvc,
	}
}
