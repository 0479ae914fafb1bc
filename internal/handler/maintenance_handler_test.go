package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sims-api/internal/models"
	"github.com/noah-isme/sims-api/internal/service"
)

type reconcileServiceMock struct {
	report   *models.ConsistencyReport
	err      error
	repaired bool
}

func (m *reconcileServiceMock) Check(ctx context.Context) (*models.ConsistencyReport, error) {
	return m.report, m.err
}

func (m *reconcileServiceMock) Repair(ctx context.Context) (*models.ConsistencyReport, error) {
	m.repaired = true
	return m.report, m.err
}

func TestMaintenanceHandlerConsistency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &reconcileServiceMock{report: &models.ConsistencyReport{
		CheckedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Violations: []models.LinkViolation{
			{Kind: models.ViolationMissingScheduleBackRef, StudentID: "s1", ScheduleID: "c1"},
		},
	}}
	handler := NewMaintenanceHandler(svc)

	c, w := newGinContext(http.MethodGet, "/maintenance/consistency", nil)
	handler.Consistency(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, svc.repaired)
	env := decodeEnvelope(t, w)
	assert.Equal(t, false, env.Meta["consistent"])
	assert.EqualValues(t, 1, env.Meta["violations"])
}

func TestMaintenanceHandlerRepair(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &reconcileServiceMock{report: &models.ConsistencyReport{Repaired: true}}
	handler := NewMaintenanceHandler(svc)

	c, w := newGinContext(http.MethodPost, "/maintenance/consistency/repair", nil)
	handler.Repair(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.repaired)
	assert.Equal(t, true, decodeEnvelope(t, w).Meta["consistent"])
}

func TestMaintenanceHandlerFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMaintenanceHandler(&reconcileServiceMock{err: errors.New("store offline")})

	c, w := newGinContext(http.MethodGet, "/maintenance/consistency", nil)
	handler.Consistency(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsHandlerReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ready := NewMetricsHandler(nil, "bolt", func(ctx context.Context) error { return nil })
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	ready.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","store":"bolt"}`, w.Body.String())

	down := NewMetricsHandler(nil, "postgres", func(ctx context.Context) error { return errors.New("connection refused") })
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	down.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	c, w = newGinContext(http.MethodGet, "/health", nil)
	down.Health(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsHandlerSummaryAndPrometheus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.RecordEnrollmentOperation("enroll", service.ResultSuccess)
	handler := NewMetricsHandler(metrics, "bolt", nil)

	c, w := newGinContext(http.MethodGet, "/metrics/summary", nil)
	handler.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enrollment_operations":1`)

	c, w = newGinContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "enrollment_operations_total")

	c, w = newGinContext(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(nil, "bolt", nil).Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
