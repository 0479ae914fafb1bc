package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-api/internal/models"
	"github.com/noah-isme/sims-api/pkg/response"
)

type reconcileService interface {
	Check(ctx context.Context) (*models.ConsistencyReport, error)
	Repair(ctx context.Context) (*models.ConsistencyReport, error)
}

// MaintenanceHandler exposes enrollment link reconciliation.
type MaintenanceHandler struct {
	reconcile reconcileService
}

// NewMaintenanceHandler constructs MaintenanceHandler.
func NewMaintenanceHandler(reconcile reconcileService) *MaintenanceHandler {
	return &MaintenanceHandler{reconcile: reconcile}
}

// Consistency godoc
// @Summary Report enrollment links that disagree between students and schedules
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance/consistency [get]
func (h *MaintenanceHandler) Consistency(c *gin.Context) {
	report, err := h.reconcile.Check(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, consistencyMeta(report))
}

// Repair godoc
// @Summary Rewrite schedule rosters from student enrollments
// @Tags Maintenance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /maintenance/consistency/repair [post]
func (h *MaintenanceHandler) Repair(c *gin.Context) {
	report, err := h.reconcile.Repair(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, consistencyMeta(report))
}

func consistencyMeta(report *models.ConsistencyReport) map[string]interface{} {
	return map[string]interface{}{
		"consistent": report.Consistent(),
		"violations": len(report.Violations),
	}
}
