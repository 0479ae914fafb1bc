package dto

// EnrollRequest captures POST /schedules/:id/students payload.
type EnrollRequest struct {
	StudentID string `json:"student_id"`
}

// DeleteResponse reports whether a delete removed a record.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
	Error  string `json:"error,omitempty"`
}
