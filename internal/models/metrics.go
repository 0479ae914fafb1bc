package models

import "time"

// MetricsSnapshot aggregates in-process counters for the metrics summary endpoint.
type MetricsSnapshot struct {
	RequestsTotal             uint64    `json:"requests_total"`
	AverageRequestDurationMs  float64   `json:"average_request_duration_ms"`
	CacheHits                 uint64    `json:"cache_hits"`
	CacheMisses               uint64    `json:"cache_misses"`
	CacheHitRatio             float64   `json:"cache_hit_ratio"`
	StoreOperations           uint64    `json:"store_operations"`
	AverageStoreOperationMs   float64   `json:"average_store_operation_ms"`
	EnrollmentOperations      uint64    `json:"enrollment_operations"`
	EnrollmentOperationErrors uint64    `json:"enrollment_operation_errors"`
	LinkViolations            int64     `json:"link_violations"`
	Goroutines                int       `json:"goroutines"`
	GeneratedAt               time.Time `json:"generated_at"`
}
