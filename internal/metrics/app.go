package metrics

import (
	"time"

	"github.com/ledgerkeep/ledgerkeep/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Session lifecycle metrics
	SessionsRegisteredTotal = "app_sessions_registered_total"
	SessionsEvictedTotal    = "app_sessions_evicted_total"
	SessionsRevokedTotal    = "app_sessions_revoked_total"
	StaleSessionsTotal      = "app_stale_sessions_cleaned_total"
	SuspiciousSignInsTotal  = "app_suspicious_sign_ins_total"

	// Rate limiter metrics
	RateLimitHitsTotal = "app_rate_limit_hits_total"

	// Operations metrics
	OperationsTotal = "app_operations_total"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordSessionRegistered records a new session registration
func RecordSessionRegistered(deviceClass string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SessionsRegisteredTotal,
			1,
			map[string]string{
				"device_class": deviceClass,
			},
		)
	}
}

// RecordSessionsEvicted records sessions evicted by the per-user cap
func RecordSessionsEvicted(count int) {
	if count <= 0 {
		return
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SessionsEvictedTotal,
			float64(count),
			nil,
		)
	}
}

// RecordSessionsRevoked records sessions revoked on user request
func RecordSessionsRevoked(count int) {
	if count <= 0 {
		return
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SessionsRevokedTotal,
			float64(count),
			nil,
		)
	}
}

// RecordStaleSessionsCleaned records sessions removed by the stale sweep
func RecordStaleSessionsCleaned(count int) {
	if count <= 0 {
		return
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			StaleSessionsTotal,
			float64(count),
			nil,
		)
	}
}

// RecordSuspiciousSignIn records a sign-in flagged by the suspicion heuristic
func RecordSuspiciousSignIn(reason string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SuspiciousSignInsTotal,
			1,
			map[string]string{
				"reason": reason,
			},
		)
	}
}

// RecordRateLimitHit records a request rejected by a rate limiter
func RecordRateLimitHit(operation string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitHitsTotal,
			1,
			map[string]string{
				"operation": operation,
			},
		)
	}
}

// RecordOperation records an application operation with status
func RecordOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			OperationsTotal,
			1,
			map[string]string{
				"operation": operation,
				"status":    status,
			},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}
