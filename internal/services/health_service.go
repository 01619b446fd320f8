package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"qajalicense/internal/config"
	"qajalicense/internal/license"
)

// Component and overall health states
const (
	StatusOK        = "ok"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
	StatusAlive     = "alive"
)

// IntegrityChecker inspects the license document
type IntegrityChecker interface {
	VerifyIntegrity(ctx context.Context) (*license.IntegrityReport, error)
}

// ClientCounter reports connected event subscribers
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	store     IntegrityChecker
	hub       ClientCounter
	backups   BackupService
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual component health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. hub and backups may be nil.
func NewHealthService(version, buildTime string, store IntegrityChecker, hub ClientCounter, backups BackupService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		store:     store,
		hub:       hub,
		backups:   backups,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck reports every component. The overall status is unhealthy when
// the document cannot be read and degraded when it has integrity issues.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	store := hs.checkStore(ctx)
	status := HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"license_store": store,
			"websocket":     hs.checkWebSocket(),
			"backups":       hs.checkBackups(),
		},
	}

	switch store.Status {
	case StatusUnhealthy:
		status.Status = StatusUnhealthy
	case StatusDegraded:
		status.Status = StatusDegraded
	}

	if status.Status != StatusOK {
		hs.logger.WarnContext(ctx, "health check not ok",
			slog.String("status", status.Status),
			slog.String("store", store.Message))
	}
	return status
}

// ReadinessCheck reports whether the license document can be served
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	store := hs.checkStore(ctx)
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  map[string]interface{}{"license_store": store},
	}
	if store.Status == StatusUnhealthy {
		status.Status = StatusNotReady
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns build information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"name":       config.AppName,
		"version":    hs.version,
		"build_time": hs.buildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkStore(ctx context.Context) ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{Status: StatusUnhealthy, Message: "license store not configured"}
	}
	report, err := hs.store.VerifyIntegrity(ctx)
	if err != nil {
		hs.logger.ErrorContext(ctx, "license store check failed", slog.String("error", err.Error()))
		return ServiceHealth{Status: StatusUnhealthy, Message: err.Error()}
	}
	if !report.Healthy {
		return ServiceHealth{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("%d integrity issues", len(report.Checks.Issues)),
		}
	}
	return ServiceHealth{
		Status:  StatusOK,
		Message: fmt.Sprintf("%d licenses", report.Checks.TotalLicenses),
	}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: StatusOK, Message: "disabled"}
	}
	return ServiceHealth{
		Status:  StatusOK,
		Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount()),
	}
}

func (hs *HealthService) checkBackups() ServiceHealth {
	if hs.backups == nil {
		return ServiceHealth{Status: StatusOK, Message: "disabled"}
	}
	st := hs.backups.Status()
	switch {
	case !st.Enabled:
		return ServiceHealth{Status: StatusOK, Message: "disabled"}
	case st.Scheduler.LastError != "":
		return ServiceHealth{Status: StatusDegraded, Message: st.Scheduler.LastError}
	case !st.Scheduler.Running:
		return ServiceHealth{Status: StatusOK, Message: "stopped"}
	default:
		return ServiceHealth{Status: StatusOK, Message: "running " + st.Scheduler.Schedule}
	}
}
