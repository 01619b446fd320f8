package services

import (
	"context"
	"log/slog"

	"qajalicense/internal/backup"
	"qajalicense/internal/config"
	"qajalicense/internal/infrastructure"
)

// BackupService controls the scheduled backup runner
type BackupService interface {
	RunNow(ctx context.Context) (*backup.RunResult, error)
	Status() BackupStatus
	Stop(ctx context.Context) (bool, error)
}

// BackupStatus reports whether scheduled backups are configured and, when
// they are, the scheduler state
type BackupStatus struct {
	Enabled   bool           `json:"enabled"`
	Scheduler *backup.Status `json:"scheduler,omitempty"`
}

// BackupScheduler is the subset of *backup.Scheduler the service drives
type BackupScheduler interface {
	RunOnce(ctx context.Context) (*backup.RunResult, error)
	Status() backup.Status
	Stop(ctx context.Context) error
}

type backupService struct {
	scheduler BackupScheduler
	logger    *slog.Logger
}

// NewBackupService wraps scheduler. A nil scheduler means backups are
// disabled and every control reports ErrBackupsDisabled.
func NewBackupService(scheduler BackupScheduler, logger *slog.Logger) BackupService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &backupService{
		scheduler: scheduler,
		logger:    logger.With(slog.String("service", "backup")),
	}
}

// RunNow triggers a backup outside the schedule. A partial failure returns
// both the per-sink result and an error.
func (s *backupService) RunNow(ctx context.Context) (*backup.RunResult, error) {
	if s.scheduler == nil {
		return nil, ErrBackupsDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, config.BackupRunTimeout)
	defer cancel()

	s.logger.InfoContext(ctx, "manual backup requested",
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)))
	return s.scheduler.RunOnce(ctx)
}

func (s *backupService) Status() BackupStatus {
	if s.scheduler == nil {
		return BackupStatus{}
	}
	st := s.scheduler.Status()
	return BackupStatus{Enabled: true, Scheduler: &st}
}

// Stop halts the schedule. It reports false when the schedule was not running.
func (s *backupService) Stop(ctx context.Context) (bool, error) {
	if s.scheduler == nil {
		return false, ErrBackupsDisabled
	}
	if !s.scheduler.Status().Running {
		return false, nil
	}
	if err := s.scheduler.Stop(ctx); err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "scheduled backups stopped on request")
	return true, nil
}
