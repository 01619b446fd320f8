package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"qajalicense/internal/config"
	"qajalicense/internal/exporter"
	"qajalicense/internal/infrastructure"
	"qajalicense/internal/license"
)

// LicenseService provides the business operations behind the public and admin APIs
type LicenseService interface {
	// Public operations
	Info(ctx context.Context) (*ServiceInfo, error)
	Validate(ctx context.Context, clientID string, req license.ValidateRequest) (*license.ValidationResult, error)

	// Lifecycle administration
	Create(ctx context.Context, req license.CreateRequest) (*license.License, error)
	Renew(ctx context.Context, req license.RenewRequest) (*license.RenewalResult, error)
	Deactivate(ctx context.Context, key string) error
	NotifyExpiration(ctx context.Context, key, notificationType string) (*license.NotificationResult, error)

	// Reporting
	Customers(ctx context.Context) ([]license.CustomerRecord, error)
	Status(ctx context.Context) (*license.StatusReport, error)
	List(ctx context.Context) ([]*license.License, error)
	Expiring(ctx context.Context, days int) ([]license.SubscriptionRecord, error)
	Expired(ctx context.Context) ([]license.SubscriptionRecord, error)
	Search(ctx context.Context, query string) ([]license.CustomerRecord, error)

	// Exports
	ExportCSV(ctx context.Context, w io.Writer) (int, error)
	ExportXLSX(ctx context.Context, w io.Writer) (int, error)
	PublishSheets(ctx context.Context) (*exporter.PublishResult, error)

	// Document maintenance
	Backup(ctx context.Context, serverURL string) (*license.Backup, error)
	Restore(ctx context.Context, backup *license.Backup, token string) (*license.RestoreResult, error)
	VerifyIntegrity(ctx context.Context) (*license.IntegrityReport, error)
	EncodeForEnvironment(ctx context.Context) (*license.EnvironmentBackup, error)
}

// ServiceInfo is the payload of the root endpoint
type ServiceInfo struct {
	Message   string               `json:"message"`
	Version   string               `json:"version"`
	Stats     license.DerivedStats `json:"stats"`
	Endpoints map[string]string    `json:"endpoints"`
	Timestamp time.Time            `json:"timestamp"`
}

// SheetsPublisher pushes customer rows to a spreadsheet
type SheetsPublisher interface {
	Publish(ctx context.Context, customers []license.CustomerRecord) (*exporter.PublishResult, error)
}

// LicenseServiceOption configures the license service
type LicenseServiceOption func(*licenseService)

// WithAttemptGuard blocks clients that keep validating unknown keys
func WithAttemptGuard(guard *license.AttemptGuard) LicenseServiceOption {
	return func(s *licenseService) { s.guard = guard }
}

// WithSheetsPublisher enables the Google Sheets export
func WithSheetsPublisher(publisher SheetsPublisher) LicenseServiceOption {
	return func(s *licenseService) { s.sheets = publisher }
}

type licenseService struct {
	manager *license.Manager
	guard   *license.AttemptGuard
	sheets  SheetsPublisher
	csv     *exporter.CSVWriter
	logger  *slog.Logger
}

// NewLicenseService creates the license service around manager
func NewLicenseService(manager *license.Manager, logger *slog.Logger, opts ...LicenseServiceOption) LicenseService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	s := &licenseService{
		manager: manager,
		csv:     exporter.NewCSVWriter(),
		logger:  logger.With(slog.String("service", "license")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *licenseService) Info(ctx context.Context) (*ServiceInfo, error) {
	stats, err := s.manager.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &ServiceInfo{
		Message: "Sistema de Licencias POS - Activo ✅",
		Version: config.AppVersion,
		Stats:   stats,
		Endpoints: map[string]string{
			"validate":  "/validate?key=XXXX-XXXX-XXXX-XXXX&hardware=abc123",
			"create":    "/admin/create-license",
			"status":    "/admin/status",
			"customers": "/admin/customers",
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

// Validate checks the attempt guard before delegating to the manager.
// Unknown keys count against clientID; a successful validation clears it.
func (s *licenseService) Validate(ctx context.Context, clientID string, req license.ValidateRequest) (*license.ValidationResult, error) {
	if s.guard.IsBlocked(clientID) {
		s.logger.WarnContext(ctx, "validation rejected for blocked client",
			slog.String("client", clientID),
			slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)))
		return nil, ErrClientBlocked
	}

	result, err := s.manager.Validate(ctx, req)
	if err != nil {
		return nil, err
	}

	switch {
	case result.Success:
		s.guard.RecordSuccess(clientID)
	case result.Code == license.CodeInvalidKey:
		s.guard.RecordFailure(clientID)
	}
	return result, nil
}

func (s *licenseService) Create(ctx context.Context, req license.CreateRequest) (*license.License, error) {
	return s.manager.Create(ctx, req)
}

func (s *licenseService) Renew(ctx context.Context, req license.RenewRequest) (*license.RenewalResult, error) {
	return s.manager.Renew(ctx, req)
}

func (s *licenseService) Deactivate(ctx context.Context, key string) error {
	return s.manager.Deactivate(ctx, key)
}

func (s *licenseService) NotifyExpiration(ctx context.Context, key, notificationType string) (*license.NotificationResult, error) {
	return s.manager.NotifyExpiration(ctx, key, notificationType)
}

func (s *licenseService) Customers(ctx context.Context) ([]license.CustomerRecord, error) {
	return s.manager.Customers(ctx)
}

func (s *licenseService) Status(ctx context.Context) (*license.StatusReport, error) {
	return s.manager.Status(ctx)
}

func (s *licenseService) List(ctx context.Context) ([]*license.License, error) {
	return s.manager.List(ctx)
}

func (s *licenseService) Expiring(ctx context.Context, days int) ([]license.SubscriptionRecord, error) {
	return s.manager.Expiring(ctx, days)
}

func (s *licenseService) Expired(ctx context.Context) ([]license.SubscriptionRecord, error) {
	return s.manager.Expired(ctx)
}

func (s *licenseService) Search(ctx context.Context, query string) ([]license.CustomerRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrMissingQuery
	}
	return s.manager.Search(ctx, query)
}

// ExportCSV writes the customer export and returns the number of rows
func (s *licenseService) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	customers, err := s.manager.Customers(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.csv.WriteCustomers(w, customers); err != nil {
		return 0, fmt.Errorf("failed to write customer csv: %w", err)
	}
	s.logger.InfoContext(ctx, "customer export generated",
		slog.String("format", "csv"),
		slog.Int("customers", len(customers)))
	return len(customers), nil
}

// ExportXLSX writes the customer workbook and returns the number of rows
func (s *licenseService) ExportXLSX(ctx context.Context, w io.Writer) (int, error) {
	customers, err := s.manager.Customers(ctx)
	if err != nil {
		return 0, err
	}
	if err := exporter.WriteCustomersXLSX(w, customers); err != nil {
		return 0, fmt.Errorf("failed to write customer workbook: %w", err)
	}
	s.logger.InfoContext(ctx, "customer export generated",
		slog.String("format", "xlsx"),
		slog.Int("customers", len(customers)))
	return len(customers), nil
}

func (s *licenseService) PublishSheets(ctx context.Context) (*exporter.PublishResult, error) {
	if s.sheets == nil {
		return nil, exporter.ErrSheetsNotConfigured
	}
	customers, err := s.manager.Customers(ctx)
	if err != nil {
		return nil, err
	}
	return s.sheets.Publish(ctx, customers)
}

func (s *licenseService) Backup(ctx context.Context, serverURL string) (*license.Backup, error) {
	backup, err := s.manager.Store().Snapshot(ctx, serverURL)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "backup downloaded",
		slog.Int("total_licenses", backup.BackupInfo.TotalLicenses),
		slog.String("server_url", serverURL))
	return backup, nil
}

func (s *licenseService) Restore(ctx context.Context, backup *license.Backup, token string) (*license.RestoreResult, error) {
	return s.manager.Restore(ctx, backup, token)
}

func (s *licenseService) VerifyIntegrity(ctx context.Context) (*license.IntegrityReport, error) {
	report, err := s.manager.Store().VerifyIntegrity(ctx)
	if err != nil {
		return nil, err
	}
	level := slog.LevelInfo
	if !report.Healthy {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "integrity check completed",
		slog.Bool("healthy", report.Healthy),
		slog.Int("issues", len(report.Checks.Issues)))
	return report, nil
}

func (s *licenseService) EncodeForEnvironment(ctx context.Context) (*license.EnvironmentBackup, error) {
	return s.manager.Store().EncodeForEnvironment(ctx)
}
