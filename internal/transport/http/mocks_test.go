package http

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"qajalicense/internal/backup"
	"qajalicense/internal/exporter"
	"qajalicense/internal/license"
	"qajalicense/internal/services"
)

type mockLicenseService struct {
	mock.Mock
}

func (m *mockLicenseService) Info(ctx context.Context) (*services.ServiceInfo, error) {
	args := m.Called(ctx)
	info, _ := args.Get(0).(*services.ServiceInfo)
	return info, args.Error(1)
}

func (m *mockLicenseService) Validate(ctx context.Context, clientID string, req license.ValidateRequest) (*license.ValidationResult, error) {
	args := m.Called(ctx, clientID, req)
	res, _ := args.Get(0).(*license.ValidationResult)
	return res, args.Error(1)
}

func (m *mockLicenseService) Create(ctx context.Context, req license.CreateRequest) (*license.License, error) {
	args := m.Called(ctx, req)
	l, _ := args.Get(0).(*license.License)
	return l, args.Error(1)
}

func (m *mockLicenseService) Renew(ctx context.Context, req license.RenewRequest) (*license.RenewalResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*license.RenewalResult)
	return res, args.Error(1)
}

func (m *mockLicenseService) Deactivate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockLicenseService) NotifyExpiration(ctx context.Context, key, notificationType string) (*license.NotificationResult, error) {
	args := m.Called(ctx, key, notificationType)
	res, _ := args.Get(0).(*license.NotificationResult)
	return res, args.Error(1)
}

func (m *mockLicenseService) Customers(ctx context.Context) ([]license.CustomerRecord, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]license.CustomerRecord)
	return out, args.Error(1)
}

func (m *mockLicenseService) Status(ctx context.Context) (*license.StatusReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*license.StatusReport)
	return report, args.Error(1)
}

func (m *mockLicenseService) List(ctx context.Context) ([]*license.License, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]*license.License)
	return out, args.Error(1)
}

func (m *mockLicenseService) Expiring(ctx context.Context, days int) ([]license.SubscriptionRecord, error) {
	args := m.Called(ctx, days)
	out, _ := args.Get(0).([]license.SubscriptionRecord)
	return out, args.Error(1)
}

func (m *mockLicenseService) Expired(ctx context.Context) ([]license.SubscriptionRecord, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]license.SubscriptionRecord)
	return out, args.Error(1)
}

func (m *mockLicenseService) Search(ctx context.Context, query string) ([]license.CustomerRecord, error) {
	args := m.Called(ctx, query)
	out, _ := args.Get(0).([]license.CustomerRecord)
	return out, args.Error(1)
}

func (m *mockLicenseService) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	args := m.Called(ctx, w)
	if body, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, body)
	}
	return args.Int(1), args.Error(2)
}

func (m *mockLicenseService) ExportXLSX(ctx context.Context, w io.Writer) (int, error) {
	args := m.Called(ctx, w)
	if body, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, body)
	}
	return args.Int(1), args.Error(2)
}

func (m *mockLicenseService) PublishSheets(ctx context.Context) (*exporter.PublishResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*exporter.PublishResult)
	return res, args.Error(1)
}

func (m *mockLicenseService) Backup(ctx context.Context, serverURL string) (*license.Backup, error) {
	args := m.Called(ctx, serverURL)
	b, _ := args.Get(0).(*license.Backup)
	return b, args.Error(1)
}

func (m *mockLicenseService) Restore(ctx context.Context, b *license.Backup, token string) (*license.RestoreResult, error) {
	args := m.Called(ctx, b, token)
	res, _ := args.Get(0).(*license.RestoreResult)
	return res, args.Error(1)
}

func (m *mockLicenseService) VerifyIntegrity(ctx context.Context) (*license.IntegrityReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*license.IntegrityReport)
	return report, args.Error(1)
}

func (m *mockLicenseService) EncodeForEnvironment(ctx context.Context) (*license.EnvironmentBackup, error) {
	args := m.Called(ctx)
	env, _ := args.Get(0).(*license.EnvironmentBackup)
	return env, args.Error(1)
}

type mockBackupService struct {
	mock.Mock
}

func (m *mockBackupService) RunNow(ctx context.Context) (*backup.RunResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*backup.RunResult)
	return res, args.Error(1)
}

func (m *mockBackupService) Status() services.BackupStatus {
	return m.Called().Get(0).(services.BackupStatus)
}

func (m *mockBackupService) Stop(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
