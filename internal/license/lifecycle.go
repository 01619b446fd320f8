package license

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"qajalicense/internal/config"
)

// CreateRequest carries the input of Create
type CreateRequest struct {
	Type          string
	Months        int
	CustomerEmail string
	CustomerName  string
}

// ValidateRequest carries the input of Validate. The license type is read
// from the stored record, never from the request.
type ValidateRequest struct {
	Key        string
	HardwareID string
	Customer   CustomerInfo
}

// RenewRequest carries the input of Renew
type RenewRequest struct {
	Key              string
	Months           int
	PaymentReference string
}

// Create issues a new license. Subscriptions run for at least one month.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*License, error) {
	licenseType, ok := ParseLicenseType(req.Type)
	if !ok {
		return nil, Fail(CodeInvalidLicenseType)
	}

	var created *License
	err := m.traceOperation(ctx, "creation", "", func(ctx context.Context) error {
		return m.store.Update(ctx, func(db *Database) (bool, error) {
			key, err := m.uniqueKey(db)
			if err != nil {
				return false, err
			}

			now := m.clock()
			l := &License{
				Key:           key,
				Type:          licenseType,
				Active:        true,
				CreatedAt:     now,
				CustomerEmail: strings.TrimSpace(req.CustomerEmail),
				CustomerName:  strings.TrimSpace(req.CustomerName),
			}
			if licenseType == TypeSubscription {
				months := req.Months
				if months < 1 {
					months = 1
				}
				l.ExpiresAt = timePtr(addMonths(now, months))
			}

			db.Licenses[key] = l
			db.Stats.TotalLicenses++

			copied := *l
			created = &copied
			return true, nil
		})
	})
	if err != nil {
		m.logError(ctx, "license_creation", "failed", slog.String("error", err.Error()))
		return nil, err
	}

	m.logLicenseAction(ctx, slog.LevelInfo, "license_creation", "created", created.Key, created.CustomerEmail,
		slog.String("license_type", string(created.Type)))
	m.publish(ctx, EventCreated, created.Key, map[string]interface{}{
		"type":       created.Type,
		"expires_at": created.ExpiresAt,
	})
	return created, nil
}

func (m *Manager) uniqueKey(db *Database) (string, error) {
	for attempt := 0; attempt < config.MaxKeyGenerationTry; attempt++ {
		key, err := m.keys.Generate()
		if err != nil {
			return "", err
		}
		if _, exists := db.Licenses[key]; !exists {
			return key, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique license key after %d attempts", config.MaxKeyGenerationTry)
}

// Validate checks a key for the calling machine. The first successful call
// activates a perpetual license. Hardware ids are compared exactly as sent. Domain failures are reported in the result; the
// error is only set when the store cannot be read or written.
func (m *Manager) Validate(ctx context.Context, req ValidateRequest) (*ValidationResult, error) {
	key := strings.TrimSpace(req.Key)
	hardware := req.HardwareID

	result, err := m.traceValidation(ctx, key, func(ctx context.Context) (*ValidationResult, error) {
		if key == "" {
			return failedValidation(CodeMissingKey), nil
		}

		var result *ValidationResult
		err := m.store.Update(ctx, func(db *Database) (bool, error) {
			l, ok := db.Licenses[key]
			switch {
			case !ok:
				result = failedValidation(CodeInvalidKey)
				return false, nil
			case !l.Active:
				result = failedValidation(CodeInactiveLicense)
				return false, nil
			}

			var changed bool
			switch l.Type {
			case TypePerpetual:
				result, changed = m.validatePerpetual(db, l, hardware, req.Customer)
			case TypeSubscription:
				result, changed = m.validateSubscription(l, hardware, req.Customer)
			default:
				result = failedValidation(CodeInvalidLicenseType)
			}
			return changed, nil
		})
		return result, err
	})
	if err != nil {
		m.logError(ctx, "license_validation", "failed", slog.String("error", err.Error()))
		return nil, err
	}

	if !result.Success {
		m.logLicenseAction(ctx, slog.LevelWarn, "license_validation", "rejected", key, "",
			slog.String("code", string(result.Code)))
		return result, nil
	}

	eventType := EventValidated
	if result.Outcome == OutcomeActivated {
		eventType = EventActivated
	}
	m.logLicenseAction(ctx, slog.LevelInfo, "license_validation", string(result.Outcome), key, result.Customer.Email,
		slog.String("license_type", string(result.LicenseType)),
		slog.Bool("customer_registered", result.CustomerRegistered))
	m.publish(ctx, eventType, key, map[string]interface{}{
		"type": result.LicenseType,
	})
	return result, nil
}

// validatePerpetual binds the license to the first hardware id it sees and
// rejects every other id afterwards
func (m *Manager) validatePerpetual(db *Database, l *License, hardware string, customer CustomerInfo) (*ValidationResult, bool) {
	now := m.clock()

	if !l.Activated() {
		l.ActivatedAt = timePtr(now)
		if hardware != "" {
			l.HardwareID = stringPtr(hardware)
		}
		l.LastValidation = timePtr(now)
		l.fillCustomer(customer)
		db.Stats.ActiveLicenses++

		return &ValidationResult{
			Success:            true,
			Outcome:            OutcomeActivated,
			Message:            "Licencia activada exitosamente",
			LicenseType:        l.Type,
			ActivatedAt:        l.ActivatedAt,
			CustomerRegistered: customer.supplied(),
			Customer:           l.Customer(),
		}, true
	}

	if l.Hardware() != hardware {
		return failedValidation(CodeHardwareMismatch), false
	}

	// last_validation is persisted together with customer data only
	l.LastValidation = timePtr(now)
	changed := l.fillCustomer(customer)

	return &ValidationResult{
		Success:            true,
		Outcome:            OutcomeValid,
		Message:            "Licencia válida",
		LicenseType:        l.Type,
		ActivatedAt:        l.ActivatedAt,
		CustomerRegistered: l.CustomerEmail != "",
		Customer:           l.Customer(),
	}, changed
}

// validateSubscription enforces expiry. The hardware id is bound lazily and
// not compared on later calls. Subscriptions are never marked activated, so
// activatedAt and the activation counters stay untouched.
func (m *Manager) validateSubscription(l *License, hardware string, customer CustomerInfo) (*ValidationResult, bool) {
	now := m.clock()

	if l.ExpiresAt == nil || now.After(*l.ExpiresAt) {
		result := failedValidation(CodeSubscriptionExpired)
		result.LicenseType = l.Type
		result.ExpiredAt = l.ExpiresAt
		return result, false
	}

	l.LastValidation = timePtr(now)
	if l.HardwareID == nil && hardware != "" {
		l.HardwareID = stringPtr(hardware)
	}
	l.fillCustomer(customer)

	return &ValidationResult{
		Success:            true,
		Outcome:            OutcomeValid,
		Message:            "Suscripción válida",
		LicenseType:        l.Type,
		ActivatedAt:        l.ActivatedAt,
		ExpiresAt:          l.ExpiresAt,
		DaysRemaining:      daysBetween(now, *l.ExpiresAt),
		CustomerRegistered: l.CustomerEmail != "",
		Customer:           l.Customer(),
	}, true
}

// Renew extends a subscription by req.Months from its current expiry, or
// from now when it has already lapsed. Renewal always reactivates.
func (m *Manager) Renew(ctx context.Context, req RenewRequest) (*RenewalResult, error) {
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return nil, Fail(CodeMissingKey)
	}
	if req.Months <= 0 {
		return nil, Fail(CodeInvalidMonths)
	}

	var result *RenewalResult
	err := m.traceOperation(ctx, "renewal", key, func(ctx context.Context) error {
		return m.store.Update(ctx, func(db *Database) (bool, error) {
			l, ok := db.Licenses[key]
			if !ok {
				return false, Fail(CodeInvalidKey)
			}
			if l.Type != TypeSubscription {
				return false, Fail(CodeNotSubscription)
			}

			now := m.clock()
			base := now
			if l.ExpiresAt != nil && l.ExpiresAt.After(now) {
				base = *l.ExpiresAt
			}
			expires := addMonths(base, req.Months)

			l.ExpiresAt = timePtr(expires)
			l.LastRenewal = timePtr(now)
			l.RenewalCount++
			if ref := strings.TrimSpace(req.PaymentReference); ref != "" {
				l.PaymentReference = ref
			}
			l.Active = true

			copied := *l
			result = &RenewalResult{
				License:       &copied,
				NewExpiration: expires,
				MonthsAdded:   req.Months,
				RenewalCount:  l.RenewalCount,
			}
			return true, nil
		})
	})
	if err != nil {
		m.logLicenseAction(ctx, slog.LevelWarn, "license_renewal", "failed", key, "",
			slog.String("error", err.Error()))
		return nil, err
	}

	m.logLicenseAction(ctx, slog.LevelInfo, "license_renewal", "renewed", key, result.License.CustomerEmail,
		slog.Time("new_expiration", result.NewExpiration),
		slog.Int("months_added", result.MonthsAdded),
		slog.Int("renewal_count", result.RenewalCount))
	m.publish(ctx, EventRenewed, key, map[string]interface{}{
		"new_expiration": result.NewExpiration,
		"months_added":   result.MonthsAdded,
		"renewal_count":  result.RenewalCount,
	})
	return result, nil
}

// Deactivate switches a license off. Binding and expiry are left untouched.
func (m *Manager) Deactivate(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return Fail(CodeMissingKey)
	}

	err := m.traceOperation(ctx, "deactivation", key, func(ctx context.Context) error {
		return m.store.Update(ctx, func(db *Database) (bool, error) {
			l, ok := db.Licenses[key]
			if !ok {
				return false, Fail(CodeInvalidKey)
			}
			l.Active = false
			l.DeactivatedAt = timePtr(m.clock())
			return true, nil
		})
	})
	if err != nil {
		m.logLicenseAction(ctx, slog.LevelWarn, "license_deactivation", "failed", key, "",
			slog.String("error", err.Error()))
		return err
	}

	m.logLicenseAction(ctx, slog.LevelInfo, "license_deactivation", "deactivated", key, "")
	m.publish(ctx, EventDeactivated, key, nil)
	return nil
}

// NotifyExpiration records a renewal reminder on the license
func (m *Manager) NotifyExpiration(ctx context.Context, key, notificationType string) (*NotificationResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, Fail(CodeMissingKey)
	}
	if notificationType == "" {
		notificationType = config.DefaultNotificationType
	}

	var result *NotificationResult
	err := m.traceOperation(ctx, "notification", key, func(ctx context.Context) error {
		return m.store.Update(ctx, func(db *Database) (bool, error) {
			l, ok := db.Licenses[key]
			if !ok {
				return false, Fail(CodeInvalidKey)
			}
			l.Notifications = append(l.Notifications, Notification{
				Type:    notificationType,
				SentAt:  m.clock(),
				Message: config.RenewalReminderMessage,
			})
			result = &NotificationResult{
				CustomerEmail:     l.CustomerEmail,
				CustomerPhone:     l.CustomerPhone,
				NotificationCount: len(l.Notifications),
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}

	m.logLicenseAction(ctx, slog.LevelInfo, "license_notification", "recorded", key, result.CustomerEmail,
		slog.String("notification_type", notificationType),
		slog.Int("notification_count", result.NotificationCount))
	m.publish(ctx, EventNotified, key, map[string]interface{}{
		"notification_type": notificationType,
	})
	return result, nil
}

// Restore replaces the license document with backup and announces it
func (m *Manager) Restore(ctx context.Context, backup *Backup, token string) (*RestoreResult, error) {
	var result *RestoreResult
	err := m.traceOperation(ctx, "restore", "", func(ctx context.Context) error {
		var err error
		result, err = m.store.Restore(ctx, backup, token)
		return err
	})
	if err != nil {
		m.logWarn(ctx, "database_restore", "failed", slog.String("error", err.Error()))
		return nil, err
	}

	m.logInfo(ctx, "database_restore", "restored", slog.Int("restored_licenses", result.RestoredLicenses))
	m.publish(ctx, EventRestored, "", map[string]interface{}{
		"restored_licenses": result.RestoredLicenses,
	})
	return result, nil
}

// addMonths adds calendar months in UTC, normalizing day overflow
func addMonths(t time.Time, months int) time.Time {
	return t.UTC().AddDate(0, months, 0)
}

// daysBetween returns the whole days from a to b, rounded up
func daysBetween(a, b time.Time) int {
	return int(math.Ceil(b.Sub(a).Hours() / 24))
}
