package http

import "qajalicense/internal/license"

// CreateLicenseRequest is the body of POST /admin/create-license
type CreateLicenseRequest struct {
	Type          string `json:"type" validate:"license_type"`
	Months        int    `json:"months" validate:"gte=0,lte=120"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	CustomerName  string `json:"customer_name" validate:"max=200"`
}

// KeyRequest is the body of POST /admin/deactivate
type KeyRequest struct {
	Key string `json:"key" validate:"max=64"`
}

// RenewRequest is the body of POST /admin/renew-subscription. An absent
// months value renews for one month. Non-positive values are rejected by
// the license core.
type RenewRequest struct {
	Key              string `json:"key" validate:"max=64"`
	Months           *int   `json:"months"`
	PaymentReference string `json:"payment_reference" validate:"max=200"`
}

// NotifyExpirationRequest is the body of POST /admin/notify-expiration
type NotifyExpirationRequest struct {
	Key              string `json:"key" validate:"max=64"`
	NotificationType string `json:"notification_type" validate:"omitempty,oneof=email sms whatsapp phone"`
}

// RestoreRequest is the body of POST /admin/restore-database
type RestoreRequest struct {
	Confirm    string          `json:"confirm"`
	BackupData *license.Backup `json:"backup_data"`
}

func (r CreateLicenseRequest) toCore() license.CreateRequest {
	return license.CreateRequest{
		Type:          r.Type,
		Months:        r.Months,
		CustomerEmail: r.CustomerEmail,
		CustomerName:  r.CustomerName,
	}
}

func (r RenewRequest) toCore() license.RenewRequest {
	months := 1
	if r.Months != nil {
		months = *r.Months
	}
	return license.RenewRequest{
		Key:              r.Key,
		Months:           months,
		PaymentReference: r.PaymentReference,
	}
}
