package http

import (
	"time"

	"qajalicense/internal/config"
	"qajalicense/internal/license"
)

// CustomerData is the contact block returned to validating clients
type CustomerData struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Business string `json:"business"`
}

// ValidateResponse is the body of GET /validate
type ValidateResponse struct {
	Success            bool                `json:"success"`
	Message            string              `json:"message"`
	Code               string              `json:"code,omitempty"`
	LicenseType        license.LicenseType `json:"license_type,omitempty"`
	ActivatedAt        *time.Time          `json:"activated_at,omitempty"`
	ExpiresAt          *time.Time          `json:"expires_at,omitempty"`
	ExpiredAt          *time.Time          `json:"expired_at,omitempty"`
	DaysRemaining      *int                `json:"days_remaining,omitempty"`
	CustomerRegistered *bool               `json:"customer_registered,omitempty"`
	CustomerData       *CustomerData       `json:"customer_data,omitempty"`
}

func newValidateResponse(res *license.ValidationResult) ValidateResponse {
	if !res.Success {
		return ValidateResponse{
			Message:   res.Message,
			Code:      string(res.Code),
			ExpiredAt: res.ExpiredAt,
		}
	}

	out := ValidateResponse{
		Success:     true,
		Message:     res.Message,
		LicenseType: res.LicenseType,
	}
	data := &CustomerData{
		Email:    res.Customer.Email,
		Phone:    res.Customer.Phone,
		Business: res.Customer.Business,
	}

	switch {
	case res.LicenseType == license.TypeSubscription:
		days := res.DaysRemaining
		out.ExpiresAt = res.ExpiresAt
		out.DaysRemaining = &days
		out.CustomerData = data
	case res.Outcome == license.OutcomeActivated:
		registered := res.CustomerRegistered
		out.ActivatedAt = res.ActivatedAt
		out.CustomerRegistered = &registered
	default:
		out.ActivatedAt = res.ActivatedAt
		out.CustomerData = data
	}
	return out
}

// CustomerView is one row of the customer listings
type CustomerView struct {
	LicenseKey     string              `json:"license_key"`
	Email          string              `json:"email"`
	Phone          string              `json:"phone"`
	Business       string              `json:"business"`
	LicenseType    license.LicenseType `json:"license_type"`
	ActivatedAt    *time.Time          `json:"activated_at"`
	LastValidation *time.Time          `json:"last_validation"`
	HardwareID     string              `json:"hardware_id,omitempty"`
	ExpiresAt      *time.Time          `json:"expires_at"`
}

func orUnregistered(v string) string {
	if v == "" {
		return config.UnregisteredPlaceholder
	}
	return v
}

func newCustomerView(c license.CustomerRecord) CustomerView {
	return CustomerView{
		LicenseKey:     c.LicenseKey,
		Email:          orUnregistered(c.Email),
		Phone:          orUnregistered(c.Phone),
		Business:       orUnregistered(c.Business),
		LicenseType:    c.LicenseType,
		ActivatedAt:    c.ActivatedAt,
		LastValidation: c.LastValidation,
		HardwareID:     c.HardwareID,
		ExpiresAt:      c.ExpiresAt,
	}
}

func newCustomerViews(records []license.CustomerRecord) []CustomerView {
	out := make([]CustomerView, 0, len(records))
	for _, c := range records {
		out = append(out, newCustomerView(c))
	}
	return out
}

// StatusStats merges the persisted document stats with the derived counts.
// Every count is derived; only created_at comes from the document.
type StatusStats struct {
	TotalLicenses         int       `json:"total_licenses"`
	ActiveLicenses        int       `json:"active_licenses"`
	CreatedAt             time.Time `json:"created_at"`
	ActivatedLicenses     int       `json:"activated_licenses"`
	UniqueLicenses        int       `json:"unique_licenses"`
	SubscriptionLicenses  int       `json:"subscription_licenses"`
	PendingActivation     int       `json:"pending_activation"`
	CustomersWithEmail    int       `json:"customers_with_email"`
	CustomersWithPhone    int       `json:"customers_with_phone"`
	CustomersWithBusiness int       `json:"customers_with_business"`
	CompletionRate        int       `json:"completion_rate"`
}

// RecentActivation is one entry of the status dashboard
type RecentActivation struct {
	Key         string              `json:"key"`
	Email       string              `json:"email"`
	Phone       string              `json:"phone"`
	Business    string              `json:"business"`
	ActivatedAt *time.Time          `json:"activated_at"`
	LicenseType license.LicenseType `json:"license_type"`
}

func newStatusStats(report *license.StatusReport) StatusStats {
	return StatusStats{
		TotalLicenses:         report.Derived.TotalLicenses,
		ActiveLicenses:        report.Derived.ActiveLicenses,
		CreatedAt:             report.Persisted.CreatedAt,
		ActivatedLicenses:     report.Derived.ActivatedLicenses,
		UniqueLicenses:        report.Derived.PerpetualLicenses,
		SubscriptionLicenses:  report.Derived.SubscriptionLicenses,
		PendingActivation:     report.Derived.PendingActivation,
		CustomersWithEmail:    report.CustomersWithEmail,
		CustomersWithPhone:    report.CustomersWithPhone,
		CustomersWithBusiness: report.CustomersWithBusiness,
		CompletionRate:        report.CompletionRate,
	}
}

func newRecentActivations(records []license.CustomerRecord) []RecentActivation {
	out := make([]RecentActivation, 0, len(records))
	for _, c := range records {
		out = append(out, RecentActivation{
			Key:         c.LicenseKey,
			Email:       orUnregistered(c.Email),
			Phone:       orUnregistered(c.Phone),
			Business:    orUnregistered(c.Business),
			ActivatedAt: c.ActivatedAt,
			LicenseType: c.LicenseType,
		})
	}
	return out
}

// SubscriptionView is one row of the expiring and expired listings
type SubscriptionView struct {
	LicenseKey          string     `json:"license_key"`
	CustomerEmail       string     `json:"customer_email"`
	CustomerPhone       string     `json:"customer_phone"`
	CustomerBusiness    string     `json:"customer_business"`
	ExpiresAt           *time.Time `json:"expires_at"`
	DaysUntilExpiration *int       `json:"days_until_expiration,omitempty"`
	DaysExpired         *int       `json:"days_expired,omitempty"`
	ActivatedAt         *time.Time `json:"activated_at,omitempty"`
	LastValidation      *time.Time `json:"last_validation"`
	RenewalCount        int        `json:"renewal_count"`
	Active              *bool      `json:"active,omitempty"`
}

func newSubscriptionView(s license.SubscriptionRecord) SubscriptionView {
	return SubscriptionView{
		LicenseKey:       s.LicenseKey,
		CustomerEmail:    orUnregistered(s.Email),
		CustomerPhone:    orUnregistered(s.Phone),
		CustomerBusiness: orUnregistered(s.Business),
		ExpiresAt:        s.ExpiresAt,
		LastValidation:   s.LastValidation,
		RenewalCount:     s.RenewalCount,
	}
}

func newExpiringViews(records []license.SubscriptionRecord) []SubscriptionView {
	out := make([]SubscriptionView, 0, len(records))
	for _, s := range records {
		v := newSubscriptionView(s)
		days := s.DaysUntilExpiration
		v.DaysUntilExpiration = &days
		v.ActivatedAt = s.ActivatedAt
		out = append(out, v)
	}
	return out
}

func newExpiredViews(records []license.SubscriptionRecord) []SubscriptionView {
	out := make([]SubscriptionView, 0, len(records))
	for _, s := range records {
		v := newSubscriptionView(s)
		days := s.DaysExpired
		active := s.Active
		v.DaysExpired = &days
		v.Active = &active
		out = append(out, v)
	}
	return out
}
