package license

import (
	"encoding/json"
	"strings"
	"time"
)

// LicenseType is the persisted license kind. The values are the strings
// stored in existing license documents.
type LicenseType string

const (
	TypePerpetual    LicenseType = "unica"
	TypeSubscription LicenseType = "suscripcion"
)

// ParseLicenseType accepts both the stored values and their English names.
// An empty value selects TypePerpetual.
func ParseLicenseType(s string) (LicenseType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(TypePerpetual), "perpetual":
		return TypePerpetual, true
	case string(TypeSubscription), "subscription":
		return TypeSubscription, true
	default:
		return LicenseType(s), false
	}
}

// Notification records a reminder sent to the license holder
type Notification struct {
	Type    string    `json:"type"`
	SentAt  time.Time `json:"sent_at"`
	Message string    `json:"message"`
}

// License is one issued key and everything learned about it since.
type License struct {
	Key              string         `json:"key"`
	Type             LicenseType    `json:"type"`
	Active           bool           `json:"active"`
	CreatedAt        time.Time      `json:"created_at"`
	ActivatedAt      *time.Time     `json:"activated_at"`
	HardwareID       *string        `json:"hardware_id"`
	LastValidation   *time.Time     `json:"last_validation"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	RenewalCount     int            `json:"renewal_count,omitempty"`
	LastRenewal      *time.Time     `json:"last_renewal,omitempty"`
	PaymentReference string         `json:"payment_reference,omitempty"`
	DeactivatedAt    *time.Time     `json:"deactivated_at,omitempty"`
	CustomerEmail    string         `json:"customer_email"`
	CustomerName     string         `json:"customer_name"`
	CustomerPhone    string         `json:"customer_phone,omitempty"`
	CustomerBusiness string         `json:"customer_business,omitempty"`
	Notifications    []Notification `json:"notifications,omitempty"`
}

// Activated reports whether the license has been validated at least once
func (l *License) Activated() bool {
	return l.ActivatedAt != nil
}

// Hardware returns the bound hardware id, or "" when unbound
func (l *License) Hardware() string {
	if l.HardwareID == nil {
		return ""
	}
	return *l.HardwareID
}

// Customer returns the contact fields of the license
func (l *License) Customer() CustomerInfo {
	return CustomerInfo{
		Email:    l.CustomerEmail,
		Phone:    l.CustomerPhone,
		Business: l.CustomerBusiness,
		Name:     l.CustomerName,
	}
}

// fillCustomer copies each supplied field that is still empty on the license.
// It reports whether anything changed.
func (l *License) fillCustomer(c CustomerInfo) bool {
	changed := false
	fill := func(dst *string, v string) {
		v = strings.TrimSpace(v)
		if v != "" && *dst == "" {
			*dst = v
			changed = true
		}
	}
	fill(&l.CustomerEmail, c.Email)
	fill(&l.CustomerPhone, c.Phone)
	fill(&l.CustomerBusiness, c.Business)
	fill(&l.CustomerName, c.Name)
	return changed
}

// CustomerInfo carries optional contact data supplied by clients
type CustomerInfo struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Business string `json:"business"`
	Name     string `json:"name,omitempty"`
}

func (c CustomerInfo) supplied() bool {
	return strings.TrimSpace(c.Email) != "" ||
		strings.TrimSpace(c.Phone) != "" ||
		strings.TrimSpace(c.Business) != ""
}

// Stats holds the persisted aggregate counters. They are advisory:
// read paths derive counts from the licenses map instead.
type Stats struct {
	TotalLicenses  int       `json:"total_licenses"`
	ActiveLicenses int       `json:"active_licenses"`
	CreatedAt      time.Time `json:"created_at"`
}

// Database is the single persisted license document
type Database struct {
	Licenses    map[string]*License        `json:"licenses"`
	Activations map[string]json.RawMessage `json:"activations"`
	Stats       Stats                      `json:"stats"`
}

// NewDatabase returns an empty document stamped with now
func NewDatabase(now time.Time) *Database {
	return &Database{
		Licenses:    make(map[string]*License),
		Activations: make(map[string]json.RawMessage),
		Stats:       Stats{CreatedAt: now.UTC()},
	}
}

// normalize fills nil maps left by sparse documents
func (db *Database) normalize() {
	if db.Licenses == nil {
		db.Licenses = make(map[string]*License)
	}
	if db.Activations == nil {
		db.Activations = make(map[string]json.RawMessage)
	}
}

// DerivedStats are computed from the licenses map on every read
type DerivedStats struct {
	TotalLicenses        int `json:"total_licenses"`
	ActivatedLicenses    int `json:"activated_licenses"`
	ActiveLicenses       int `json:"active_licenses"`
	PerpetualLicenses    int `json:"unica_licenses"`
	SubscriptionLicenses int `json:"subscription_licenses"`
	PendingActivation    int `json:"pending_activation"`
}

// Derive computes the current counters from the licenses map
func (db *Database) Derive() DerivedStats {
	var s DerivedStats
	for _, l := range db.Licenses {
		s.TotalLicenses++
		if l.Activated() {
			s.ActivatedLicenses++
			if l.Active {
				s.ActiveLicenses++
			}
		} else {
			s.PendingActivation++
		}
		switch l.Type {
		case TypePerpetual:
			s.PerpetualLicenses++
		case TypeSubscription:
			s.SubscriptionLicenses++
		}
	}
	return s
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func stringPtr(s string) *string {
	return &s
}
