package license

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"qajalicense/internal/config"
)

// CustomerRecord is the contact view of an activated license. Business
// falls back to the customer name.
type CustomerRecord struct {
	LicenseKey     string
	Email          string
	Phone          string
	Business       string
	LicenseType    LicenseType
	ActivatedAt    *time.Time
	LastValidation *time.Time
	HardwareID     string
	ExpiresAt      *time.Time
}

// StatusReport summarizes the license population
type StatusReport struct {
	Persisted             Stats
	Derived               DerivedStats
	CustomersWithEmail    int
	CustomersWithPhone    int
	CustomersWithBusiness int
	CompletionRate        int
	RecentActivations     []CustomerRecord
}

// SubscriptionRecord is a subscription with its distance to expiry
type SubscriptionRecord struct {
	CustomerRecord
	DaysUntilExpiration int
	DaysExpired         int
	RenewalCount        int
	Active              bool
}

func customerRecord(l *License) CustomerRecord {
	business := l.CustomerBusiness
	if business == "" {
		business = l.CustomerName
	}
	return CustomerRecord{
		LicenseKey:     l.Key,
		Email:          l.CustomerEmail,
		Phone:          l.CustomerPhone,
		Business:       business,
		LicenseType:    l.Type,
		ActivatedAt:    l.ActivatedAt,
		LastValidation: l.LastValidation,
		HardwareID:     l.Hardware(),
		ExpiresAt:      l.ExpiresAt,
	}
}

func activatedLicenses(db *Database) []*License {
	out := make([]*License, 0, len(db.Licenses))
	for _, l := range db.Licenses {
		if l.Activated() {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ActivatedAt.Equal(*out[j].ActivatedAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].ActivatedAt.After(*out[j].ActivatedAt)
	})
	return out
}

// Stats derives the counters from the current licenses
func (m *Manager) Stats(ctx context.Context) (DerivedStats, error) {
	db, err := m.store.Read(ctx)
	if err != nil {
		return DerivedStats{}, err
	}
	return db.Derive(), nil
}

// Customers lists activated licenses, most recent activation first
func (m *Manager) Customers(ctx context.Context) ([]CustomerRecord, error) {
	db, err := m.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	activated := activatedLicenses(db)
	records := make([]CustomerRecord, 0, len(activated))
	for _, l := range activated {
		records = append(records, customerRecord(l))
	}
	return records, nil
}

// Status reports counts and contact completeness
func (m *Manager) Status(ctx context.Context) (*StatusReport, error) {
	db, err := m.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		Persisted: db.Stats,
		Derived:   db.Derive(),
	}

	activated := activatedLicenses(db)
	for _, l := range activated {
		if l.CustomerEmail != "" {
			report.CustomersWithEmail++
		}
		if l.CustomerPhone != "" {
			report.CustomersWithPhone++
		}
		if l.CustomerBusiness != "" || l.CustomerName != "" {
			report.CustomersWithBusiness++
		}
	}
	if len(activated) > 0 {
		report.CompletionRate = int(math.Round(float64(report.CustomersWithEmail) / float64(len(activated)) * 100))
	}

	limit := config.RecentActivationsLimit
	if len(activated) < limit {
		limit = len(activated)
	}
	report.RecentActivations = make([]CustomerRecord, 0, limit)
	for _, l := range activated[:limit] {
		report.RecentActivations = append(report.RecentActivations, customerRecord(l))
	}

	return report, nil
}

// List returns every license ordered by creation time
func (m *Manager) List(ctx context.Context) ([]*License, error) {
	db, err := m.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*License, 0, len(db.Licenses))
	for _, l := range db.Licenses {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Expiring returns subscriptions expiring within days, soonest first
func (m *Manager) Expiring(ctx context.Context, days int) ([]SubscriptionRecord, error) {
	if days < 0 {
		days = config.DefaultExpiringWindowDays
	}

	db, err := m.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	now := m.clock()
	horizon := now.AddDate(0, 0, days)

	var out []SubscriptionRecord
	for _, l := range db.Licenses {
		if l.Type != TypeSubscription || l.ExpiresAt == nil {
			continue
		}
		if l.ExpiresAt.Before(now) || l.ExpiresAt.After(horizon) {
			continue
		}
		out = append(out, SubscriptionRecord{
			CustomerRecord:      customerRecord(l),
			DaysUntilExpiration: daysBetween(now, *l.ExpiresAt),
			RenewalCount:        l.RenewalCount,
			Active:              l.Active,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(*out[j].ExpiresAt)
	})
	return out, nil
}

// Expired returns lapsed subscriptions, longest lapsed first
func (m *Manager) Expired(ctx context.Context) ([]SubscriptionRecord, error) {
	db, err := m.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	now := m.clock()

	var out []SubscriptionRecord
	for _, l := range db.Licenses {
		if l.Type != TypeSubscription || l.ExpiresAt == nil || !l.ExpiresAt.Before(now) {
			continue
		}
		out = append(out, SubscriptionRecord{
			CustomerRecord: customerRecord(l),
			DaysExpired:    daysBetween(*l.ExpiresAt, now),
			RenewalCount:   l.RenewalCount,
			Active:         l.Active,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(*out[j].ExpiresAt)
	})
	return out, nil
}

// Search matches activated licenses by contact data or key fragment
func (m *Manager) Search(ctx context.Context, query string) ([]CustomerRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []CustomerRecord{}, nil
	}

	db, err := m.store.Read(ctx)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(query)
	upper := strings.ToUpper(query)
	contains := func(field string) bool {
		return field != "" && strings.Contains(strings.ToLower(field), lower)
	}

	records := []CustomerRecord{}
	for _, l := range activatedLicenses(db) {
		if contains(l.CustomerEmail) ||
			(l.CustomerPhone != "" && strings.Contains(l.CustomerPhone, lower)) ||
			contains(l.CustomerBusiness) ||
			contains(l.CustomerName) ||
			strings.Contains(l.Key, upper) {
			records = append(records, customerRecord(l))
		}
	}
	return records, nil
}
