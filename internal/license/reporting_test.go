package license

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomersAndStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.create(t, CreateRequest{CustomerName: "Tienda Ana"})
	b := h.create(t, CreateRequest{})
	sub := h.create(t, CreateRequest{Type: "suscripcion", Months: 1})
	h.create(t, CreateRequest{})

	_, err := h.manager.Validate(ctx, ValidateRequest{Key: a.Key, HardwareID: "H1", Customer: CustomerInfo{Email: "ana@shop.com"}})
	require.NoError(t, err)
	h.clock.Advance(time.Hour)
	_, err = h.manager.Validate(ctx, ValidateRequest{Key: b.Key, HardwareID: "H2", Customer: CustomerInfo{Phone: "555-0100", Business: "Bodega Luis"}})
	require.NoError(t, err)
	h.clock.Advance(time.Hour)
	_, err = h.manager.Validate(ctx, ValidateRequest{Key: sub.Key, HardwareID: "H3", Customer: CustomerInfo{Email: "sub@shop.com"}})
	require.NoError(t, err)

	customers, err := h.manager.Customers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, b.Key, customers[0].LicenseKey, "newest activation first")
	assert.Equal(t, "Bodega Luis", customers[0].Business)
	assert.Equal(t, a.Key, customers[1].LicenseKey)
	assert.Equal(t, "Tienda Ana", customers[1].Business, "business falls back to name")
	assert.Equal(t, "H1", customers[1].HardwareID)

	status, err := h.manager.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, status.Derived.TotalLicenses)
	assert.Equal(t, 2, status.Derived.ActivatedLicenses, "validated subscriptions are not activations")
	assert.Equal(t, 3, status.Derived.PerpetualLicenses)
	assert.Equal(t, 1, status.Derived.SubscriptionLicenses)
	assert.Equal(t, 1, status.CustomersWithEmail)
	assert.Equal(t, 1, status.CustomersWithPhone)
	assert.Equal(t, 2, status.CustomersWithBusiness)
	assert.Equal(t, 50, status.CompletionRate)
	assert.Len(t, status.RecentActivations, 2)
	assert.Equal(t, 4, status.Persisted.TotalLicenses)
}

func TestStatusEmpty(t *testing.T) {
	h := newHarness(t)

	status, err := h.manager.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status.CompletionRate)
	assert.Empty(t, status.RecentActivations)
}

func TestStatusRecentActivationsLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		l := h.create(t, CreateRequest{})
		h.clock.Advance(time.Minute)
		_, err := h.manager.Validate(ctx, ValidateRequest{Key: l.Key})
		require.NoError(t, err)
	}

	status, err := h.manager.Status(ctx)
	require.NoError(t, err)
	assert.Len(t, status.RecentActivations, 10)
	assert.Equal(t, "TEST-0000-0000-0012", status.RecentActivations[0].LicenseKey)
}

func TestList(t *testing.T) {
	h := newHarness(t)
	first := h.create(t, CreateRequest{})
	h.clock.Advance(time.Second)
	second := h.create(t, CreateRequest{Type: "suscripcion"})

	licenses, err := h.manager.List(context.Background())
	require.NoError(t, err)
	require.Len(t, licenses, 2)
	assert.Equal(t, first.Key, licenses[0].Key)
	assert.Equal(t, second.Key, licenses[1].Key)
}

func TestExpiringAndExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	soon := h.create(t, CreateRequest{Type: "suscripcion", Months: 1})
	later := h.create(t, CreateRequest{Type: "suscripcion", Months: 3})
	h.create(t, CreateRequest{})

	h.clock.Set(soon.ExpiresAt.Add(-60 * time.Hour))

	expiring, err := h.manager.Expiring(ctx, 7)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, soon.Key, expiring[0].LicenseKey)
	assert.Equal(t, 3, expiring[0].DaysUntilExpiration)

	expired, err := h.manager.Expired(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)

	h.clock.Set(later.ExpiresAt.Add(36 * time.Hour))

	expired, err = h.manager.Expired(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, soon.Key, expired[0].LicenseKey, "longest lapsed first")
	assert.Equal(t, later.Key, expired[1].LicenseKey)
	assert.Equal(t, 2, expired[1].DaysExpired)
	assert.Greater(t, expired[0].DaysExpired, expired[1].DaysExpired)

	expiring, err = h.manager.Expiring(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, expiring)
}

func TestExpiringWindowOrdering(t *testing.T) {
	h := newHarness(t)

	a := h.create(t, CreateRequest{Type: "suscripcion", Months: 2})
	b := h.create(t, CreateRequest{Type: "suscripcion", Months: 1})

	expiring, err := h.manager.Expiring(context.Background(), 90)
	require.NoError(t, err)
	require.Len(t, expiring, 2)
	assert.Equal(t, b.Key, expiring[0].LicenseKey)
	assert.Equal(t, a.Key, expiring[1].LicenseKey)
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.create(t, CreateRequest{})
	b := h.create(t, CreateRequest{CustomerName: "Farmacia Central"})
	h.create(t, CreateRequest{CustomerEmail: "pending@shop.com"})

	_, err := h.manager.Validate(ctx, ValidateRequest{Key: a.Key, Customer: CustomerInfo{Email: "Ana@Shop.com", Phone: "+51 999 111"}})
	require.NoError(t, err)
	_, err = h.manager.Validate(ctx, ValidateRequest{Key: b.Key})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"email case-insensitive", "ana@SHOP", []string{a.Key}},
		{"phone", "999", []string{a.Key}},
		{"name", "farmacia", []string{b.Key}},
		{"key fragment lower-case", "test-0000-0000-0002", []string{b.Key}},
		{"pending licenses excluded", "pending", nil},
		{"blank query", "  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := h.manager.Search(ctx, tt.query)
			require.NoError(t, err)

			var keys []string
			for _, r := range records {
				keys = append(keys, r.LicenseKey)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestStatsDerivedFromLicenses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.create(t, CreateRequest{})
	h.create(t, CreateRequest{})

	require.NoError(t, h.store.Update(ctx, func(db *Database) (bool, error) {
		db.Stats.TotalLicenses = 99
		db.Stats.ActiveLicenses = 42
		return true, nil
	}))

	stats, err := h.manager.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalLicenses)
	assert.Equal(t, 0, stats.ActiveLicenses)
}
