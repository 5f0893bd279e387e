package domain_test

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTotalDays(t *testing.T) {
	cases := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"same day", date(2025, 1, 10), date(2025, 1, 10), 1},
		{"consecutive days", date(2025, 1, 10), date(2025, 1, 11), 2},
		{"six day span", date(2025, 1, 10), date(2025, 1, 15), 6},
		{"partial day rounds up", date(2025, 1, 10), date(2025, 1, 11).Add(2 * time.Hour), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := domain.TotalDays(tc.start, tc.end)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := domain.TotalDays(date(2025, 1, 11), date(2025, 1, 10))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestServiceCharge(t *testing.T) {
	p := domain.DefaultPricingPolicy()
	assert.Equal(t, 500.0, p.ServiceCharge("Equipment Rental"))
	assert.Equal(t, 5000.0, p.ServiceCharge("Function Shoot"))
	assert.Equal(t, 5000.0, p.ServiceCharge("Custom Event Booking"))
	assert.Equal(t, 1000.0, p.ServiceCharge("Studio Booking"))
	assert.Equal(t, 1000.0, p.ServiceCharge(""))
}

func catalog() map[string]domain.Equipment {
	return map[string]domain.Equipment{
		"cam-1":  {ID: "cam-1", Name: "Sony A7 IV", Price: 20000},
		"lens-1": {ID: "lens-1", Name: "85mm f/1.4", Price: 5000},
	}
}

func TestQuote_EquipmentRental(t *testing.T) {
	p := domain.DefaultPricingPolicy()
	q, err := p.Quote(domain.QuoteRequest{
		BookingType: domain.BookingTypeEquipmentRental,
		Items: []domain.ItemRequest{
			{EquipmentID: "cam-1", Quantity: 1},
			{EquipmentID: "lens-1", Quantity: 2},
		},
		StartDate: date(2025, 1, 10),
		EndDate:   date(2025, 1, 12),
	}, catalog(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, q.TotalDays)
	require.Len(t, q.Lines, 2)
	assert.Equal(t, 2000.0, q.Lines[0].DailyRate)
	assert.Equal(t, 6000.0, q.Lines[0].LineTotal)
	assert.Equal(t, 500.0, q.Lines[1].DailyRate)
	assert.Equal(t, 3000.0, q.Lines[1].LineTotal)

	pr := q.Pricing
	assert.Equal(t, 9000.0, pr.EquipmentTotal)
	assert.Equal(t, 500.0, pr.ServiceCharges)
	assert.Equal(t, 1710.0, pr.Taxes)
	assert.Equal(t, 11210.0, pr.TotalAmount)
	assert.Equal(t, pr.TotalAmount, pr.RemainingAmount)
	assert.Equal(t, pr.EquipmentTotal+pr.PackageAmount+pr.ServiceCharges+pr.Taxes-pr.Discount, pr.TotalAmount)
}

func TestQuote_HourlyExtension(t *testing.T) {
	p := domain.DefaultPricingPolicy()
	q, err := p.Quote(domain.QuoteRequest{
		BookingType:  "Studio Booking",
		Items:        []domain.ItemRequest{{EquipmentID: "cam-1", Quantity: 2}},
		StartDate:    date(2025, 1, 10),
		EndDate:      date(2025, 1, 10),
		IncludeHours: true,
		TotalHours:   4,
	}, catalog(), nil)
	require.NoError(t, err)

	// 2000*2*1 + (2000*0.15)*2*4
	assert.Equal(t, 6400.0, q.Pricing.EquipmentTotal)
	assert.Equal(t, 1000.0, q.Pricing.ServiceCharges)
	assert.Equal(t, 1332.0, q.Pricing.Taxes)
	assert.Equal(t, 8732.0, q.Pricing.TotalAmount)
}

func TestQuote_HoursIgnoredWithoutFlag(t *testing.T) {
	p := domain.DefaultPricingPolicy()
	q, err := p.Quote(domain.QuoteRequest{
		Items:      []domain.ItemRequest{{EquipmentID: "cam-1", Quantity: 1}},
		StartDate:  date(2025, 1, 10),
		EndDate:    date(2025, 1, 10),
		TotalHours: 4,
	}, catalog(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, q.Pricing.EquipmentTotal)
}

func TestQuote_ExplicitTotalDays(t *testing.T) {
	p := domain.DefaultPricingPolicy()
	q, err := p.Quote(domain.QuoteRequest{
		Items:     []domain.ItemRequest{{EquipmentID: "lens-1", Quantity: 1}},
		StartDate: date(2025, 1, 10),
		EndDate:   date(2025, 1, 10),
		TotalDays: 5,
	}, catalog(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, q.TotalDays)
	assert.Equal(t, 2500.0, q.Pricing.EquipmentTotal)
}

func TestQuote_WithPlan(t *testing.T) {
	p := domain.DefaultPricingPolicy()
	plan := &domain.SubscriptionPlan{
		ID: "plan-gold", Name: "Gold", Price: 25000, IsActive: true,
		Manpower: domain.Manpower{Photographers: 2, Videographers: 1, Assistants: 1},
	}
	q, err := p.Quote(domain.QuoteRequest{
		BookingType: domain.BookingTypeFunctionShoot,
		Items:       []domain.ItemRequest{{EquipmentID: "cam-1", Quantity: 1}},
		StartDate:   date(2025, 3, 1),
		EndDate:     date(2025, 3, 1),
	}, catalog(), plan)
	require.NoError(t, err)

	require.NotNil(t, q.Package)
	assert.Equal(t, "plan-gold", q.Package.PlanID)
	assert.Equal(t, 2, q.Package.Manpower.Photographers)
	assert.Equal(t, 25000.0, q.Pricing.PackageAmount)
	assert.Equal(t, 5000.0, q.Pricing.ServiceCharges)
	// subtotal 2000 + 25000 + 5000 = 32000
	assert.Equal(t, 5760.0, q.Pricing.Taxes)
	assert.Equal(t, 37760.0, q.Pricing.TotalAmount)
}

func TestQuote_InactivePlan(t *testing.T) {
	p := domain.DefaultPricingPolicy()
	_, err := p.Quote(domain.QuoteRequest{
		StartDate: date(2025, 3, 1),
		EndDate:   date(2025, 3, 1),
	}, catalog(), &domain.SubscriptionPlan{ID: "old", Price: 100, IsActive: false})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestQuote_UnknownEquipment(t *testing.T) {
	p := domain.DefaultPricingPolicy()
	_, err := p.Quote(domain.QuoteRequest{
		Items:     []domain.ItemRequest{{EquipmentID: "ghost", Quantity: 1}},
		StartDate: date(2025, 3, 1),
		EndDate:   date(2025, 3, 1),
	}, catalog(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Contains(t, err.Error(), "ghost")
}

func TestQuote_TaxRounding(t *testing.T) {
	p := domain.DefaultPricingPolicy()
	cat := map[string]domain.Equipment{"x": {ID: "x", Price: 333}}
	q, err := p.Quote(domain.QuoteRequest{
		BookingType: domain.BookingTypeEquipmentRental,
		Items:       []domain.ItemRequest{{EquipmentID: "x", Quantity: 1}},
		StartDate:   date(2025, 3, 1),
		EndDate:     date(2025, 3, 1),
	}, cat, nil)
	require.NoError(t, err)
	// subtotal 33.3 + 500 = 533.3, 18% = 95.994
	assert.Equal(t, 96.0, q.Pricing.Taxes)
}

func TestPolicyIsInjectable(t *testing.T) {
	p := domain.PricingPolicy{
		DailyRateRatio:       0.5,
		TaxRate:              0,
		ServiceChargeByType:  map[string]float64{},
		DefaultServiceCharge: 0,
	}
	q, err := p.Quote(domain.QuoteRequest{
		Items:     []domain.ItemRequest{{EquipmentID: "lens-1", Quantity: 1}},
		StartDate: date(2025, 3, 1),
		EndDate:   date(2025, 3, 2),
	}, catalog(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, q.Pricing.TotalAmount)
}

func TestReprice_UsesStoredRateAndDropsPackage(t *testing.T) {
	p := domain.DefaultPricingPolicy()
	b := domain.Booking{
		EquipmentList: []domain.EquipmentLine{{EquipmentID: "cam-1", Quantity: 1, DailyRate: 1500, TotalDays: 1, LineTotal: 1500}},
		Pricing: domain.Pricing{
			EquipmentTotal: 1500,
			PackageAmount:  10000,
			ServiceCharges: 5000,
		},
	}
	require.NoError(t, p.Reprice(&b, date(2025, 2, 1), date(2025, 2, 3)))

	assert.Equal(t, 3, b.TotalDays)
	assert.Equal(t, 3, b.EquipmentList[0].TotalDays)
	assert.Equal(t, 4500.0, b.Pricing.EquipmentTotal)
	assert.Equal(t, 10000.0, b.Pricing.PackageAmount)
	// tax base 4500 + 5000
	assert.Equal(t, 1710.0, b.Pricing.Taxes)
	assert.Equal(t, 11210.0, b.Pricing.TotalAmount)
	assert.Equal(t, 11210.0, b.Pricing.RemainingAmount)
}
