package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ReservationModeOff, cfg.ReservationMode)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 0.18, cfg.Pricing.TaxRate)
	assert.Equal(t, 500.0, cfg.Pricing.ServiceCharge("Equipment Rental"))
}

func TestLoad_PricingOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PRICING_TAX_RATE", "0.05")
	t.Setenv("PRICING_SERVICE_CHARGES", "Function Shoot=7000; Equipment Rental=250")
	t.Setenv("PRICING_DEFAULT_SERVICE_CHARGE", "900")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.Pricing.TaxRate)
	assert.Equal(t, 7000.0, cfg.Pricing.ServiceCharge("Function Shoot"))
	assert.Equal(t, 250.0, cfg.Pricing.ServiceCharge("Equipment Rental"))
	assert.Equal(t, 900.0, cfg.Pricing.ServiceCharge("Custom Event Booking"))
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("RESERVATION_MODE", "pessimistic")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("RESERVATION_MODE", "ledger")
	t.Setenv("PRICING_SERVICE_CHARGES", "Function Shoot")
	_, err = Load()
	assert.Error(t, err)
}
