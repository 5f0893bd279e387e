package domain

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// PricingPolicy holds the rate constants used to price a booking.
type PricingPolicy struct {
	DailyRateRatio       float64
	HourlyRateRatio      float64
	TaxRate              float64
	ServiceChargeByType  map[string]float64
	DefaultServiceCharge float64
}

func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		DailyRateRatio:  0.10,
		HourlyRateRatio: 0.15,
		TaxRate:         0.18,
		ServiceChargeByType: map[string]float64{
			BookingTypeFunctionShoot:   5000,
			BookingTypeCustomEvent:     5000,
			BookingTypeEquipmentRental: 500,
		},
		DefaultServiceCharge: 1000,
	}
}

type ItemRequest struct {
	EquipmentID string `json:"equipmentId"`
	Quantity    int    `json:"quantity"`
}

type QuoteRequest struct {
	BookingType string
	Items       []ItemRequest
	StartDate   time.Time
	EndDate     time.Time
	// TotalDays overrides the day count derived from the date range when > 0.
	TotalDays    int
	IncludeHours bool
	TotalHours   float64
}

type Quote struct {
	Lines      []EquipmentLine  `json:"equipmentList"`
	TotalDays  int              `json:"totalDays"`
	TotalHours float64          `json:"totalHours,omitempty"`
	Pricing    Pricing          `json:"pricing"`
	Package    *PackageSnapshot `json:"package,omitempty"`
}

// TotalDays counts both endpoints: a same-day booking is one day and
// consecutive calendar days are two.
func TotalDays(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, InvalidInputf("end date %s is before start date %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return int(math.Ceil(float64(end.Sub(start))/float64(day))) + 1, nil
}

func (p PricingPolicy) ServiceCharge(bookingType string) float64 {
	if c, ok := p.ServiceChargeByType[bookingType]; ok {
		return c
	}
	return p.DefaultServiceCharge
}

func (p PricingPolicy) DailyRate(e Equipment) float64 {
	return e.Price * p.DailyRateRatio
}

func (p PricingPolicy) Tax(subtotal float64) float64 {
	return math.Round(subtotal * p.TaxRate)
}

// Quote prices a request against the equipment catalog entries it references
// and an optional plan. catalog must contain every requested equipment id.
func (p PricingPolicy) Quote(req QuoteRequest, catalog map[string]Equipment, plan *SubscriptionPlan) (Quote, error) {
	totalDays := req.TotalDays
	if totalDays <= 0 {
		var err error
		totalDays, err = TotalDays(req.StartDate, req.EndDate)
		if err != nil {
			return Quote{}, err
		}
	}

	q := Quote{TotalDays: totalDays, Lines: make([]EquipmentLine, 0, len(req.Items))}
	hourly := req.IncludeHours && req.TotalHours > 0
	if hourly {
		q.TotalHours = req.TotalHours
	}

	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return Quote{}, InvalidInputf("quantity for equipment %s must be positive", item.EquipmentID)
		}
		eq, ok := catalog[item.EquipmentID]
		if !ok {
			return Quote{}, NotFoundf("equipment %s not found", item.EquipmentID)
		}
		rate := p.DailyRate(eq)
		line := EquipmentLine{
			EquipmentID: item.EquipmentID,
			Name:        eq.Name,
			Quantity:    item.Quantity,
			DailyRate:   rate,
			TotalDays:   totalDays,
			LineTotal:   rate * float64(item.Quantity) * float64(totalDays),
		}
		if hourly {
			line.LineTotal += rate * p.HourlyRateRatio * float64(item.Quantity) * req.TotalHours
		}
		q.Pricing.EquipmentTotal += line.LineTotal
		q.Lines = append(q.Lines, line)
	}

	if plan != nil {
		if !plan.IsActive {
			return Quote{}, InvalidStatef("subscription plan %s is not active", plan.ID)
		}
		q.Pricing.PackageAmount = plan.Price
		q.Package = &PackageSnapshot{
			PlanID:   plan.ID,
			Name:     plan.Name,
			Price:    plan.Price,
			Manpower: plan.Manpower,
		}
	}

	q.Pricing.ServiceCharges = p.ServiceCharge(req.BookingType)
	subtotal := q.Pricing.EquipmentTotal + q.Pricing.PackageAmount + q.Pricing.ServiceCharges
	q.Pricing.Taxes = p.Tax(subtotal)
	q.Pricing.TotalAmount = subtotal + q.Pricing.Taxes - q.Pricing.Discount
	q.Pricing.RemainingAmount = q.Pricing.TotalAmount
	return q, nil
}

// Reprice recomputes a booking's pricing for a new date range using the daily
// rates stored on its lines. The tax base and the total are
// equipmentTotal + serviceCharges: packageAmount stays on the record but is not
// carried into the recomputed total.
func (p PricingPolicy) Reprice(b *Booking, start, end time.Time) error {
	totalDays, err := TotalDays(start, end)
	if err != nil {
		return err
	}

	var equipmentTotal float64
	for i := range b.EquipmentList {
		line := &b.EquipmentList[i]
		line.TotalDays = totalDays
		line.LineTotal = line.DailyRate * float64(line.Quantity) * float64(totalDays)
		equipmentTotal += line.LineTotal
	}

	b.StartDate = start
	b.EndDate = end
	b.TotalDays = totalDays
	b.Pricing.EquipmentTotal = equipmentTotal
	subtotal := equipmentTotal + b.Pricing.ServiceCharges
	b.Pricing.Taxes = p.Tax(subtotal)
	b.Pricing.TotalAmount = subtotal + b.Pricing.Taxes
	b.recalcBalance()
	return nil
}
