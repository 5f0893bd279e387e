package domain

import "time"

// Reservation is one ledger row: a booking holding an equipment unit for a
// calendar day (UTC).
type Reservation struct {
	BookingID   string
	EquipmentID string
	Day         time.Time
	Quantity    int
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewReservations expands a booking into one row per equipment line per day
// of its range, both endpoints included.
func NewReservations(b Booking) []Reservation {
	first, last := truncateDay(b.StartDate), truncateDay(b.EndDate)
	var out []Reservation
	for _, line := range b.EquipmentList {
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			out = append(out, Reservation{
				BookingID:   b.ID,
				EquipmentID: line.EquipmentID,
				Day:         d,
				Quantity:    line.Quantity,
			})
		}
	}
	return out
}
