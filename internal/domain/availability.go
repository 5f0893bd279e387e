package domain

import "time"

// CommittingStatuses are the booking statuses that hold equipment.
var CommittingStatuses = []BookingStatus{StatusConfirmed, StatusInProgress}

func (s BookingStatus) Commits() bool {
	for _, c := range CommittingStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// Overlaps is the closed-interval test: ranges sharing an endpoint overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

type ItemAvailability struct {
	EquipmentID string `json:"equipmentId"`
	Requested   int    `json:"requestedQuantity"`
	Booked      int    `json:"bookedQuantity"`
	Available   bool   `json:"isAvailable"`
}

type AvailabilityResult struct {
	Available bool               `json:"isAvailable"`
	StartDate time.Time          `json:"startDate"`
	EndDate   time.Time          `json:"endDate"`
	Items     []ItemAvailability `json:"items"`
}

type EquipmentAvailability struct {
	Equipment
	BookedQuantity int  `json:"bookedQuantity"`
	IsAvailable    bool `json:"isAvailable"`
}

// CommittedQuantities sums, per equipment id, the quantities held by
// committing bookings that overlap [start, end].
func CommittedQuantities(existing []Booking, start, end time.Time) map[string]int {
	committed := make(map[string]int)
	for _, b := range existing {
		if !b.Status.Commits() || !Overlaps(b.StartDate, b.EndDate, start, end) {
			continue
		}
		for _, line := range b.EquipmentList {
			committed[line.EquipmentID] += line.Quantity
		}
	}
	return committed
}

// CheckAvailability marks an item unavailable as soon as any quantity of it is
// committed in the range; every catalog row counts as one rentable unit.
func CheckAvailability(items []ItemRequest, start, end time.Time, existing []Booking) AvailabilityResult {
	committed := CommittedQuantities(existing, start, end)
	res := AvailabilityResult{
		Available: true,
		StartDate: start,
		EndDate:   end,
		Items:     make([]ItemAvailability, 0, len(items)),
	}
	for _, item := range items {
		booked := committed[item.EquipmentID]
		ia := ItemAvailability{
			EquipmentID: item.EquipmentID,
			Requested:   item.Quantity,
			Booked:      booked,
			Available:   booked == 0,
		}
		if !ia.Available {
			res.Available = false
		}
		res.Items = append(res.Items, ia)
	}
	return res
}

func AnnotateCatalog(catalog []Equipment, start, end time.Time, existing []Booking) []EquipmentAvailability {
	committed := CommittedQuantities(existing, start, end)
	out := make([]EquipmentAvailability, 0, len(catalog))
	for _, e := range catalog {
		booked := committed[e.ID]
		out = append(out, EquipmentAvailability{Equipment: e, BookedQuantity: booked, IsAvailable: booked == 0})
	}
	return out
}
