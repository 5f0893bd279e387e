package domain

import "time"

type BookingStatus string

const (
	StatusPending    BookingStatus = "Pending"
	StatusConfirmed  BookingStatus = "Confirmed"
	StatusInProgress BookingStatus = "InProgress"
	StatusCompleted  BookingStatus = "Completed"
	StatusCancelled  BookingStatus = "Cancelled"
	StatusRefunded   BookingStatus = "Refunded"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pending"
	PaymentPartial  PaymentStatus = "Partial"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentRefunded PaymentStatus = "Refunded"
)

type PaymentRequestStatus string

const (
	PaymentRequestPending  PaymentRequestStatus = "Pending"
	PaymentRequestAccepted PaymentRequestStatus = "Accepted"
	PaymentRequestRejected PaymentRequestStatus = "Rejected"
)

type ReturnStatus string

const (
	ReturnNotReturned ReturnStatus = "NotReturned"
	ReturnReturned    ReturnStatus = "Returned"
	ReturnDamaged     ReturnStatus = "Damaged"
	ReturnLost        ReturnStatus = "Lost"
)

// Booking types with a dedicated service charge tier. Any other value is
// accepted and billed at the default tier.
const (
	BookingTypeFunctionShoot   = "Function Shoot"
	BookingTypeCustomEvent     = "Custom Event Booking"
	BookingTypeEquipmentRental = "Equipment Rental"
	BookingTypeStudio          = "Studio Booking"
)

type EquipmentLine struct {
	EquipmentID string  `bson:"equipmentId" json:"equipmentId"`
	Name        string  `bson:"name" json:"name"`
	Quantity    int     `bson:"quantity" json:"quantity"`
	DailyRate   float64 `bson:"dailyRate" json:"dailyRate"`
	TotalDays   int     `bson:"totalDays" json:"totalDays"`
	LineTotal   float64 `bson:"lineTotal" json:"lineTotal"`
}

type EventDetails struct {
	Venue        string `bson:"venue" json:"venue"`
	Address      string `bson:"address" json:"address"`
	ContactName  string `bson:"contactName" json:"contactName"`
	ContactPhone string `bson:"contactPhone" json:"contactPhone"`
	GuestCount   int    `bson:"guestCount" json:"guestCount"`
}

type Pricing struct {
	EquipmentTotal  float64 `bson:"equipmentTotal" json:"equipmentTotal"`
	PackageAmount   float64 `bson:"packageAmount" json:"packageAmount"`
	ServiceCharges  float64 `bson:"serviceCharges" json:"serviceCharges"`
	Taxes           float64 `bson:"taxes" json:"taxes"`
	Discount        float64 `bson:"discount" json:"discount"`
	TotalAmount     float64 `bson:"totalAmount" json:"totalAmount"`
	AdvanceAmount   float64 `bson:"advanceAmount" json:"advanceAmount"`
	RemainingAmount float64 `bson:"remainingAmount" json:"remainingAmount"`
}

type PaymentRequest struct {
	ID          string               `bson:"id" json:"id"`
	Amount      float64              `bson:"amount" json:"amount"`
	Method      string               `bson:"method" json:"method"`
	Status      PaymentRequestStatus `bson:"status" json:"status"`
	Notes       string               `bson:"notes,omitempty" json:"notes,omitempty"`
	RequestedAt time.Time            `bson:"requestedAt" json:"requestedAt"`
	ProcessedAt *time.Time           `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	ProcessedBy string               `bson:"processedBy,omitempty" json:"processedBy,omitempty"`
}

type Manpower struct {
	Photographers int `bson:"photographers" json:"photographers"`
	Videographers int `bson:"videographers" json:"videographers"`
	Assistants    int `bson:"assistants" json:"assistants"`
}

// PackageSnapshot freezes the plan terms at booking time so later plan edits
// do not change an existing booking.
type PackageSnapshot struct {
	PlanID   string   `bson:"planId" json:"planId"`
	Name     string   `bson:"name" json:"name"`
	Price    float64  `bson:"price" json:"price"`
	Manpower Manpower `bson:"manpower" json:"manpower"`
}

type EquipmentReturn struct {
	Status       ReturnStatus `bson:"status" json:"status"`
	ReturnDate   *time.Time   `bson:"returnDate,omitempty" json:"returnDate,omitempty"`
	DamageReport string       `bson:"damageReport,omitempty" json:"damageReport,omitempty"`
}

type StatusChange struct {
	From      BookingStatus `bson:"from" json:"from"`
	To        BookingStatus `bson:"to" json:"to"`
	By        string        `bson:"by" json:"by"`
	Reason    string        `bson:"reason,omitempty" json:"reason,omitempty"`
	ChangedAt time.Time     `bson:"changedAt" json:"changedAt"`
}

type Booking struct {
	ID            string           `bson:"_id" json:"id"`
	BookingID     string           `bson:"bookingId" json:"bookingId"`
	CustomerID    string           `bson:"customerId" json:"customerId"`
	BookingType   string           `bson:"bookingType" json:"bookingType"`
	EventType     string           `bson:"eventType" json:"eventType"`
	EquipmentList []EquipmentLine  `bson:"equipmentList" json:"equipmentList"`
	StartDate     time.Time        `bson:"startDate" json:"startDate"`
	EndDate       time.Time        `bson:"endDate" json:"endDate"`
	TotalDays     int              `bson:"totalDays" json:"totalDays"`
	TotalHours    float64          `bson:"totalHours,omitempty" json:"totalHours,omitempty"`
	EventDetails  EventDetails     `bson:"eventDetails" json:"eventDetails"`
	AssignedStaff []string         `bson:"assignedStaff" json:"assignedStaff"`
	Pricing       Pricing          `bson:"pricing" json:"pricing"`
	Status        BookingStatus    `bson:"status" json:"status"`
	PaymentStatus PaymentStatus    `bson:"paymentStatus" json:"paymentStatus"`
	Payments      []PaymentRequest `bson:"payments" json:"payments"`
	Package       *PackageSnapshot `bson:"package,omitempty" json:"package,omitempty"`
	Notes         string           `bson:"notes,omitempty" json:"notes,omitempty"`
	History       []StatusChange   `bson:"history" json:"history"`
	Return        EquipmentReturn  `bson:"equipmentReturn" json:"equipmentReturn"`
	CreatedAt     time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time        `bson:"updatedAt" json:"updatedAt"`
}

type BookingFilter struct {
	CustomerID string
	Status     BookingStatus
	Page       int
	Limit      int
}

// Equipment is a catalog row. Quantity and AvailableQuantity are stored for the
// back-office but availability treats each row as a single rentable unit.
type Equipment struct {
	ID                string    `bson:"_id" json:"id"`
	Name              string    `bson:"name" json:"name"`
	Slug              string    `bson:"slug" json:"slug"`
	Category          string    `bson:"category" json:"category"`
	Description       string    `bson:"description,omitempty" json:"description,omitempty"`
	Price             float64   `bson:"price" json:"price"`
	Rating            float64   `bson:"rating" json:"rating"`
	Image             string    `bson:"image,omitempty" json:"image,omitempty"`
	Quantity          int       `bson:"quantity" json:"quantity"`
	AvailableQuantity int       `bson:"availableQuantity" json:"availableQuantity"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

type SubscriptionPlan struct {
	ID                string    `bson:"_id" json:"id"`
	Name              string    `bson:"name" json:"name"`
	Description       string    `bson:"description,omitempty" json:"description,omitempty"`
	Price             float64   `bson:"price" json:"price"`
	DurationDays      int       `bson:"durationDays" json:"durationDays"`
	IncludedEquipment []string  `bson:"includedEquipment" json:"includedEquipment"`
	IncludedServices  []string  `bson:"includedServices" json:"includedServices"`
	Manpower          Manpower  `bson:"manpower" json:"manpower"`
	IsActive          bool      `bson:"isActive" json:"isActive"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "Pending"
	SubscriptionActive    SubscriptionStatus = "Active"
	SubscriptionExpired   SubscriptionStatus = "Expired"
	SubscriptionCancelled SubscriptionStatus = "Cancelled"
	SubscriptionSuspended SubscriptionStatus = "Suspended"
	SubscriptionRejected  SubscriptionStatus = "Rejected"
)

type Approval struct {
	ApprovedBy string     `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	RejectedBy string     `bson:"rejectedBy,omitempty" json:"rejectedBy,omitempty"`
	RejectedAt *time.Time `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	Notes      string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

type CustomerSubscription struct {
	ID         string             `bson:"_id" json:"id"`
	CustomerID string             `bson:"customerId" json:"customerId"`
	PlanID     string             `bson:"planId" json:"planId"`
	PlanName   string             `bson:"planName" json:"planName"`
	Status     SubscriptionStatus `bson:"status" json:"status"`
	StartDate  *time.Time         `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate    *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Approval   Approval           `bson:"approval" json:"approval"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
)

type User struct {
	ID            string    `bson:"_id" json:"id"`
	Email         string    `bson:"email" json:"email"`
	PasswordHash  string    `bson:"passwordHash" json:"-"`
	Name          string    `bson:"name" json:"name"`
	Phone         string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Address       string    `bson:"address,omitempty" json:"address,omitempty"`
	Role          Role      `bson:"role" json:"role"`
	IsBlacklisted bool      `bson:"isBlacklisted" json:"isBlacklisted"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

type RecipientType string

const (
	RecipientCustomer RecipientType = "customer"
	RecipientAdmin    RecipientType = "admin"
	RecipientStaff    RecipientType = "staff"
)

type Notification struct {
	ID            string        `bson:"_id" json:"id"`
	RecipientType RecipientType `bson:"recipientType" json:"recipientType"`
	RecipientID   string        `bson:"recipientId,omitempty" json:"recipientId,omitempty"`
	Type          string        `bson:"type" json:"type"`
	Title         string        `bson:"title" json:"title"`
	Message       string        `bson:"message" json:"message"`
	BookingID     string        `bson:"bookingId,omitempty" json:"bookingId,omitempty"`
	IsRead        bool          `bson:"isRead" json:"isRead"`
	CreatedAt     time.Time     `bson:"createdAt" json:"createdAt"`
}

type AuditEntry struct {
	ID        string                 `bson:"_id" json:"id"`
	Action    string                 `bson:"action" json:"action"`
	ActorID   string                 `bson:"actor_id" json:"actorId"`
	Timestamp time.Time              `bson:"timestamp" json:"timestamp"`
	Data      map[string]interface{} `bson:"data" json:"data"`
}
