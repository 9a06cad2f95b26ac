package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending        = "pending"
	OrderStatusPreparing      = "preparing"
	OrderStatusReady          = "ready"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCompleted      = "completed"
	OrderStatusCanceled       = "canceled"
)

const (
	DeliveryStatusPending    = "pending"
	DeliveryStatusInProgress = "in_progress"
	DeliveryStatusCompleted  = "completed"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

const (
	DriverStatusAvailable = "available"
	DriverStatusBusy      = "busy"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	OrderTypeDelivery = "delivery"
	OrderTypeTakeaway = "takeaway"
	OrderTypeInStore  = "instore"
)

const (
	UserRoleAdmin = "ADMIN"
	UserRoleStaff = "STAFF"
)

// ── Group D: Conventions ──

// DeletedNumberPrefix marks a soft-deleted order. Every list and count query
// must exclude numbers starting with it.
const DeletedNumberPrefix = "DELETED_"

// OrderNumberWidth is the zero-padded width of a sequential order number.
const OrderNumberWidth = 6
