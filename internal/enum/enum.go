package enum

// ── State machine (CHECK constrained in DB) ──

const (
	OrderStatusNew        = "new"
	OrderStatusInProgress = "in_progress"
	OrderStatusFinished   = "finished"
	OrderStatusCanceled   = "canceled"
)

// ── Roles (CHECK constrained in DB) ──

const (
	RoleAdmin     = "ADMIN"
	RoleManager   = "MANAGER"
	RoleBrigadier = "BRIGADIER"
	RoleCleaner   = "CLEANER"
)

const (
	PaymentTypeCash     = "cash"
	PaymentTypeCashless = "cashless"
)

// ── Units (CHECK constrained in DB) ──

const (
	ServiceUnitSquareMeter = "square_meter"
	ServiceUnitPiece       = "piece"
)

const (
	CleanserUnitPiece = "piece"
	CleanserUnitLiter = "liter"
	CleanserUnitKg    = "kg"
)

// ── Notification events ──

const (
	EventOrderCreated  = "order_created"
	EventStaffAdded    = "staff_added"
	EventStaffRemoved  = "staff_removed"
	EventOrderFinished = "order_finished"
)

// IsTerminalStatus reports whether no further transitions are allowed.
func IsTerminalStatus(s string) bool {
	return s == OrderStatusFinished || s == OrderStatusCanceled
}

func IsFieldRole(role string) bool {
	return role == RoleBrigadier || role == RoleCleaner
}
