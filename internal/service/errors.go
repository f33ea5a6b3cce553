package service

import "errors"

// Input validation.
var (
	ErrInvalidRate         = errors.New("rate must be between 1.0 and 3.0 with at most two decimals")
	ErrInvalidAmount       = errors.New("amount must be > 0")
	ErrNegativeMoney       = errors.New("money values must not be negative")
	ErrMissingAddress      = errors.New("address is required")
	ErrMissingWorkStart    = errors.New("work_start is required")
	ErrInvalidCleaningTime = errors.New("cleaning_time must be > 0")
	ErrInvalidPaymentType  = errors.New("invalid payment_type")
	ErrEmptyServices       = errors.New("at least one service line is required")
	ErrInvalidLine         = errors.New("exactly one of service_id or extra_service_id is required")
	ErrTooManyBrigadiers   = errors.New("an order has at most one brigadier")
	ErrDuplicateStaff      = errors.New("staff member listed twice")
	ErrTooManyStaff        = errors.New("too many staff in one request")
	ErrInvalidCleanersPart = errors.New("cleaners_part must be > 0 and not exceed the order total")
	ErrInvalidWorkWindow   = errors.New("end must be after start")
	ErrUnsupportedImage    = errors.New("unsupported image type")
	ErrBonusNotAllowed     = errors.New("bonus is only allowed for the brigadier")
	ErrEntriesMismatch     = errors.New("one report entry per assigned staff member is required")
	ErrUnknownCleaner      = errors.New("cleaner is not assigned to this order")
	ErrSalaryCapExceeded   = errors.New("sum of salaries exceeds cleaners_part")
)

// Missing references.
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrClientNotFound     = errors.New("client not found")
	ErrServiceNotFound    = errors.New("service not found")
	ErrStaffNotFound      = errors.New("staff member not found")
	ErrInventoryNotFound  = errors.New("inventory item not found")
	ErrLineNotFound       = errors.New("service line not found")
	ErrAssignmentNotFound = errors.New("staff assignment not found")
)

// State conflicts.
var (
	ErrOrderClosed          = errors.New("order is already finished or canceled")
	ErrInvalidTransition    = errors.New("order is not in a state that allows this")
	ErrStaffNotEligible     = errors.New("staff member is not eligible for this order")
	ErrStaffAlreadyAssigned = errors.New("staff member is already assigned to this order")
	ErrInsufficientStock    = errors.New("not enough cleanser in stock")
	ErrReportExists         = errors.New("manager report already exists for this order")
	ErrNotAssigned          = errors.New("you are not assigned to this order")
	ErrNotAccepted          = errors.New("accept the order first")
	ErrNotBrigadier         = errors.New("only the brigadier can do this")
)

// Settlement preconditions, surfaced to the manager as warnings.
var (
	ErrNotAllAccepted     = errors.New("not all assigned staff have accepted the order")
	ErrCleanersPartNotSet = errors.New("set the cleaners' part of the order first")
)
