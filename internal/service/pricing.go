package service

import (
	"time"

	"github.com/cleaning-crm/api/internal/database"
	"github.com/shopspring/decimal"
)

var (
	MinRate = decimal.NewFromInt(1)
	MaxRate = decimal.NewFromInt(3)
)

// LineTotal is amount × price × rate, rounded to cents.
func LineTotal(amount int32, price, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt32(amount).Mul(price).Mul(rate).Round(2)
}

// ValidateRate wants 1.0 ≤ rate ≤ 3.0 with at most two decimal places, the
// precision of service_orders.rate.
func ValidateRate(rate decimal.Decimal) error {
	if rate.LessThan(MinRate) || rate.GreaterThan(MaxRate) || !rate.Equal(rate.Round(2)) {
		return ErrInvalidRate
	}
	return nil
}

func OrderTotal(lines []database.ServiceOrder) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total)
	}
	return total
}

// SalaryEntry is the default settlement line for one assigned staff member.
type SalaryEntry struct {
	StaffOrderID int64           `json:"staff_order_id"`
	StaffID      int64           `json:"staff_id"`
	IsBrigadier  bool            `json:"is_brigadier"`
	Salary       decimal.Decimal `json:"salary"`
	ShowBonus    bool            `json:"show_bonus"`
}

// SalaryStaffs splits the cleaners' part (or the order total when no part is
// set) evenly between assignments, rounded down to whole units so the
// defaults never exceed the cap. Every assignment must be accepted.
func SalaryStaffs(order database.Order, total decimal.Decimal, assignments []database.StaffOrder) ([]SalaryEntry, error) {
	if len(assignments) == 0 {
		return nil, ErrNotAllAccepted
	}
	for _, a := range assignments {
		if !a.IsAccept {
			return nil, ErrNotAllAccepted
		}
	}

	base := total
	if order.CleanersPart.Valid {
		base = order.CleanersPart.Decimal
	}
	share := base.Div(decimal.NewFromInt(int64(len(assignments)))).Floor()

	entries := make([]SalaryEntry, 0, len(assignments))
	for _, a := range assignments {
		entries = append(entries, SalaryEntry{
			StaffOrderID: a.ID,
			StaffID:      a.StaffID,
			IsBrigadier:  a.IsBrigadier,
			Salary:       share,
			ShowBonus:    a.IsBrigadier,
		})
	}
	return entries, nil
}

// GetBrigadier returns the brigadier assignment, if any.
func GetBrigadier(assignments []database.StaffOrder) (database.StaffOrder, bool) {
	for _, a := range assignments {
		if a.IsBrigadier {
			return a, true
		}
	}
	return database.StaffOrder{}, false
}

// Overlaps reports whether the closed intervals [aStart, aEnd] and
// [bStart, bEnd] share at least one instant.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// ISOWeekday maps Sunday to 7 instead of 0.
func ISOWeekday(t time.Time) int16 {
	wd := int16(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WorksOn reports whether schedule contains the ISO weekday of t.
func WorksOn(schedule []int16, t time.Time) bool {
	wd := ISOWeekday(t)
	for _, d := range schedule {
		if d == wd {
			return true
		}
	}
	return false
}

func WorkEnd(start time.Time, cleaningMinutes int32) time.Time {
	return start.Add(time.Duration(cleaningMinutes) * time.Minute)
}
