// Package policy holds one permission check per protected action. Handlers
// call these before any business logic and answer 403 on false.
package policy

import (
	"github.com/cleaning-crm/api/internal/auth"
	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/enum"
)

func IsAdmin(c *auth.Claims) bool {
	return c != nil && c.Role == enum.RoleAdmin
}

// IsManager is true for managers and admins.
func IsManager(c *auth.Claims) bool {
	return c != nil && (c.Role == enum.RoleManager || c.Role == enum.RoleAdmin)
}

func IsFieldStaff(c *auth.Claims) bool {
	return c != nil && enum.IsFieldRole(c.Role)
}

// CanManageOrder allows admins and the manager who owns the order.
func CanManageOrder(c *auth.Claims, o database.Order) bool {
	if c == nil {
		return false
	}
	return IsAdmin(c) || (c.Role == enum.RoleManager && c.StaffID == o.ManagerID)
}

func CanSettle(c *auth.Claims, o database.Order) bool {
	return CanManageOrder(c, o) && !enum.IsTerminalStatus(o.Status)
}

// CanEditStaff allows admins to edit anyone and everybody to edit themselves.
func CanEditStaff(c *auth.Claims, staffID int64) bool {
	return c != nil && (IsAdmin(c) || c.StaffID == staffID)
}
