package policy_test

import (
	"testing"

	"github.com/cleaning-crm/api/internal/auth"
	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/policy"
	"github.com/stretchr/testify/assert"
)

func claims(id int64, role string) *auth.Claims {
	return &auth.Claims{StaffID: id, Role: role}
}

func TestCanManageOrder(t *testing.T) {
	order := database.Order{ID: 1, ManagerID: 10, Status: "new"}

	tests := []struct {
		name   string
		claims *auth.Claims
		want   bool
	}{
		{"admin", claims(1, "ADMIN"), true},
		{"owning manager", claims(10, "MANAGER"), true},
		{"other manager", claims(11, "MANAGER"), false},
		{"brigadier with manager id", claims(10, "BRIGADIER"), false},
		{"anonymous", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.CanManageOrder(tt.claims, order))
		})
	}
}

func TestCanSettle(t *testing.T) {
	manager := claims(10, "MANAGER")

	assert.True(t, policy.CanSettle(manager, database.Order{ManagerID: 10, Status: "in_progress"}))
	assert.False(t, policy.CanSettle(manager, database.Order{ManagerID: 10, Status: "finished"}))
	assert.False(t, policy.CanSettle(manager, database.Order{ManagerID: 10, Status: "canceled"}))
	assert.False(t, policy.CanSettle(manager, database.Order{ManagerID: 99, Status: "new"}))
}

func TestRoleChecks(t *testing.T) {
	assert.True(t, policy.IsAdmin(claims(1, "ADMIN")))
	assert.False(t, policy.IsAdmin(claims(1, "MANAGER")))

	assert.True(t, policy.IsManager(claims(1, "ADMIN")))
	assert.True(t, policy.IsManager(claims(1, "MANAGER")))
	assert.False(t, policy.IsManager(claims(1, "CLEANER")))

	assert.True(t, policy.IsFieldStaff(claims(1, "BRIGADIER")))
	assert.True(t, policy.IsFieldStaff(claims(1, "CLEANER")))
	assert.False(t, policy.IsFieldStaff(claims(1, "MANAGER")))
	assert.False(t, policy.IsFieldStaff(nil))
}

func TestCanEditStaff(t *testing.T) {
	assert.True(t, policy.CanEditStaff(claims(1, "ADMIN"), 5))
	assert.True(t, policy.CanEditStaff(claims(5, "CLEANER"), 5))
	assert.False(t, policy.CanEditStaff(claims(6, "MANAGER"), 5))
}
