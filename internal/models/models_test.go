package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextID_Unambiguous(t *testing.T) {
	pairs := [][2]string{
		{"a_b", "c"},
		{"a", "b_c"},
		{"a:b", "c"},
		{"a", "b:c"},
		{"a%3Ab", "c"},
	}

	seen := map[string][2]string{}
	for _, p := range pairs {
		id := ContextID(p[0], p[1])
		prev, dup := seen[id]
		assert.False(t, dup, "%v and %v share id %q", prev, p, id)
		seen[id] = p
	}
	assert.Equal(t, "owner-1:rest-1", ContextID("owner-1", "rest-1"))
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		in    string
		want  Intent
		valid bool
	}{
		{"PLACE_ORDER", IntentPlaceOrder, true},
		{" revenue_query ", IntentRevenueQuery, true},
		{"UNKNOWN", IntentUnknown, true},
		{"PLACE ORDER", IntentUnknown, false},
		{"", IntentUnknown, false},
		{"MAKE_COFFEE", IntentUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseIntent(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestRoleLattice(t *testing.T) {
	assert.True(t, RoleOwner.Includes(RoleManager))
	assert.True(t, RoleManager.Includes(RoleAdmin))
	assert.True(t, RoleManager.Includes(RoleStaff))
	assert.True(t, RoleStaff.Includes(RoleWaiter))
	assert.False(t, RoleAdmin.Includes(RoleStaff))
	assert.False(t, RoleWaiter.Includes(RoleStaff))
	assert.False(t, Role("CHEF").Includes(RoleWaiter))
}

func TestRole_CanDelete(t *testing.T) {
	for role, want := range map[Role]bool{
		RoleOwner:   true,
		RoleManager: true,
		RoleAdmin:   false,
		RoleStaff:   false,
		RoleWaiter:  false,
		Role("X"):   false,
	} {
		assert.Equal(t, want, role.CanDelete(), string(role))
	}
}

func TestAccessGrant_Allows(t *testing.T) {
	tests := []struct {
		name  string
		grant *AccessGrant
		kind  OperationKind
		want  bool
	}{
		{"owner deletes", &AccessGrant{Role: RoleOwner, Permissions: DefaultPermissions(RoleOwner)}, KindDelete, true},
		{"manager deletes", &AccessGrant{Role: RoleManager, Permissions: DefaultPermissions(RoleManager)}, KindDelete, true},
		{"staff cannot delete even with permission", &AccessGrant{Role: RoleStaff, Permissions: []Permission{PermissionRead, PermissionWrite, PermissionDelete}}, KindDelete, false},
		{"waiter reads", &AccessGrant{Role: RoleWaiter, Permissions: DefaultPermissions(RoleWaiter)}, KindRead, true},
		{"waiter cannot write", &AccessGrant{Role: RoleWaiter, Permissions: DefaultPermissions(RoleWaiter)}, KindCreate, false},
		{"nil grant", nil, KindRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.grant.Allows(tt.kind))
		})
	}
}

func TestExecutionResult_AddSuffixesCollisions(t *testing.T) {
	res := NewExecutionResult()

	assert.Equal(t, "orders", res.Add(&OperationResult{Collection: "orders"}))
	assert.Equal(t, "orders#2", res.Add(&OperationResult{Collection: "orders"}))
	assert.Equal(t, "tables", res.Add(&OperationResult{Collection: "tables", ErrorCode: "FORBIDDEN"}))

	assert.Len(t, res.Ordered(), 3)
	assert.Equal(t, "tables", res.FirstError().Collection)
	assert.False(t, res.AllFailed())
}

func TestConversationContext_AppendMessageBounded(t *testing.T) {
	ctx := &ConversationContext{}
	for i := 0; i < 25; i++ {
		ctx.AppendMessage(ContextMessage{Role: MessageRoleUser, Text: string(rune('a' + i))}, 20)
	}

	assert.Len(t, ctx.Messages, 20)
	assert.Equal(t, string(rune('a'+5)), ctx.Messages[0].Text)
}

func TestDocumentHelpers(t *testing.T) {
	doc := Document{"id": "t1", "capacity": 6, "name": "5"}
	clone := doc.Clone()

	assert.Equal(t, "t1", clone.ID())
	assert.Equal(t, float64(6), clone["capacity"])

	f, ok := doc.Float("capacity")
	assert.True(t, ok)
	assert.Equal(t, 6.0, f)

	_, ok = ToFloat("abc")
	assert.False(t, ok)
}
