package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleFieldRep, ActionSubmit, true},
		{RoleFieldRep, ActionApproveDirectorStage, false},
		{RoleFieldRep, ActionViewTeam, false},
		{RoleDirector, ActionApproveDirectorStage, true},
		{RoleDirector, ActionApproveFinanceStage, false},
		{RoleDirector, ActionViewTeam, true},
		{RoleFinanceValidator, ActionApproveFinanceStage, true},
		{RoleFinanceValidator, ActionViewAll, true},
		{RoleGeneralDirection, ActionApproveFinanceStage, true},
		{RoleAdministrator, ActionApproveFinanceStage, true},
		{RoleAdministrator, ActionReject, true},
		{Role("INTERN"), ActionSubmit, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HasPermission(tc.role, tc.action), "%s %s", tc.role, tc.action)
	}
}

func TestCanValidateAtState(t *testing.T) {
	director := "dir-1"
	creator := &Actor{ID: "rep-1", Role: RoleFieldRep, SupervisingDirectorID: &director}

	t.Run("director stage", func(t *testing.T) {
		req := &Request{ID: "req-1", CreatorID: "rep-1", State: StatePendingDirector}

		assert.True(t, CanValidateAtState(RoleDirector, "dir-1", req, creator))
		assert.False(t, CanValidateAtState(RoleDirector, "dir-2", req, creator))
		assert.False(t, CanValidateAtState(RoleFinanceValidator, "fin-1", req, creator))
		assert.False(t, CanValidateAtState(RoleAdministrator, "admin-1", req, creator))
	})

	t.Run("a director validates their own submission", func(t *testing.T) {
		req := &Request{ID: "req-1", CreatorID: "dir-1", State: StatePendingDirector}
		assert.True(t, CanValidateAtState(RoleDirector, "dir-1", req, nil))
	})

	t.Run("finance stage", func(t *testing.T) {
		req := &Request{ID: "req-1", CreatorID: "rep-1", State: StatePendingFinance}

		assert.True(t, CanValidateAtState(RoleFinanceValidator, "fin-1", req, nil))
		assert.True(t, CanValidateAtState(RoleGeneralDirection, "dg-1", req, nil))
		assert.True(t, CanValidateAtState(RoleAdministrator, "admin-1", req, nil))
		assert.False(t, CanValidateAtState(RoleDirector, "dir-1", req, nil))
		assert.False(t, CanValidateAtState(RoleFieldRep, "rep-1", req, nil))
	})

	t.Run("no validation outside pending states", func(t *testing.T) {
		for _, state := range []RequestState{StateDraft, StateApproved, StateRejected} {
			req := &Request{ID: "req-1", CreatorID: "rep-1", State: state}
			assert.False(t, CanValidateAtState(RoleFinanceValidator, "fin-1", req, nil), state)
		}
	})
}
