package models

// Role is the closed set of directory roles. Every actor carries exactly one.
type Role string

const (
	RoleFieldRep         Role = "FIELD_REP"
	RoleDirector         Role = "DIRECTOR"
	RoleFinanceValidator Role = "FINANCE_VALIDATOR"
	RoleGeneralDirection Role = "GENERAL_DIRECTION"
	RoleAdministrator    Role = "ADMINISTRATOR"
)

// Valid reports whether the role belongs to the closed enumeration. The
// switch is exhaustive on purpose: adding a role must be a compile-reviewed
// decision, not a silent fallthrough.
func (r Role) Valid() bool {
	switch r {
	case RoleFieldRep, RoleDirector, RoleFinanceValidator, RoleGeneralDirection, RoleAdministrator:
		return true
	}
	return false
}

// Action is a permission verb from the static role/permission table.
type Action string

const (
	ActionSubmit               Action = "SUBMIT"
	ActionApproveDirectorStage Action = "APPROVE_DIRECTOR_STAGE"
	ActionApproveFinanceStage  Action = "APPROVE_FINANCE_STAGE"
	ActionReject               Action = "REJECT"
	ActionViewOwn              Action = "VIEW_OWN"
	ActionViewTeam             Action = "VIEW_TEAM"
	ActionViewAll              Action = "VIEW_ALL"
)

var rolePermissions = map[Role]map[Action]struct{}{
	RoleFieldRep: permSet(ActionSubmit, ActionViewOwn),
	RoleDirector: permSet(ActionSubmit, ActionApproveDirectorStage, ActionReject,
		ActionViewOwn, ActionViewTeam),
	RoleFinanceValidator: permSet(ActionSubmit, ActionApproveFinanceStage, ActionReject,
		ActionViewOwn, ActionViewAll),
	RoleGeneralDirection: permSet(ActionSubmit, ActionApproveFinanceStage, ActionReject,
		ActionViewOwn, ActionViewAll),
	RoleAdministrator: permSet(ActionSubmit, ActionApproveFinanceStage, ActionReject,
		ActionViewOwn, ActionViewAll),
}

func permSet(actions ...Action) map[Action]struct{} {
	set := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// HasPermission consults the static role/permission table.
func HasPermission(role Role, action Action) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[action]
	return ok
}

// CanValidateAtState is the stage-specific authorization predicate. It is not
// a flat permission check: at the director stage the answer depends on who
// created the request and who supervises them. The creator argument is the
// directory record of the request's creator; it is only consulted at the
// director stage and may be nil otherwise.
func CanValidateAtState(role Role, actorID string, req *Request, creator *Actor) bool {
	if req == nil || actorID == "" {
		return false
	}

	switch req.State {
	case StatePendingDirector:
		if role != RoleDirector {
			return false
		}
		// A director validates their own request, or their field rep's.
		if actorID == req.CreatorID {
			return true
		}
		if creator != nil && creator.SupervisingDirectorID != nil {
			return actorID == *creator.SupervisingDirectorID
		}
		return false
	case StatePendingFinance:
		switch role {
		case RoleFinanceValidator, RoleGeneralDirection, RoleAdministrator:
			return true
		}
		return false
	default:
		// draft, approved and rejected accept no validation at all.
		return false
	}
}
