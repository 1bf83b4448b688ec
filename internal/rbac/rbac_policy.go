package rbac

import "github.com/jesser-selmi/idos-front/internal/session"

const (
	ResourceRequest = "request"
	ResourceUser    = "user"
	ResourceProfile = "profile"

	ActionSubmit         = "submit"
	ActionReadOwn        = "read_own"
	ActionReadAll        = "read_all"
	ActionReview         = "review"
	ActionRead           = "read"
	ActionCreate         = "create"
	ActionUpdate         = "update"
	ActionDelete         = "delete"
	ActionUpdatePassword = "update_password"
)

// AnyRole is the policy subject shared by every role.
const AnyRole = "*"

type RolePermissionRow struct {
	Role     string
	Resource string
	Action   string
}

// DefaultPolicy is the capability table of the service.
func DefaultPolicy() []RolePermissionRow {
	admin := string(session.RoleAdmin)
	rh := string(session.RoleRH)
	user := string(session.RoleUser)
	intern := string(session.RoleIntern)

	return []RolePermissionRow{
		{admin, ResourceRequest, ActionReview},
		{admin, ResourceRequest, ActionReadAll},
		{admin, ResourceUser, ActionRead},
		{admin, ResourceUser, ActionCreate},
		{admin, ResourceUser, ActionUpdate},
		{admin, ResourceUser, ActionDelete},

		{rh, ResourceRequest, ActionReview},
		{rh, ResourceRequest, ActionReadAll},
		{rh, ResourceUser, ActionRead},

		{user, ResourceRequest, ActionSubmit},
		{user, ResourceRequest, ActionReadOwn},
		{intern, ResourceRequest, ActionSubmit},
		{intern, ResourceRequest, ActionReadOwn},

		{AnyRole, ResourceProfile, ActionRead},
		{AnyRole, ResourceProfile, ActionUpdatePassword},
	}
}

func allRoles() []session.Role {
	return []session.Role{session.RoleAdmin, session.RoleRH, session.RoleUser, session.RoleIntern}
}
