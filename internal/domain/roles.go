package domain

// Role is a user's function within a project. A user may hold several
// roles in the same project at once.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleCoOwner      Role = "co_owner"
	RoleForeman      Role = "foreman"
	RoleTradesperson Role = "tradesperson"
	RoleDesigner     Role = "designer"
	RoleSupplier     Role = "supplier"
	RoleExpert       Role = "expert"
	RoleViewer       Role = "viewer"
)

// Permission is a granular action that can be allowed or denied per role.
type Permission string

const (
	PermCreateProject Permission = "create_project"
	PermEditProject   Permission = "edit_project"
	PermLaunchProject Permission = "launch_project"
	PermCloseProject  Permission = "close_project"
	PermInviteMember  Permission = "invite_member"

	PermViewStages        Permission = "view_stages"
	PermEditStage         Permission = "edit_stage"
	PermUpdateStatus      Permission = "update_status"
	PermAddSubStages      Permission = "add_sub_stages"
	PermApproveCheckpoint Permission = "approve_checkpoint"

	PermViewBudget    Permission = "view_budget"
	PermEditBudget    Permission = "edit_budget"
	PermConfirmBudget Permission = "confirm_budget"

	PermViewReports   Permission = "view_reports"
	PermRequestReport Permission = "request_report"

	PermViewMyStage Permission = "view_my_stage"
	PermSendStatus  Permission = "send_status"
	PermProposeWork Permission = "propose_work"

	PermRequestExpert     Permission = "request_expert"
	PermConductInspection Permission = "conduct_inspection"
)

// RolePermissions maps each role to the set of actions it allows.
var RolePermissions = map[Role]map[Permission]bool{
	RoleOwner: permSet(
		PermCreateProject, PermEditProject, PermLaunchProject, PermCloseProject,
		PermInviteMember, PermViewStages, PermEditStage, PermUpdateStatus,
		PermAddSubStages, PermApproveCheckpoint, PermViewBudget, PermEditBudget,
		PermConfirmBudget, PermViewReports, PermRequestReport, PermViewMyStage,
		PermRequestExpert,
	),
	RoleCoOwner: permSet(
		PermViewStages, PermViewBudget, PermViewReports, PermRequestReport,
		PermViewMyStage, PermRequestExpert,
	),
	RoleForeman: permSet(
		PermInviteMember, PermViewStages, PermEditStage, PermUpdateStatus,
		PermAddSubStages, PermViewBudget, PermEditBudget, PermViewReports,
		PermViewMyStage, PermSendStatus, PermProposeWork,
	),
	RoleTradesperson: permSet(
		PermViewStages, PermViewMyStage, PermSendStatus, PermProposeWork,
	),
	RoleDesigner: permSet(
		PermViewStages, PermEditStage, PermAddSubStages, PermViewBudget,
		PermViewReports, PermViewMyStage, PermSendStatus,
	),
	RoleSupplier: permSet(
		PermViewMyStage, PermSendStatus,
	),
	RoleExpert: permSet(
		PermViewStages, PermViewBudget, PermConductInspection,
	),
	RoleViewer: permSet(
		PermViewStages, PermViewBudget, PermViewReports,
	),
}

// RoleLabels are human-readable Russian labels.
var RoleLabels = map[Role]string{
	RoleOwner:        "👑 Владелец",
	RoleCoOwner:      "👥 Совладелец",
	RoleForeman:      "👷 Прораб",
	RoleTradesperson: "🔧 Мастер",
	RoleDesigner:     "🎨 Дизайнер",
	RoleSupplier:     "📦 Поставщик",
	RoleExpert:       "🔍 Эксперт",
	RoleViewer:       "👁 Наблюдатель",
}

// AssignableRoles can be given via /invite. Owner is excluded: there is
// exactly one per project, set at creation.
var AssignableRoles = []Role{
	RoleCoOwner, RoleForeman, RoleTradesperson, RoleDesigner,
	RoleSupplier, RoleExpert, RoleViewer,
}

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	_, ok := RolePermissions[Role(s)]
	return ok
}

// HasPermission reports whether ANY of the roles grants the permission.
func HasPermission(roles []Role, perm Permission) bool {
	for _, r := range roles {
		if RolePermissions[r][perm] {
			return true
		}
	}
	return false
}

// PermissionsFor returns the union of all permissions of the given roles.
func PermissionsFor(roles []Role) map[Permission]bool {
	union := make(map[Permission]bool)
	for _, r := range roles {
		for p := range RolePermissions[r] {
			union[p] = true
		}
	}
	return union
}

func permSet(perms ...Permission) map[Permission]bool {
	s := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		s[p] = true
	}
	return s
}
