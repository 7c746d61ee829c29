package audit

var descriptions = map[string]string{
	ActionOrganizationCreated: "Created organization",
	ActionOrganizationUpdated: "Updated organization settings",
	ActionMemberInvited:       "Invited member",
	ActionInvitationRevoked:   "Revoked invitation",
	ActionInvitationAccepted:  "Joined organization",
	ActionMemberRoleChanged:   "Changed member role",
	ActionMemberRemoved:       "Removed member",
	ActionProjectCreated:      "Created project",
	"project_updated":         "Updated project",
	ActionProjectDeleted:      "Deleted project",
	ActionTaskCreated:         "Created task",
	ActionTaskUpdated:         "Updated task",
	"task_deleted":            "Deleted task",
	"comment_created":         "Added comment",
}

// Describe returns the human-readable description of action, or action itself when unknown.
func Describe(action string) string {
	if d, ok := descriptions[action]; ok {
		return d
	}
	return action
}
