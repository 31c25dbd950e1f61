package election

import (
	"fmt"
	"strings"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// Resource is an area of the admin console.
type Resource string

const (
	ResourceDashboard     Resource = "dashboard"
	ResourceVoters        Resource = "voters"
	ResourceCandidates    Resource = "candidates"
	ResourceAnnouncements Resource = "announcements"
	ResourceResults       Resource = "results"
	ResourceVotingControl Resource = "votingControl"
	ResourceAdmins        Resource = "admins"
)

// Action is an operation on a resource.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

var (
	allResources = []Resource{ResourceDashboard, ResourceVoters, ResourceCandidates, ResourceAnnouncements, ResourceResults, ResourceVotingControl, ResourceAdmins}
	allActions   = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}

	moderatorViewable = map[Resource]struct{}{
		ResourceDashboard:     {},
		ResourceCandidates:    {},
		ResourceAnnouncements: {},
		ResourceResults:       {},
	}
)

// ParseResource matches raw against the known resources, ignoring case.
func ParseResource(raw string) (Resource, error) {
	trimmed := strings.TrimSpace(raw)
	for _, resource := range allResources {
		if strings.EqualFold(string(resource), trimmed) {
			return resource, nil
		}
	}
	return "", fmt.Errorf("unknown resource %q", raw)
}

// ParseAction matches raw against the known actions, ignoring case.
func ParseAction(raw string) (Action, error) {
	trimmed := strings.TrimSpace(raw)
	for _, action := range allActions {
		if strings.EqualFold(string(action), trimmed) {
			return action, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", raw)
}

// ResolveRole normalises a raw role. Anything other than superadmin is treated as moderator.
func ResolveRole(raw string) models.Role {
	if role, err := models.ParseRole(raw); err == nil {
		return role
	}
	return models.RoleModerator
}

// CanPerform reports whether role may perform action on resource.
func CanPerform(role string, resource Resource, action Action) bool {
	switch ResolveRole(role) {
	case models.RoleSuperadmin:
		return true
	default:
		if action != ActionView {
			return false
		}
		_, ok := moderatorViewable[resource]
		return ok
	}
}

// PermissionsFor lists the "resource:action" grants of role.
func PermissionsFor(role models.Role) []string {
	permissions := make([]string, 0)
	for _, resource := range allResources {
		for _, action := range allActions {
			if CanPerform(string(role), resource, action) {
				permissions = append(permissions, string(resource)+":"+string(action))
			}
		}
	}
	return permissions
}
