package election

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

func TestCanPerformSuperadminHasEverything(t *testing.T) {
	for _, resource := range allResources {
		for _, action := range allActions {
			require.True(t, CanPerform("superadmin", resource, action), "%s:%s", resource, action)
		}
	}
	require.True(t, CanPerform("  SuperAdmin \n", ResourceAdmins, ActionDelete))
}

func TestCanPerformModeratorTable(t *testing.T) {
	for _, resource := range []Resource{ResourceVoters, ResourceVotingControl, ResourceAdmins} {
		for _, action := range allActions {
			require.False(t, CanPerform("moderator", resource, action), "%s:%s", resource, action)
		}
	}
	for _, resource := range []Resource{ResourceDashboard, ResourceCandidates, ResourceAnnouncements, ResourceResults} {
		require.True(t, CanPerform(" moderator ", resource, ActionView))
		require.False(t, CanPerform("moderator", resource, ActionCreate))
		require.False(t, CanPerform("moderator", resource, ActionEdit))
		require.False(t, CanPerform("moderator", resource, ActionDelete))
	}
}

func TestCanPerformUnknownRoleFailsClosed(t *testing.T) {
	require.False(t, CanPerform("owner", ResourceVoters, ActionView))
	require.False(t, CanPerform("", ResourceCandidates, ActionEdit))
	require.True(t, CanPerform("owner", ResourceResults, ActionView))
}

func TestParseResourceAndAction(t *testing.T) {
	resource, err := ParseResource(" votingcontrol ")
	require.NoError(t, err)
	require.Equal(t, ResourceVotingControl, resource)

	action, err := ParseAction("EDIT")
	require.NoError(t, err)
	require.Equal(t, ActionEdit, action)

	_, err = ParseResource("ballots")
	require.Error(t, err)
}

func TestPermissionsFor(t *testing.T) {
	require.Len(t, PermissionsFor(models.RoleSuperadmin), len(allResources)*len(allActions))
	require.ElementsMatch(t, []string{"dashboard:view", "candidates:view", "announcements:view", "results:view"}, PermissionsFor(models.RoleModerator))
}
