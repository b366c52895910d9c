package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
)

func TestStaticRoleMapper_Map(t *testing.T) {
	mapper := StaticRoleMapper{
		AdminGroup:   "admins",
		OwnerGroup:   "farm-owners",
		ManagerGroup: "farm-managers",
	}

	cases := []struct {
		name   string
		groups []string
		want   domainauth.Role
	}{
		{name: "admin group", groups: []string{"admins"}, want: domainauth.RoleAdmin},
		{name: "owner group", groups: []string{"farm-owners"}, want: domainauth.RoleFarmOwner},
		{name: "manager group", groups: []string{"farm-managers"}, want: domainauth.RoleFarmManager},
		{name: "no matching group", groups: []string{"staff"}, want: domainauth.RoleCollaborator},
		{name: "empty groups", groups: nil, want: domainauth.RoleCollaborator},
		{
			name:   "highest role wins",
			groups: []string{"farm-managers", "admins", "farm-owners"},
			want:   domainauth.RoleAdmin,
		},
		{
			name:   "owner beats manager",
			groups: []string{"farm-managers", "farm-owners"},
			want:   domainauth.RoleFarmOwner,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, mapper.Map(tc.groups))
		})
	}
}

func TestStaticRoleMapper_EmptyGroupNamesNeverMatch(t *testing.T) {
	mapper := StaticRoleMapper{}

	// A user with an empty-string group must not be promoted just because the
	// mapper's group names are unset.
	assert.Equal(t, domainauth.RoleCollaborator, mapper.Map([]string{""}))
}
