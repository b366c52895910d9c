package authroles

import (
	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
)

// StaticRoleMapper maps IdP groups to application roles by simple string
// membership. Groups are checked from most to least privileged so a user in
// several groups lands on the highest role.
type StaticRoleMapper struct {
	AdminGroup   string
	OwnerGroup   string
	ManagerGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	for _, g := range groups {
		if m.AdminGroup != "" && g == m.AdminGroup {
			return domainauth.RoleAdmin
		}
	}
	for _, g := range groups {
		if m.OwnerGroup != "" && g == m.OwnerGroup {
			return domainauth.RoleFarmOwner
		}
	}
	for _, g := range groups {
		if m.ManagerGroup != "" && g == m.ManagerGroup {
			return domainauth.RoleFarmManager
		}
	}
	return domainauth.RoleCollaborator
}
