package shared

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"
	PermPermissionsEdit = "permissions.edit"

	PermMasterData = "master-data"
)

// SuperAdminRoleID is the bootstrap role that receives every permission
// on creation. SuperAdminUserID is the seed account that can never be
// deleted.
const (
	SuperAdminRoleID int64 = 1
	SuperAdminUserID int64 = 1
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermPermissionsEdit,
		PermMasterData,
	}
}
