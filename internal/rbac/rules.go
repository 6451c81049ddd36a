package rbac

// Default policy. Permissions are "<resource>:<action>"; a trailing * matches any action.
var RolePermissions = map[string][]string{
	"admin": {
		"*", // everything, including users:* and audit:read
	},
	"guru": {
		"users:read",
		"students:*",
		"criteria:*",
		"assessments:*",
		"results:*",
	},
	"kepala_sekolah": {
		"users:read",
		"students:read",
		"criteria:read",
		"assessments:read",
		"results:read",
	},
}
