package auth

const (
	RoleAdmin   = "admin"
	RoleTracker = "tracker"
)

const (
	PermCompaniesRead     = "companies.read"
	PermCompaniesWrite    = "companies.write"
	PermWorkersRead       = "workers.read"
	PermWorkersWrite      = "workers.write"
	PermTimeRecordsCreate = "time_records.create"
	PermTimeRecordsRead   = "time_records.read"
	PermIncidentsCreate   = "incidents.create"
	PermIncidentsRead     = "incidents.read"
	PermIncidentsManage   = "incidents.manage"
	PermSettingsRead      = "settings.read"
	PermSettingsWrite     = "settings.write"
	PermBackupsRead       = "backups.read"
	PermBackupsManage     = "backups.manage"
	PermUsersManage       = "users.manage"
)

// RolePermissions is the static capability table. Trackers are shared
// clock-in terminals: they may only submit time records and file incidents
// on a worker's behalf.
var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermCompaniesRead,
		PermCompaniesWrite,
		PermWorkersRead,
		PermWorkersWrite,
		PermTimeRecordsCreate,
		PermTimeRecordsRead,
		PermIncidentsCreate,
		PermIncidentsRead,
		PermIncidentsManage,
		PermSettingsRead,
		PermSettingsWrite,
		PermBackupsRead,
		PermBackupsManage,
		PermUsersManage,
	},
	RoleTracker: {
		PermTimeRecordsCreate,
		PermIncidentsCreate,
	},
}

func HasPermission(role, permission string) bool {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true
		}
	}
	return false
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
