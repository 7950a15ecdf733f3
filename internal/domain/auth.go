package domain

// OpsRole scopes what an ops API token may read.
type OpsRole string

const (
	OpsRoleViewer OpsRole = "VIEWER"
	OpsRoleAdmin  OpsRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r OpsRole) Valid() bool {
	return r == OpsRoleViewer || r == OpsRoleAdmin
}
