package models

// Role represents user roles in the system
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleDriver         Role = "driver"
	RoleStationManager Role = "station_manager"
	RoleViewer         Role = "viewer"
)

// Claims represents JWT claims
type Claims struct {
	Subject string `json:"sub"`
	Role    Role   `json:"role"`
	Exp     int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleDriver, RoleStationManager, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission checks if a role may perform a simulation action
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleDriver, RoleStationManager:
		return action == "view_simulation" || action == "control_simulation"
	case RoleViewer:
		return action == "view_simulation"
	default:
		return false
	}
}
