package entity

// Roles reconocidos en el token.
const (
	RoleSuperAdmin = "super_admin"
	RoleOrgAdmin   = "org_admin"
	RoleOperator   = "operator"
)

// Caller identidad de quien invoca una operación, tomada del JWT.
type Caller struct {
	UserID         string
	CompanyID      string
	OrganizationID string
	Role           string
}

// IsSuperAdmin acceso a todas las organizaciones.
func (c Caller) IsSuperAdmin() bool { return c.Role == RoleSuperAdmin }

// CanRetryTransmission solo administradores pueden forzar un reenvío.
func (c Caller) CanRetryTransmission() bool {
	return c.Role == RoleSuperAdmin || c.Role == RoleOrgAdmin
}

// CanAccess indica si el llamador puede ver o actuar sobre una transmisión.
func (c Caller) CanAccess(rec *TransmissionRecord) bool {
	if rec == nil {
		return false
	}
	if c.IsSuperAdmin() || rec.CompanyID == c.CompanyID {
		return true
	}
	return c.Role == RoleOrgAdmin && c.OrganizationID != "" && rec.OrganizationID == c.OrganizationID
}
